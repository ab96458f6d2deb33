package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricsync/fabricsync/pkg/authretry"
	"github.com/fabricsync/fabricsync/pkg/types"
)

func newTestClient(t *testing.T, server *httptest.Server, opts *ClientOptions) *Client {
	t.Helper()
	if opts == nil {
		opts = DefaultClientOptions()
	}
	opts.BaseURL = server.URL
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func TestAuthHeaderInjection(t *testing.T) {
	var gotAuth, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tests := []struct {
		name  string
		cred  *types.Credential
		check func(t *testing.T)
	}{
		{
			name: "basic",
			cred: &types.Credential{Username: "admin", Password: "pw", Scheme: types.SchemeBasic},
			check: func(t *testing.T) {
				assert.Contains(t, gotAuth, "Basic ")
			},
		},
		{
			name: "bearer",
			cred: &types.Credential{Token: "tok123", Scheme: types.SchemeBearer},
			check: func(t *testing.T) {
				assert.Equal(t, "Bearer tok123", gotAuth)
			},
		},
		{
			name: "apikey",
			cred: &types.Credential{APIKey: "key123", Scheme: types.SchemeAPIKey},
			check: func(t *testing.T) {
				assert.Equal(t, "key123", gotAPIKey)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAuth, gotAPIKey = "", ""
			opts := DefaultClientOptions()
			opts.Credential = tt.cred
			c := newTestClient(t, server, opts)

			_, err := c.Get(context.Background(), "/api/v1/node")
			require.NoError(t, err)
			tt.check(t)
		})
	}
}

func TestTransportFailureMapsToConnectivityError(t *testing.T) {
	opts := DefaultClientOptions()
	opts.BaseURL = "https://127.0.0.1:1"
	opts.RequestTimeout = 500 * time.Millisecond
	c, err := NewClient(opts)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/api/v1/node")
	require.Error(t, err)
	assert.True(t, types.IsConnectivityError(err))
}

func TestAuthRecoveryRetriesOnceWithRefreshedCredential(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		user, _, _ := r.BasicAuth()
		if user != "recovered" {
			w.Header().Set("WWW-Authenticate", `Basic realm="controller"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recovery := authretry.NewManager(authretry.Options{
		Credentials: staticCredentials{&types.Credential{Username: "recovered", Password: "pw"}},
	})

	opts := DefaultClientOptions()
	opts.Credential = &types.Credential{Username: "stale", Password: "old", Scheme: types.SchemeBasic}
	opts.Recovery = recovery
	c := newTestClient(t, server, opts)

	resp, err := c.Get(context.Background(), "/api/v1/node")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attempts)
	// confirmed success clears the retry counter
	assert.Equal(t, 0, recovery.RetryCount(c.Target()))
}

// keywordFailTransport fails the first round trip with an auth-flavored
// transport error, then answers 200.
type keywordFailTransport struct {
	calls int
}

func (k *keywordFailTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	k.calls++
	if k.calls == 1 {
		return nil, errors.New("proxy rejected request: invalid credential")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("{}")),
		Header:     http.Header{},
	}, nil
}

func TestAuthKeywordTransportErrorEntersRecovery(t *testing.T) {
	recovery := authretry.NewManager(authretry.Options{
		Credentials: staticCredentials{&types.Credential{Username: "recovered", Password: "pw", Scheme: types.SchemeBasic}},
	})

	opts := DefaultClientOptions()
	opts.BaseURL = "https://controller.example.com"
	opts.Credential = &types.Credential{Username: "stale", Password: "old", Scheme: types.SchemeBasic}
	opts.Recovery = recovery
	c, err := NewClient(opts)
	require.NoError(t, err)

	transport := &keywordFailTransport{}
	c.httpClient.Transport = transport

	resp, err := c.Get(context.Background(), "/api/v1/node")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, transport.calls)
	assert.Equal(t, 0, recovery.RetryCount(c.Target()))
}

func TestPlainTransportErrorStaysConnectivityWithRecovery(t *testing.T) {
	recovery := authretry.NewManager(authretry.Options{})
	opts := DefaultClientOptions()
	opts.BaseURL = "https://127.0.0.1:1"
	opts.RequestTimeout = 500 * time.Millisecond
	opts.Recovery = recovery
	c, err := NewClient(opts)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/api/v1/node")
	require.Error(t, err)
	assert.True(t, types.IsConnectivityError(err))
}

func TestLockoutStopsNetworkAttempts(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	recovery := authretry.NewManager(authretry.Options{MaxRetries: 2})
	opts := DefaultClientOptions()
	opts.Credential = &types.Credential{Username: "u", Password: "p", Scheme: types.SchemeBasic}
	opts.Recovery = recovery
	c := newTestClient(t, server, opts)

	ctx := context.Background()
	_, err := c.Get(ctx, "/api/v1/node")
	require.Error(t, err)
	assert.True(t, types.IsAuthenticationError(err))
	attemptsAfterFirstCall := attempts

	// budget exhausted: the next call fails without a recovery retry
	_, err = c.Get(ctx, "/api/v1/node")
	require.Error(t, err)
	assert.True(t, types.IsAuthenticationError(err))
	assert.Equal(t, attemptsAfterFirstCall+1, attempts)
}

func TestAcquireSessionToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/session/create", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin", body["username"])

		_ = json.NewEncoder(w).Encode(map[string]string{"token": "session-token"})
	}))
	defer server.Close()

	opts := DefaultClientOptions()
	opts.Credential = &types.Credential{Username: "admin", Password: "pw", Scheme: types.SchemeBasic}
	c := newTestClient(t, server, opts)

	require.NoError(t, c.AcquireSessionToken(context.Background()))
	assert.Equal(t, "session-token", c.Credential().Token)
	assert.Equal(t, types.SchemeBearer, c.Credential().Scheme)
}

type staticCredentials struct {
	cred *types.Credential
}

func (s staticCredentials) Get(string) (*types.Credential, error)    { return s.cred, nil }
func (s staticCredentials) Save(string, *types.Credential) error     { return nil }
