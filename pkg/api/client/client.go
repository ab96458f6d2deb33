// Package client provides the HTTP client for the controller REST API.
// Every outbound call passes through the authentication recovery wrapper.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fabricsync/fabricsync/pkg/authretry"
	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// TLSOptions holds per-client TLS trust configuration. Trust overrides are
// scoped to the client instance, never process-global.
type TLSOptions struct {
	InsecureSkipVerify bool
	CAFile             string
}

// ClientOptions holds configuration options for the controller API client.
type ClientOptions struct {
	// BaseURL of the controller, e.g. https://nsx01.example.com
	BaseURL string

	// Credential used for outbound calls. May be replaced by the recovery
	// wrapper during a retry.
	Credential *types.Credential

	// TLS trust configuration for this client instance.
	TLS TLSOptions

	// RequestTimeout bounds each individual request.
	RequestTimeout time.Duration

	// Recovery is the authentication recovery wrapper. Optional; without it
	// auth failures surface directly.
	Recovery AuthRecovery

	// PersistCredentials saves a working credential back to the credential
	// store after a successful recovery.
	PersistCredentials bool

	// Logger
	Logger log.Logger
}

// AuthRecovery is the subset of the recovery manager the client consults on
// every outbound call.
type AuthRecovery interface {
	IsAuthFailure(statusCode int, err error) bool
	HandleFailure(ctx context.Context, target string, statusCode int, header http.Header, callErr error) authretry.Decision
	ResetRetryAttempts(target string)
	PersistWorkingCredential(target string, cred *types.Credential, scheme types.AuthScheme)
}

// APIResponse is the outcome of one controller call.
type APIResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Duration   time.Duration
}

// Client is an HTTP client for one controller instance.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	cred       *types.Credential
	recovery   AuthRecovery
	persist    bool
	logger     log.Logger
}

// DefaultClientOptions returns the default client options.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		RequestTimeout: 30 * time.Second,
		Logger:         log.GetDefaultLogger().WithComponent("api-client"),
	}
}

// NewClient creates a new controller API client. Each client owns a dedicated
// http.Client so TLS trust configuration never leaks across sessions.
func NewClient(options *ClientOptions) (*Client, error) {
	if options == nil {
		options = DefaultClientOptions()
	}
	if options.BaseURL == "" {
		return nil, types.NewValidationError("controller address is required")
	}

	logger := options.Logger
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("api-client")
	}

	base := options.BaseURL
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, types.NewValidationError(fmt.Sprintf("invalid controller address %q: %v", options.BaseURL, err))
	}

	tlsConfig, err := buildTLSConfig(options.TLS)
	if err != nil {
		return nil, err
	}

	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		cred:     options.Credential,
		recovery: options.Recovery,
		persist:  options.PersistCredentials,
		logger:   logger,
	}, nil
}

func buildTLSConfig(opts TLSOptions) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}
	if opts.CAFile != "" {
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", opts.CAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// Target returns the controller base URL, the retry-state key.
func (c *Client) Target() string {
	return c.baseURL.String()
}

// Credential returns the credential currently in use.
func (c *Client) Credential() *types.Credential {
	return c.cred
}

// SetCredential replaces the credential used for outbound calls.
func (c *Client) SetCredential(cred *types.Credential) {
	c.cred = cred
}

// Get issues a GET request against the controller.
func (c *Client) Get(ctx context.Context, path string) (*APIResponse, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*APIResponse, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*APIResponse, error) {
	return c.doJSON(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE request against the controller.
func (c *Client) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// GetJSON issues a GET request and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v interface{}) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("controller returned HTTP %d for %s", resp.StatusCode, path)
	}
	return json.Unmarshal(resp.Body, v)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}) (*APIResponse, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}
	return c.do(ctx, method, path, payload)
}

// do executes one controller call through the auth recovery wrapper: an auth
// failure is classified, the recovery manager decides whether a single retry
// with a refreshed credential is allowed, and lockout protection stops the
// chain without a further network attempt.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*APIResponse, error) {
	cred := c.cred
	retried := false

	for {
		resp, err := c.execute(ctx, method, path, body, cred)
		if err != nil {
			// transport errors can still signal an auth problem (proxy or
			// gateway rejections carry it in the message, not a status code)
			if c.recovery != nil && c.recovery.IsAuthFailure(0, err) {
				if retried {
					return nil, &types.AuthenticationError{
						Target:  c.Target(),
						Message: "retry with refreshed credential was rejected",
					}
				}

				decision := c.recovery.HandleFailure(ctx, c.Target(), 0, nil, err)
				if !decision.Retry {
					return nil, &types.AuthenticationError{
						Target:  c.Target(),
						Message: decision.Reason,
					}
				}

				if decision.Credential != nil {
					cred = decision.Credential
				}
				if cred != nil && cred.Scheme == "" {
					cred.Scheme = decision.Scheme
				}
				retried = true
				continue
			}
			return nil, &types.ConnectivityError{Endpoint: path, Cause: err}
		}

		if c.recovery != nil && c.recovery.IsAuthFailure(resp.StatusCode, nil) {
			if retried {
				return resp, &types.AuthenticationError{
					Target:     c.Target(),
					StatusCode: resp.StatusCode,
					Message:    "retry with refreshed credential was rejected",
				}
			}

			decision := c.recovery.HandleFailure(ctx, c.Target(), resp.StatusCode, resp.Header, nil)
			if !decision.Retry {
				return resp, &types.AuthenticationError{
					Target:     c.Target(),
					StatusCode: resp.StatusCode,
					Message:    decision.Reason,
				}
			}

			if decision.Credential != nil {
				cred = decision.Credential
			}
			if cred != nil && cred.Scheme == "" {
				cred.Scheme = decision.Scheme
			}
			retried = true
			continue
		}

		if retried && resp.StatusCode < 400 && c.recovery != nil {
			c.recovery.ResetRetryAttempts(c.Target())
			c.cred = cred
			if c.persist && cred != nil {
				c.recovery.PersistWorkingCredential(c.Target(), cred, cred.Scheme)
			}
		}
		return resp, nil
	}
}

func (c *Client) execute(ctx context.Context, method, path string, body []byte, cred *types.Credential) (*APIResponse, error) {
	target := c.baseURL.JoinPath(path).String()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	applyAuth(req, cred)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Debug("Controller call failed",
			log.Str("method", method), log.Str("path", path), log.Err(err))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Controller call completed",
		log.Str("method", method),
		log.Str("path", path),
		log.Int("status", resp.StatusCode),
		log.Duration("duration", duration))

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Body:       data,
		Header:     resp.Header,
		Duration:   duration,
	}, nil
}

// applyAuth injects credentials by scheme: Basic via the Authorization
// header, Bearer via a token, ApiKey via the X-API-Key header.
func applyAuth(req *http.Request, cred *types.Credential) {
	if cred == nil {
		return
	}
	switch cred.Scheme {
	case types.SchemeBearer:
		if cred.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cred.Token)
		}
	case types.SchemeAPIKey:
		if cred.APIKey != "" {
			req.Header.Set("X-API-Key", cred.APIKey)
		}
	case types.SchemeBasic:
		req.SetBasicAuth(cred.Username, cred.Password)
	default:
		// scheme not yet inferred: pick from whichever material is present
		if cred.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cred.Token)
		} else if cred.APIKey != "" {
			req.Header.Set("X-API-Key", cred.APIKey)
		} else if cred.Username != "" {
			req.SetBasicAuth(cred.Username, cred.Password)
		}
	}
}

// sessionCreatePath exchanges a username/password for a session token.
const sessionCreatePath = "/api/session/create"

type sessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

// AcquireSessionToken exchanges the client's basic credential for a bearer
// session token and switches the client to it.
func (c *Client) AcquireSessionToken(ctx context.Context) error {
	if c.cred == nil || c.cred.Username == "" {
		return types.NewValidationError("session token acquisition requires a username/password credential")
	}

	resp, err := c.Post(ctx, sessionCreatePath, &sessionRequest{
		Username: c.cred.Username,
		Password: c.cred.Password,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &types.AuthenticationError{
			Target:     c.Target(),
			StatusCode: resp.StatusCode,
			Message:    "session create rejected",
		}
	}

	var session sessionResponse
	if err := json.Unmarshal(resp.Body, &session); err != nil {
		return fmt.Errorf("invalid session create response: %w", err)
	}
	if session.Token == "" {
		return fmt.Errorf("session create response carried no token")
	}

	c.cred.Token = session.Token
	c.cred.Scheme = types.SchemeBearer
	return nil
}
