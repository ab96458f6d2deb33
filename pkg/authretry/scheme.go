package authretry

import (
	"net/http"
	"strings"

	"github.com/fabricsync/fabricsync/pkg/types"
)

// InferScheme determines the auth scheme a target expects from response
// signals: a WWW-Authenticate header states the scheme directly, an error
// message referencing an API-key header implies ApiKey, and host-based
// heuristics cover the rest.
func InferScheme(statusCode int, header http.Header, callErr error, target string) types.AuthScheme {
	if header != nil {
		if challenge := header.Get("WWW-Authenticate"); challenge != "" {
			if scheme, ok := schemeFromChallenge(challenge); ok {
				return scheme
			}
		}
	}

	if callErr != nil && mentionsAPIKey(callErr.Error()) {
		return types.SchemeAPIKey
	}

	return schemeFromHost(target)
}

// schemeFromChallenge parses the scheme token of a WWW-Authenticate header,
// e.g. `Basic realm="controller"` or `Bearer error="invalid_token"`.
func schemeFromChallenge(challenge string) (types.AuthScheme, bool) {
	token := challenge
	if idx := strings.IndexAny(challenge, " \t,"); idx > 0 {
		token = challenge[:idx]
	}
	switch strings.ToLower(token) {
	case "basic":
		return types.SchemeBasic, true
	case "bearer":
		return types.SchemeBearer, true
	default:
		return "", false
	}
}

func mentionsAPIKey(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "x-api-key") ||
		strings.Contains(msg, "api key") ||
		strings.Contains(msg, "api-key")
}

// schemeFromHost is the last-resort heuristic: session-token deployments are
// typically fronted by a manager VIP, everything else speaks basic auth.
func schemeFromHost(target string) types.AuthScheme {
	host := strings.ToLower(target)
	if strings.Contains(host, "vip") || strings.Contains(host, "gateway") {
		return types.SchemeBearer
	}
	return types.SchemeBasic
}
