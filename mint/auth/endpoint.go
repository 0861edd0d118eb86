// Package auth implements the mint's blind-auth layer (C11): a
// configured set of protected endpoints that require either a
// clear-auth (OIDC) bearer token or a single-use blind-auth Cashu
// token on a dedicated Auth-unit keyset.
package auth

import (
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
)

// RoutePath is one concrete (method, path) pair the mint actually
// serves, e.g. {Method: "POST", Path: "/v1/mint/bolt11"}.
type RoutePath struct {
	Method string
	Path   string
}

// ProtectedEndpoint configures protection for every route matching
// Method and a gorilla/mux path pattern (so "/v1/mint/quote/{method}"
// protects both the bolt11 and future quote-method variants without an
// entry per method).
type ProtectedEndpoint struct {
	Method  string
	Pattern string
}

// ExpandProtectedEndpoints turns a small set of (method, pattern) rules
// into the concrete RoutePath set they cover, by matching each pattern
// against the mint's actual registered routes with gorilla/mux's own
// router matching machinery. No HTTP server is started: Match is
// called directly against synthetic requests built with
// httptest.NewRequest.
func ExpandProtectedEndpoints(endpoints []ProtectedEndpoint, registered []RoutePath) []RoutePath {
	var expanded []RoutePath
	for _, candidate := range registered {
		if matchesAny(endpoints, candidate) {
			expanded = append(expanded, candidate)
		}
	}
	return expanded
}

func matchesAny(endpoints []ProtectedEndpoint, candidate RoutePath) bool {
	for _, ep := range endpoints {
		if matches(ep, candidate) {
			return true
		}
	}
	return false
}

func matches(ep ProtectedEndpoint, candidate RoutePath) bool {
	router := mux.NewRouter()
	router.Path(ep.Pattern).Methods(ep.Method)

	req := httptest.NewRequest(candidate.Method, candidate.Path, nil)
	var match mux.RouteMatch
	return router.Match(req, &match)
}

// IsProtected reports whether (method, path) is in the expanded
// RoutePath set.
func IsProtected(expanded []RoutePath, method, path string) bool {
	for _, r := range expanded {
		if r.Method == method && r.Path == path {
			return true
		}
	}
	return false
}

// DefaultProtectedEndpoints mirrors a typical mint operator
// configuration: quote issuance and token movement endpoints require
// auth, informational endpoints (keys, info) do not.
func DefaultProtectedEndpoints() []ProtectedEndpoint {
	return []ProtectedEndpoint{
		{Method: http.MethodPost, Pattern: "/v1/mint/quote/{method}"},
		{Method: http.MethodPost, Pattern: "/v1/mint/{method}"},
		{Method: http.MethodPost, Pattern: "/v1/melt/quote/{method}"},
		{Method: http.MethodPost, Pattern: "/v1/melt/{method}"},
		{Method: http.MethodPost, Pattern: "/v1/swap"},
	}
}
