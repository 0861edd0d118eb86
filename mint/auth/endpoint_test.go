package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandProtectedEndpointsMatchesPatternedRoutes(t *testing.T) {
	endpoints := []ProtectedEndpoint{
		{Method: http.MethodPost, Pattern: "/v1/mint/{method}"},
	}
	registered := []RoutePath{
		{Method: http.MethodPost, Path: "/v1/mint/bolt11"},
		{Method: http.MethodGet, Path: "/v1/mint/bolt11"},
		{Method: http.MethodGet, Path: "/v1/keys"},
	}

	expanded := ExpandProtectedEndpoints(endpoints, registered)
	assert.Len(t, expanded, 1)
	assert.Equal(t, RoutePath{Method: http.MethodPost, Path: "/v1/mint/bolt11"}, expanded[0])
}

func TestExpandProtectedEndpointsExactPath(t *testing.T) {
	endpoints := []ProtectedEndpoint{
		{Method: http.MethodPost, Pattern: "/v1/swap"},
	}
	registered := []RoutePath{
		{Method: http.MethodPost, Path: "/v1/swap"},
		{Method: http.MethodPost, Path: "/v1/checkstate"},
	}

	expanded := ExpandProtectedEndpoints(endpoints, registered)
	assert.Equal(t, []RoutePath{{Method: http.MethodPost, Path: "/v1/swap"}}, expanded)
}

func TestIsProtected(t *testing.T) {
	expanded := ExpandProtectedEndpoints(DefaultProtectedEndpoints(), []RoutePath{
		{Method: http.MethodPost, Path: "/v1/mint/bolt11"},
		{Method: http.MethodGet, Path: "/v1/info"},
		{Method: http.MethodPost, Path: "/v1/swap"},
	})

	assert.True(t, IsProtected(expanded, http.MethodPost, "/v1/mint/bolt11"))
	assert.True(t, IsProtected(expanded, http.MethodPost, "/v1/swap"))
	assert.False(t, IsProtected(expanded, http.MethodGet, "/v1/info"))
}
