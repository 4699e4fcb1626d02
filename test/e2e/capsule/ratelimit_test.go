package capsule_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoginRateLimiting runs against the production rate limits and
// checks that hammering the login endpoint eventually gets throttled.
func TestLoginRateLimiting(t *testing.T) {
	baseURL, _, cleanup := setupCapsuleContainerWithDefaultRateLimits(t)
	defer cleanup()

	form := url.Values{
		"email":    {"ghost@example.com"},
		"password": {"Aa1!aaaa"},
	}

	var limited bool
	for i := 0; i < 10; i++ {
		resp := postForm(t, baseURL, "/v1/auth/login", form)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			// Still under the limit.
		case http.StatusTooManyRequests:
			require.NotEmpty(t, resp.Header.Get("Retry-After"))
			limited = true
		default:
			t.Fatalf("unexpected status %d on attempt %d", resp.StatusCode, i+1)
		}
		if limited {
			break
		}
	}

	require.True(t, limited, "login endpoint was never rate limited")
}
