package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/internal/capsule/session"
	"github.com/orinotech/timecapsule/internal/capsule/store/drivers/sqlite"
	"github.com/orinotech/timecapsule/pkg/cryptox"
)

func TestMain(m *testing.M) {
	// Set up a temporary pepper file for testing
	tmpDir := os.TempDir()
	pepperPath := filepath.Join(tmpDir, "http-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

type testMailer struct {
	verifyTokens chan string
	resetTokens  chan string
}

func (m *testMailer) SendVerificationEmail(ctx context.Context, email, username, token string) error {
	m.verifyTokens <- token
	return nil
}

func (m *testMailer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	m.resetTokens <- token
	return nil
}

func newTestRouter(t *testing.T) (*Router, *testMailer) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sessions := session.NewRegistry(session.DefaultTTL)
	mailer := &testMailer{
		verifyTokens: make(chan string, 8),
		resetTokens:  make(chan string, 8),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter("test", st, sessions, logger)
	r.AccountService = &service.AccountService{Store: st, Sessions: sessions, Mail: mailer}
	r.PasswordResetService = &service.PasswordResetService{Store: st, Sessions: sessions, Mail: mailer}
	r.CapsuleService = &service.CapsuleService{Store: st}
	r.ApplyRoutes()

	return r, mailer
}

func postForm(t *testing.T, h stdhttp.Handler, path string, form url.Values, cookies ...*stdhttp.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(stdhttp.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h stdhttp.Handler, path string, cookies ...*stdhttp.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(stdhttp.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *stdhttp.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func waitToken(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case token := <-ch:
		return token
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dispatched token")
		return ""
	}
}

func signupAndVerify(t *testing.T, r *Router, mailer *testMailer, email string) {
	t.Helper()

	rec := postForm(t, r, "/v1/auth/signup", url.Values{
		"username":         {"testuser"},
		"email":            {email},
		"password":         {"Aa1!aaaa"},
		"confirm_password": {"Aa1!aaaa"},
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code)

	rec = get(t, r, "/v1/auth/verify/"+waitToken(t, mailer.verifyTokens))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
}

func login(t *testing.T, r *Router, email, password string) *stdhttp.Cookie {
	t.Helper()

	rec := postForm(t, r, "/v1/auth/login", url.Values{
		"email":    {email},
		"password": {password},
	})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	return sessionCookie(t, rec)
}

func TestSignupFlow(t *testing.T) {
	r, mailer := newTestRouter(t)

	t.Run("valid signup returns the account", func(t *testing.T) {
		rec := postForm(t, r, "/v1/auth/signup", url.Values{
			"username":         {"alice"},
			"email":            {"ALICE@Example.com"},
			"password":         {"Aa1!aaaa"},
			"confirm_password": {"Aa1!aaaa"},
		})
		require.Equal(t, stdhttp.StatusCreated, rec.Code)

		resp := decode[SignupResponse](t, rec)
		require.Equal(t, "alice", resp.Username)
		require.Equal(t, "alice@example.com", resp.Email)
		require.NotEmpty(t, resp.ID)

		waitToken(t, mailer.verifyTokens)
	})

	t.Run("validation failures list every problem", func(t *testing.T) {
		rec := postForm(t, r, "/v1/auth/signup", url.Values{
			"username":         {"x"},
			"email":            {"nope"},
			"password":         {"weak"},
			"confirm_password": {"weak"},
		})
		require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

		var resp struct {
			Error  string   `json:"error"`
			Errors []string `json:"errors"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, "validation_error", resp.Error)
		require.Len(t, resp.Errors, 3)
	})

	t.Run("duplicate email responds 409", func(t *testing.T) {
		rec := postForm(t, r, "/v1/auth/signup", url.Values{
			"username":         {"alice2"},
			"email":            {"alice@example.com"},
			"password":         {"Bb2@bbbb"},
			"confirm_password": {"Bb2@bbbb"},
		})
		require.Equal(t, stdhttp.StatusConflict, rec.Code)
	})

	t.Run("wrong content type is rejected", func(t *testing.T) {
		req := httptest.NewRequest(stdhttp.MethodPost, "/v1/auth/signup", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, stdhttp.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestLoginFlow(t *testing.T) {
	r, mailer := newTestRouter(t)
	signupAndVerify(t, r, mailer, "bob@example.com")

	t.Run("wrong password gets the generic 401", func(t *testing.T) {
		rec := postForm(t, r, "/v1/auth/login", url.Values{
			"email":    {"bob@example.com"},
			"password": {"Bb2@bbbb"},
		})
		require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", decode[struct {
			Error string `json:"error"`
		}](t, rec).Error)
	})

	t.Run("unknown email gets the same 401", func(t *testing.T) {
		rec := postForm(t, r, "/v1/auth/login", url.Values{
			"email":    {"ghost@example.com"},
			"password": {"Aa1!aaaa"},
		})
		require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", decode[struct {
			Error string `json:"error"`
		}](t, rec).Error)
	})

	t.Run("valid login sets the session cookie", func(t *testing.T) {
		cookie := login(t, r, "bob@example.com", "Aa1!aaaa")
		require.True(t, cookie.HttpOnly)
		require.NotEmpty(t, cookie.Value)

		rec := get(t, r, "/v1/auth/me", cookie)
		require.Equal(t, stdhttp.StatusOK, rec.Code)

		me := decode[MeResponse](t, rec)
		require.Equal(t, "bob@example.com", me.Email)
		require.Equal(t, "testuser", me.Username)
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		cookie := login(t, r, "bob@example.com", "Aa1!aaaa")

		rec := postForm(t, r, "/v1/auth/logout", url.Values{}, cookie)
		require.Equal(t, stdhttp.StatusNoContent, rec.Code)

		rec = get(t, r, "/v1/auth/me", cookie)
		require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

		// A second logout with the same cookie still succeeds.
		rec = postForm(t, r, "/v1/auth/logout", url.Values{}, cookie)
		require.Equal(t, stdhttp.StatusNoContent, rec.Code)
	})

	t.Run("me without a session responds 401", func(t *testing.T) {
		rec := get(t, r, "/v1/auth/me")
		require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	r, mailer := newTestRouter(t)
	signupAndVerify(t, r, mailer, "carol@example.com")

	t.Run("forgot responds identically for unknown emails", func(t *testing.T) {
		known := postForm(t, r, "/v1/auth/password/forgot", url.Values{"email": {"carol@example.com"}})
		unknown := postForm(t, r, "/v1/auth/password/forgot", url.Values{"email": {"ghost@example.com"}})

		require.Equal(t, stdhttp.StatusOK, known.Code)
		require.Equal(t, stdhttp.StatusOK, unknown.Code)
		require.Equal(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("reset with the mailed token changes the password", func(t *testing.T) {
		token := waitToken(t, mailer.resetTokens)

		rec := postForm(t, r, "/v1/auth/password/reset", url.Values{
			"token":            {token},
			"password":         {"Bb2@bbbb"},
			"confirm_password": {"Bb2@bbbb"},
		})
		require.Equal(t, stdhttp.StatusOK, rec.Code)

		login(t, r, "carol@example.com", "Bb2@bbbb")

		// The consumed token is rejected on replay.
		rec = postForm(t, r, "/v1/auth/password/reset", url.Values{
			"token":            {token},
			"password":         {"Cc3#cccc"},
			"confirm_password": {"Cc3#cccc"},
		})
		require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_token", decode[struct {
			Error string `json:"error"`
		}](t, rec).Error)
	})
}

func TestCapsuleEndpoints(t *testing.T) {
	r, mailer := newTestRouter(t)
	signupAndVerify(t, r, mailer, "dave@example.com")
	cookie := login(t, r, "dave@example.com", "Aa1!aaaa")

	unlockAt := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)

	t.Run("add requires a session", func(t *testing.T) {
		rec := postForm(t, r, "/v1/capsules/add", url.Values{
			"title":     {"graduation"},
			"message":   {"open later"},
			"unlock_at": {unlockAt},
		})
		require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	})

	var shareToken string
	t.Run("add seals a capsule", func(t *testing.T) {
		rec := postForm(t, r, "/v1/capsules/add", url.Values{
			"title":     {"graduation"},
			"message":   {"open later"},
			"unlock_at": {unlockAt},
		}, cookie)
		require.Equal(t, stdhttp.StatusCreated, rec.Code)

		resp := decode[CapsuleResponse](t, rec)
		require.NotEmpty(t, resp.ShareToken)
		shareToken = resp.ShareToken
	})

	t.Run("listing shows the owner's capsules", func(t *testing.T) {
		rec := get(t, r, "/v1/capsules/", cookie)
		require.Equal(t, stdhttp.StatusOK, rec.Code)
		require.Len(t, decode[[]CapsuleResponse](t, rec), 1)

		rec = get(t, r, "/v1/capsules/?opened=true", cookie)
		require.Equal(t, stdhttp.StatusOK, rec.Code)
		require.Empty(t, decode[[]CapsuleResponse](t, rec))
	})

	t.Run("shared sealed capsule responds 403", func(t *testing.T) {
		rec := get(t, r, "/v1/capsules/"+shareToken)
		require.Equal(t, stdhttp.StatusForbidden, rec.Code)
	})

	t.Run("unknown share token responds 404", func(t *testing.T) {
		rec := get(t, r, "/v1/capsules/no-such-token")
		require.Equal(t, stdhttp.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := get(t, r, "/livez")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[HealthResponse](t, rec).Status)

	rec = get(t, r, "/readyz")
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	require.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Checks)
	require.Equal(t, "ok", resp.Checks.Database)
}
