package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orinotech/timecapsule/internal/capsule/session"
	"github.com/orinotech/timecapsule/internal/capsule/store"
	"github.com/orinotech/timecapsule/internal/capsule/store/drivers/sqlite"
	"github.com/orinotech/timecapsule/pkg/cryptox"
)

func TestMain(m *testing.M) {
	// Set up a temporary pepper file for testing
	tmpDir := os.TempDir()
	pepperPath := filepath.Join(tmpDir, "service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

// captureMailer records dispatched tokens so tests can complete the
// verify and reset flows. Channels are buffered because dispatch happens
// on a separate goroutine.
type captureMailer struct {
	verifyTokens chan string
	resetTokens  chan string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{
		verifyTokens: make(chan string, 8),
		resetTokens:  make(chan string, 8),
	}
}

func (m *captureMailer) SendVerificationEmail(ctx context.Context, email, username, token string) error {
	m.verifyTokens <- token
	return nil
}

func (m *captureMailer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	m.resetTokens <- token
	return nil
}

func waitForToken(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case token := <-ch:
		return token
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dispatched token")
		return ""
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestAccountService(t *testing.T) (*AccountService, *captureMailer) {
	t.Helper()

	mailer := newCaptureMailer()
	svc := &AccountService{
		Store:    newTestStore(t),
		Sessions: session.NewRegistry(session.DefaultTTL),
		Mail:     mailer,
	}
	return svc, mailer
}

func register(t *testing.T, svc *AccountService, mailer *captureMailer, email, password string) (accountID, verifyToken string) {
	t.Helper()

	account, err := svc.Register(context.Background(), RegisterForm{
		Username:        "testuser",
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return account.ID, waitForToken(t, mailer.verifyTokens)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("stores normalized email and hashed password", func(t *testing.T) {
		svc, mailer := newTestAccountService(t)

		account, err := svc.Register(ctx, RegisterForm{
			Username:        "alice",
			Email:           "ALICE@Example.com",
			Password:        "Aa1!aaaa",
			ConfirmPassword: "Aa1!aaaa",
		})
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", account.Email)
		require.NotEqual(t, "Aa1!aaaa", account.PasswordHash)
		require.NoError(t, cryptox.VerifyPassword("Aa1!aaaa", account.PasswordHash))
		require.False(t, account.Verified())

		stored, err := svc.Store.Accounts().GetAccountByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, account.ID, stored.ID)
		require.NotNil(t, stored.VerifyTokenHash)

		waitForToken(t, mailer.verifyTokens)
	})

	t.Run("rejects weak password without touching the store", func(t *testing.T) {
		svc, _ := newTestAccountService(t)

		_, err := svc.Register(ctx, RegisterForm{
			Username:        "bob",
			Email:           "bob@example.com",
			Password:        "short",
			ConfirmPassword: "short",
		})

		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Contains(t, errs, "Invalid Password.")

		exists, err := svc.Store.Accounts().ExistsByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc, mailer := newTestAccountService(t)
		register(t, svc, mailer, "carol@example.com", "Aa1!aaaa")

		_, err := svc.Register(ctx, RegisterForm{
			Username:        "carol2",
			Email:           "Carol@Example.com",
			Password:        "Bb2@bbbb",
			ConfirmPassword: "Bb2@bbbb",
		})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("concurrent registrations on one email create exactly one account", func(t *testing.T) {
		svc, _ := newTestAccountService(t)

		const attempts = 8
		var wg sync.WaitGroup
		results := make(chan error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Register(ctx, RegisterForm{
					Username:        "dave",
					Email:           "dave@example.com",
					Password:        "Aa1!aaaa",
					ConfirmPassword: "Aa1!aaaa",
				})
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var created, duplicates int
		for err := range results {
			switch {
			case err == nil:
				created++
			default:
				require.ErrorIs(t, err, ErrDuplicateEmail)
				duplicates++
			}
		}
		require.Equal(t, 1, created)
		require.Equal(t, attempts-1, duplicates)
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("marks account verified and consumes the token", func(t *testing.T) {
		svc, mailer := newTestAccountService(t)
		accountID, token := register(t, svc, mailer, "alice@example.com", "Aa1!aaaa")

		require.NoError(t, svc.VerifyEmail(ctx, token))

		account, err := svc.Store.Accounts().GetAccountByID(ctx, accountID)
		require.NoError(t, err)
		require.True(t, account.Verified())
		require.Nil(t, account.VerifyTokenHash)

		// The token is single use, but replaying it is still a silent no-op.
		require.NoError(t, svc.VerifyEmail(ctx, token))
	})

	t.Run("unknown token is a silent no-op", func(t *testing.T) {
		svc, _ := newTestAccountService(t)
		require.NoError(t, svc.VerifyEmail(ctx, "no-such-token"))
		require.NoError(t, svc.VerifyEmail(ctx, ""))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds only with verified account and correct password", func(t *testing.T) {
		svc, mailer := newTestAccountService(t)
		accountID, token := register(t, svc, mailer, "alice@example.com", "Aa1!aaaa")

		// Before verification the correct password still fails, and the
		// error is indistinguishable from a wrong password.
		_, err := svc.Login(ctx, "alice@example.com", "Aa1!aaaa")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		require.NoError(t, svc.VerifyEmail(ctx, token))

		_, err = svc.Login(ctx, "alice@example.com", "Bb2@bbbb")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = svc.Login(ctx, "nobody@example.com", "Aa1!aaaa")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		sessionToken, err := svc.Login(ctx, "alice@example.com", "Aa1!aaaa")
		require.NoError(t, err)
		require.NotEmpty(t, sessionToken)

		gotID, ok := svc.CurrentAccountID(sessionToken)
		require.True(t, ok)
		require.Equal(t, accountID, gotID)
	})

	t.Run("email lookup is case insensitive", func(t *testing.T) {
		svc, mailer := newTestAccountService(t)
		_, token := register(t, svc, mailer, "bob@example.com", "Aa1!aaaa")
		require.NoError(t, svc.VerifyEmail(ctx, token))

		sessionToken, err := svc.Login(ctx, "BOB@Example.com", "Aa1!aaaa")
		require.NoError(t, err)
		require.True(t, svc.IsAuthenticated(sessionToken))
	})

	t.Run("rejects malformed input before hitting the store", func(t *testing.T) {
		svc, _ := newTestAccountService(t)

		_, err := svc.Login(ctx, "not-an-email", "")
		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		require.Len(t, errs, 2)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	svc, mailer := newTestAccountService(t)
	_, token := register(t, svc, mailer, "alice@example.com", "Aa1!aaaa")
	require.NoError(t, svc.VerifyEmail(ctx, token))

	sessionToken, err := svc.Login(ctx, "alice@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	require.True(t, svc.IsAuthenticated(sessionToken))

	svc.Logout(ctx, sessionToken)
	require.False(t, svc.IsAuthenticated(sessionToken))

	_, ok := svc.CurrentAccountID(sessionToken)
	require.False(t, ok)

	// Logging out twice is harmless.
	svc.Logout(ctx, sessionToken)
	svc.Logout(ctx, "never-issued")
}
