package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/orinotech/timecapsule/internal/capsule/domain"
	"github.com/orinotech/timecapsule/internal/capsule/mail"
	"github.com/orinotech/timecapsule/internal/capsule/session"
	"github.com/orinotech/timecapsule/internal/capsule/store"
	"github.com/orinotech/timecapsule/pkg/cryptox"
	"github.com/orinotech/timecapsule/pkg/idx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// AccountService owns the account lifecycle: signup, email verification,
// login and logout.
type AccountService struct {
	Store    store.Store
	Sessions *session.Registry
	Mail     mail.Dispatcher
}

var (
	decoyHashOnce sync.Once
	decoyHash     string
)

// decoyPasswordHash returns a hash that login verifies against when the
// email is unknown, so the unknown-email path costs the same as a wrong
// password. Generated once per process from random input.
func decoyPasswordHash() string {
	decoyHashOnce.Do(func() {
		h, err := cryptox.HashPassword(cryptox.MustGenerateToken(cryptox.TokenSize128))
		if err != nil {
			// Hashing only fails if the pepper file is unreadable, which
			// would have failed real logins long before this point.
			panic(err)
		}
		decoyHash = h
	})
	return decoyHash
}

// Register creates a new unverified account and dispatches the
// verification email. Returns ValidationErrors for bad input and
// ErrDuplicateEmail when the email is already taken, including when two
// registrations race: the unique index decides the winner.
func (s *AccountService) Register(ctx context.Context, form RegisterForm) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	form.Normalize()
	if errs := form.Validate(); len(errs) > 0 {
		return domain.Account{}, errs
	}

	exists, err := s.Store.Accounts().ExistsByEmail(ctx, form.Email)
	if err != nil {
		return domain.Account{}, err
	}
	if exists {
		return domain.Account{}, ErrDuplicateEmail
	}

	passHash, err := cryptox.HashPassword(form.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.Account{}, err
	}

	verifyToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Account{}, err
	}
	verifyHash := cryptox.FingerprintToken(verifyToken)

	account := domain.Account{
		ID:              idx.New().String(),
		Username:        form.Username,
		Email:           form.Email,
		PasswordHash:    passHash,
		VerifyTokenHash: &verifyHash,
	}

	if err := s.Store.Accounts().CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent registration on the same email.
			return domain.Account{}, ErrDuplicateEmail
		}
		return domain.Account{}, err
	}

	log.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("username", account.Username),
	)

	// Mail delivery must not block or fail the signup.
	go func(ctx context.Context) {
		if err := s.Mail.SendVerificationEmail(ctx, account.Email, account.Username, verifyToken); err != nil {
			log.Error("failed to send verification email",
				slog.String("account_id", account.ID),
				slog.Any("error", err),
			)
		}
	}(context.WithoutCancel(ctx))

	return account, nil
}

// VerifyEmail marks the account holding the token as verified and
// consumes the token. An unknown token is a silent no-op so the endpoint
// leaks nothing about which tokens exist.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	log := slogx.FromContext(ctx)

	if token == "" {
		return nil
	}

	account, err := s.Store.Accounts().GetAccountByVerifyTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("verification attempted with unknown token")
			return nil
		}
		return err
	}

	if err := s.Store.Accounts().MarkVerified(ctx, account.ID); err != nil {
		return err
	}

	log.Info("account verified", slog.String("account_id", account.ID))
	return nil
}

// Login checks the credentials and opens a session. Every failure past
// validation collapses into ErrInvalidCredentials: unknown email, wrong
// password and unverified account all look the same to the caller, and
// the unknown-email path still runs a password verification so its
// timing matches the others.
func (s *AccountService) Login(ctx context.Context, email, password string) (token string, err error) {
	log := slogx.FromContext(ctx)

	email = NormalizeEmail(email)
	if errs := validateLogin(email, password); len(errs) > 0 {
		return "", errs
	}

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyPassword(password, decoyPasswordHash())
			log.Info("login failed", slog.String("reason", "unknown_email"))
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		log.Info("login failed",
			slog.String("account_id", account.ID),
			slog.String("reason", "password_mismatch"),
		)
		return "", ErrInvalidCredentials
	}

	if !account.Verified() {
		log.Info("login failed",
			slog.String("account_id", account.ID),
			slog.String("reason", "unverified"),
		)
		return "", ErrInvalidCredentials
	}

	token, err = s.Sessions.Create(account.ID)
	if err != nil {
		return "", err
	}

	log.Info("login succeeded", slog.String("account_id", account.ID))
	return token, nil
}

// Logout removes the session for the token. Unknown and already-removed
// tokens succeed, so repeated logouts are harmless.
func (s *AccountService) Logout(ctx context.Context, token string) {
	s.Sessions.Delete(token)
}

// IsAuthenticated reports whether the token maps to a live session.
func (s *AccountService) IsAuthenticated(token string) bool {
	_, ok := s.Sessions.Resolve(token)
	return ok
}

// CurrentAccountID resolves the token to its account id. The second
// return is false when the session does not exist or has expired.
func (s *AccountService) CurrentAccountID(token string) (string, bool) {
	return s.Sessions.Resolve(token)
}

// GetAccountByID fetches an account by id.
func (s *AccountService) GetAccountByID(ctx context.Context, accountID string) (domain.Account, error) {
	return s.Store.Accounts().GetAccountByID(ctx, accountID)
}
