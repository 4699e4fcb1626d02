package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/internal/capsule/session"
	"github.com/orinotech/timecapsule/internal/capsule/store"
	"github.com/orinotech/timecapsule/pkg/httpx"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store                store.Store
	sessions             *session.Registry
	AccountService       *service.AccountService
	PasswordResetService *service.PasswordResetService
	CapsuleService       *service.CapsuleService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	sessions *session.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		sessions:     sessions,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SessionMiddleware(sessions),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPasswordReset()
	r.registerCapsules()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	signupHandler := &SignupHandler{AccountService: r.AccountService}

	// POST /signup - strict rate limit by IP + email to slow both brute
	// force and bulk account creation
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(signupHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	// GET /verify/{token} - moderate: links arrive by email, retries are rare
	verifyHandler := &VerifyHandler{AccountService: r.AccountService}
	r.Mux.Handle("GET /v1/auth/verify/{token}",
		httpx.Chain(verifyHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /login - strict rate limit by IP + email against credential stuffing
	loginHandler := &LoginHandler{
		AccountService: r.AccountService,
		SessionTTL:     r.sessions.TTL(),
	}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	logoutHandler := &LogoutHandler{AccountService: r.AccountService}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	meHandler := &MeHandler{AccountService: r.AccountService}
	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(meHandler,
			httpx.RequireSession(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	forgotHandler := &ForgotPasswordHandler{PasswordResetService: r.PasswordResetService}

	// POST /password/forgot - strict: each request can send an email
	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(forgotHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	resetHandler := &ResetPasswordHandler{PasswordResetService: r.PasswordResetService}
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(resetHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerCapsules() {
	h := &CapsulesHandler{CapsuleService: r.CapsuleService}

	r.Mux.Handle("POST /v1/capsules/add",
		httpx.Chain(http.HandlerFunc(h.HandleAdd),
			httpx.RequireSession(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/capsules/",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.RequireSession(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Shared capsules are public: the share token is the only credential.
	r.Mux.Handle("GET /v1/capsules/{shareToken}",
		httpx.Chain(http.HandlerFunc(h.HandleShared),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
