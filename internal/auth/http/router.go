package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/pkg/httpx"
	"github.com/courtsidehq/courtside/pkg/slogx"

	_ "github.com/courtsidehq/courtside/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	resultURL    string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	limiter        ratelimit.Limiter
	AuthService    *service.AuthService
	SessionService *service.SessionService
	UserService    *service.UserService
}

func NewRouter(
	buildVersion, resultURL string,
	st store.Store,
	limiter ratelimit.Limiter,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		resultURL:    resultURL,
		startTime:    time.Now(),
		store:        st,
		limiter:      limiter,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Courtside Authentication Service API
//	@version		0.1.0
//	@description	Account registration, login, email verification, and password
//	@description	management for the Courtside event platform. Sessions are
//	@description	HS256 JWTs that stop verifying after a password change.
//
//	@contact.name				Courtside Team
//	@contact.url				https://github.com/courtsidehq/courtside
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session JWT. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /register - strict transport limit by IP on top of the flow's
	// own register preset
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(&RegisterHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /login - strict limit; the flow limiter underneath tracks
	// email+IP with lockout escalation
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /verify-email - browser-facing link target, moderate limit
	r.Mux.Handle("GET /v1/auth/verify-email",
		httpx.Chain(&VerifyEmailHandler{AuthService: r.AuthService, ResultURL: r.resultURL},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /forgot-password - strict limit (sends email)
	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(&ForgotPasswordHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /reset-password - strict limit by IP (anonymous caller)
	r.Mux.Handle("POST /v1/auth/reset-password",
		httpx.Chain(&ResetPasswordHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /change-password - authenticated, moderate limit by user
	r.Mux.Handle("POST /v1/auth/change-password",
		httpx.Chain(&ChangePasswordHandler{AuthService: r.AuthService},
			httpx.AuthnMiddleware(r.SessionService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		UserService: r.UserService,
		Limiter:     r.limiter,
	}

	authn := httpx.AuthnMiddleware(r.SessionService)

	r.Mux.Handle("GET /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.limiter),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
