package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/service"
	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/fairmarket/identity/pkg/httpx"
	"github.com/fairmarket/identity/pkg/jwtx"
	"github.com/fairmarket/identity/pkg/slogx"

	_ "github.com/fairmarket/identity/api/identity" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	AdminService   *service.AdminService
	SessionManager *service.SessionManager
	MFAService     *service.MFAService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerAdmins()
	r.registerMFA()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			FairMarket Identity Service API
//	@version		0.1.0
//	@description	Identity and authorization service for the FairMarket marketplace.
//	@description	Manages administrator role assignments across the admin and harmonized
//	@description	user stores, and issues EdDSA-signed JWT session tokens.
//
//	@contact.name				FairMarket Platform Team
//	@contact.url				https://github.com/fairmarket/identity
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
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	h := &SessionHandler{Sessions: r.SessionManager}

	// POST /session - strict rate limit by IP (authentication attempts)
	r.Mux.Handle("POST /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleSignIn),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// DELETE /session - moderate rate limit
	r.Mux.Handle("DELETE /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /session/refresh - moderate rate limit (token refresh)
	r.Mux.Handle("POST /v1/session/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /session - lenient rate limit (current session read)
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleCurrent),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAdmins() {
	h := &AdminsHandler{Admins: r.AdminService}

	// Reads need any active admin; mutations are gated inside the service
	// as well, but the route requires super admin up front so failed
	// attempts never reach the store.
	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		RequireRole(r.verifier, r.AdminService, domain.RoleModerator),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
	securedGet := httpx.Chain(http.HandlerFunc(h.HandleGet),
		RequireRole(r.verifier, r.AdminService, domain.RoleModerator),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
	securedStats := httpx.Chain(http.HandlerFunc(h.HandleStats),
		RequireRole(r.verifier, r.AdminService, domain.RoleModerator),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)

	securedCreate := httpx.Chain(http.HandlerFunc(h.HandleCreate),
		RequireRole(r.verifier, r.AdminService, domain.RoleSuperAdmin),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
	securedUpdateRole := httpx.Chain(http.HandlerFunc(h.HandleUpdateRole),
		RequireRole(r.verifier, r.AdminService, domain.RoleSuperAdmin),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
	securedSetActive := httpx.Chain(http.HandlerFunc(h.HandleSetActive),
		RequireRole(r.verifier, r.AdminService, domain.RoleSuperAdmin),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
	securedDelete := httpx.Chain(http.HandlerFunc(h.HandleDelete),
		RequireRole(r.verifier, r.AdminService, domain.RoleSuperAdmin),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/admins", securedList)
	r.Mux.Handle("GET /v1/admins/stats", securedStats)
	r.Mux.Handle("GET /v1/admins/{id}", securedGet)
	r.Mux.Handle("POST /v1/admins", securedCreate)
	r.Mux.Handle("PUT /v1/admins/{id}/role", securedUpdateRole)
	r.Mux.Handle("PUT /v1/admins/{id}/active", securedSetActive)
	r.Mux.Handle("DELETE /v1/admins/{id}", securedDelete)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFA: r.MFAService}

	secured := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			RequireRole(r.verifier, r.AdminService, domain.RoleModerator),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/mfa/enroll", secured(h.HandleEnroll))
	r.Mux.Handle("POST /v1/mfa/verify", secured(h.HandleVerify))
	r.Mux.Handle("POST /v1/mfa/disable", secured(h.HandleDisable))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
