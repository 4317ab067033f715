// Package server exposes the session lifecycle over HTTP. Handlers are thin:
// they decode, delegate to the services and encode, with auth decisions made
// in middleware.
package server

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"session-control-plane/internal/device"
	"session-control-plane/internal/policy"
	"session-control-plane/internal/session/domain"
	"session-control-plane/internal/session/service"
	userdomain "session-control-plane/internal/user/domain"
)

// SessionService is the session manager surface the handlers call.
type SessionService interface {
	ResolveUser(ctx context.Context, provider, providerID, name, email string) (*userdomain.User, error)
	Issue(ctx context.Context, user *userdomain.User, dev device.Info) (*service.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string, meta service.RequestMeta) (*service.TokenPair, error)
	Terminate(ctx context.Context, refreshToken string)
	ListActive(ctx context.Context, userID string) ([]domain.Summary, error)
	TerminateDevice(ctx context.Context, userID, deviceID string) error
	TerminateAll(ctx context.Context, userID, exceptDeviceID string) error
}

// PolicyService is the policy engine surface the handlers call.
type PolicyService interface {
	DetectSuspiciousActivity(ctx context.Context, userID string) bool
	ForceLogout(ctx context.Context, userID, reason string) error
	SecurityStats(ctx context.Context) *policy.SecurityStats
}

// AccessVerifier checks bearer access tokens for the auth middleware.
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

// Server wires the HTTP surface to the services.
type Server struct {
	sessions SessionService
	policy   PolicyService
	verifier AccessVerifier

	corsOrigin     string
	internalSecret string
}

// New returns a Server. An empty internalSecret disables the gateway-only routes.
func New(sessions SessionService, pol PolicyService, verifier AccessVerifier, corsOrigin, internalSecret string) *Server {
	return &Server{
		sessions:       sessions,
		policy:         pol,
		verifier:       verifier,
		corsOrigin:     corsOrigin,
		internalSecret: internalSecret,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/api/sessions/rotate", s.handleRotate)
	r.Post("/api/sessions/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAccessToken)
		r.Get("/api/sessions", s.handleListSessions)
		r.Delete("/api/sessions", s.handleTerminateAll)
		r.Delete("/api/sessions/devices/{deviceID}", s.handleTerminateDevice)
		r.Get("/api/users/{userID}/suspicious", s.handleSuspicious)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.internalOnly)
		r.Post("/internal/sessions/issue", s.handleIssue)
		r.Post("/internal/users/{userID}/force-logout", s.handleForceLogout)
		r.Get("/internal/security/stats", s.handleSecurityStats)
	})

	return r
}
