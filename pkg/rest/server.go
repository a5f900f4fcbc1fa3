// Package rest exposes the store and the broker bridge over HTTP, and hosts
// the WebSocket fan-out endpoint.
package rest

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/bridge"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/httputil"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/httputil/middleware"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/store"
	"github.com/Sudhakarkrish2002/task-1-backend/pkg/ws"
)

// ownerHeader carries the caller-supplied owner identifier. Ownership checks
// are plain string comparisons against it; there is no authentication.
const ownerHeader = "X-Owner-Id"

type Server struct {
	router     *httputil.Router
	logger     *zap.Logger
	broker     bridge.Broker
	hub        *ws.Hub
	store      *store.Store
	dashboards *store.DashboardService
	tokens     *store.TokenService
}

func NewServer(
	logger *zap.Logger,
	broker bridge.Broker,
	hub *ws.Hub,
	st *store.Store,
	dashboards *store.DashboardService,
	tokens *store.TokenService,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router: httputil.NewRouter(httputil.WithServerOptions(func(srv *http.Server) {
			srv.ReadHeaderTimeout = 5 * time.Second
		})),
		logger:     logger,
		broker:     broker,
		hub:        hub,
		store:      st,
		dashboards: dashboards,
		tokens:     tokens,
	}
	s.registerHandlers()
	return s
}

func (s *Server) registerHandlers() {
	s.router.Use(
		middleware.RequestID,
		middleware.LoggerWithOptions(&middleware.LoggerOptions{Logger: s.logger}),
		middleware.CORSWithOptions(nil),
	)

	s.router.Handle("GET /healthz", http.HandlerFunc(s.handleHealthz))
	s.router.Handle("GET /ws", s.hub)

	api := s.router.Group("/api/v1")

	api.Handle("GET /broker/health", http.HandlerFunc(s.handleBrokerHealth))
	api.Handle("POST /broker/publish", http.HandlerFunc(s.handleBrokerPublish))
	api.Handle("POST /broker/subscribe", http.HandlerFunc(s.handleBrokerSubscribe))
	api.Handle("DELETE /broker/subscribe", http.HandlerFunc(s.handleBrokerUnsubscribe))
	api.Handle("GET /broker/messages", http.HandlerFunc(s.handleBrokerMessages))
	api.Handle("GET /broker/messages/{topic...}", http.HandlerFunc(s.handleBrokerMessage))

	api.Handle("POST /dashboards", http.HandlerFunc(s.handleDashboardCreate))
	api.Handle("GET /dashboards", http.HandlerFunc(s.handleDashboardList))
	api.Handle("GET /dashboards/{id}", http.HandlerFunc(s.handleDashboardGet))
	api.Handle("PUT /dashboards/{id}", http.HandlerFunc(s.handleDashboardUpdate))
	api.Handle("DELETE /dashboards/{id}", http.HandlerFunc(s.handleDashboardDelete))
	api.Handle("POST /dashboards/{id}/publish", http.HandlerFunc(s.handleDashboardPublish))
	api.Handle("DELETE /dashboards/{id}/publish", http.HandlerFunc(s.handleDashboardUnpublish))

	api.Handle("GET /shared/{shareableId}", http.HandlerFunc(s.handleSharedGet))
	api.Handle("POST /shared/{shareableId}/access", http.HandlerFunc(s.handleSharedAccess))

	api.Handle("POST /auth/forgot-password", http.HandlerFunc(s.handleForgotPassword))
	api.Handle("POST /auth/reset-password", http.HandlerFunc(s.handleResetPassword))

	api.Handle("POST /sessions", http.HandlerFunc(s.handleSessionCreate))
	api.Handle("GET /sessions/{id}", http.HandlerFunc(s.handleSessionGet))
	api.Handle("DELETE /sessions/{id}", http.HandlerFunc(s.handleSessionDelete))

	api.Handle("POST /devices", http.HandlerFunc(s.handleDeviceCreate))
	api.Handle("GET /devices", http.HandlerFunc(s.handleDeviceList))
	api.Handle("GET /devices/{id}", http.HandlerFunc(s.handleDeviceGet))
	api.Handle("DELETE /devices/{id}", http.HandlerFunc(s.handleDeviceDelete))
}

// ServeHTTP lets tests exercise the full route table without binding a port.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"broker": s.broker.Health(),
	})
}

// owner resolves the caller identifier from the header, falling back to the
// value carried in the request body.
func owner(r *http.Request, fromBody string) string {
	if v := r.Header.Get(ownerHeader); v != "" {
		return v
	}
	return fromBody
}
