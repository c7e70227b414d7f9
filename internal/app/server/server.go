package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"lookout/internal/app/registry"
	"lookout/internal/app/server/handlers"
	"lookout/internal/core/services"
	"lookout/pkg/middleware"
)

type Server struct {
	mux        *http.ServeMux
	addr       string
	name       string
	log        *slog.Logger
	wsHandler  *handlers.WSHandler
	apiHandler *handlers.APIHandler
	tokenSvc   *services.TokenService
	httpSrv    *http.Server
}

func NewServer(
	log *slog.Logger,
	name string,
	addr string,
	heartbeat time.Duration,
	tokenSvc *services.TokenService,
	managerSvc *services.ManagerService,
	notificationSvc *services.NotificationService,
	hub *registry.Registry,
) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		addr:       addr,
		name:       name,
		log:        log,
		wsHandler:  handlers.NewWSHandler(hub, managerSvc, heartbeat),
		apiHandler: handlers.NewAPIHandler(managerSvc, notificationSvc),
		tokenSvc:   tokenSvc,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)

	// Public
	s.mux.HandleFunc("GET /healthz", s.apiHandler.Health)

	// Protected
	s.mux.Handle("/ws", auth(http.HandlerFunc(s.wsHandler.Handler)))
	s.mux.Handle("POST /events", auth(http.HandlerFunc(s.apiHandler.Events)))
	s.mux.Handle("GET /presence/status", auth(http.HandlerFunc(s.apiHandler.PresenceStatus)))
	s.mux.Handle("GET /notifications", auth(http.HandlerFunc(s.apiHandler.Inbox)))
}

func (s *Server) Start() error {
	handler := middleware.TracerMiddleware(s.name)(
		middleware.RequestLogger(s.log)(s.mux),
	)
	s.httpSrv = &http.Server{
		Addr:        s.addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket connections outlive any sane value.
	}
	s.log.Info("server - starting", "addr", s.addr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
