package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"amora/internal/app/server/handlers"
	"amora/internal/config"
	"amora/internal/core/contracts"
	"amora/internal/core/services"
	"amora/pkg/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	mux         *http.ServeMux
	cfg         *config.Config
	log         *slog.Logger
	authHandler *handlers.AuthHandler
	msgHandler  *handlers.MessagesHandler
	wsHandler   *handlers.WSHandler
	tokenSvc    *services.TokenService
}

func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	userSvc *services.UserService,
	tokenSvc *services.TokenService,
	msgSvc *services.MessageService,
	hub *services.Hub,
	caster contracts.Broadcaster,
) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		cfg:         cfg,
		log:         log,
		authHandler: handlers.NewAuthHandler(userSvc, tokenSvc),
		msgHandler:  handlers.NewMessagesHandler(msgSvc),
		wsHandler:   handlers.NewWSHandler(caster, hub),
		tokenSvc:    tokenSvc,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)

	// Public routes
	s.mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	s.mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Protected routes
	s.mux.Handle("/ws", auth(http.HandlerFunc(s.wsHandler.Handler)))
	s.mux.Handle("POST /messages", auth(http.HandlerFunc(s.msgHandler.Create)))
	s.mux.Handle("GET /messages", auth(http.HandlerFunc(s.msgHandler.List)))
	s.mux.Handle("GET /messages/thread/{username}", auth(http.HandlerFunc(s.msgHandler.Thread)))
	s.mux.Handle("DELETE /messages/{id}", auth(http.HandlerFunc(s.msgHandler.Delete)))
}

func (s *Server) Start(ctx context.Context) error {
	handler := middleware.Recover(s.log, s.cfg.Development())(
		middleware.RequestLogger(s.log)(
			middleware.TracerMiddleware(s.cfg.Service.Name)(s.mux),
		),
	)
	server := &http.Server{
		Addr:        s.cfg.Service.Addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket sessions outlive any sane value.
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("server starting", "addr", s.cfg.Service.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
