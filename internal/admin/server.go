package admin

// ADMIN HTTP API

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"vidoma-bot/internal/config"
	"vidoma-bot/internal/storage"
)

// BotController is the slice of the bot the admin API drives.
type BotController interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
	NotifyOrderStatus(ctx context.Context, chatID int64, crmOrderID, status string) error
}

type Server struct {
	httpServer *http.Server
	storage    *storage.PostgresStorage
	bot        BotController
	cfg        config.AdminConfig
	logger     *zap.Logger

	// botCtx is the long-lived context bot restarts attach to.
	botCtx context.Context
}

func NewServer(
	botCtx context.Context,
	cfg config.AdminConfig,
	store *storage.PostgresStorage,
	bot BotController,
	logger *zap.Logger,
) *Server {
	s := &Server{
		storage: store,
		bot:     bot,
		cfg:     cfg,
		logger:  logger,
		botCtx:  botCtx,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.logRequests)

	router.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.listCategories)
			r.Get("/{id}", s.getCategory)
			r.Post("/", s.createCategory)
			r.Put("/{id}", s.updateCategory)
			r.Delete("/{id}", s.deleteCategory)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/{id}", s.getProduct)
			r.Post("/", s.createProduct)
			r.Put("/{id}", s.updateProduct)
			r.Delete("/{id}", s.deleteProduct)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.getSettings)
			r.Put("/", s.putSettings)
		})

		r.Route("/bot", func(r chi.Router) {
			r.Get("/status", s.botStatus)
			r.Post("/start", s.botStart)
			r.Post("/stop", s.botStop)
		})

		r.Route("/backup", func(r chi.Router) {
			r.Post("/", s.generateBackup)
			r.Post("/restore", s.restoreBackup)
		})

		r.Get("/orders/export", s.exportOrders)
	})

	// The CRM calls the webhook with the shared token as a query parameter;
	// it cannot set headers.
	router.Post("/webhooks/crm", s.crmWebhook)

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Admin API listening",
			zap.String("addr", s.cfg.ListenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Admin request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if token == "" {
			const prefix = "Bearer "
			if auth := r.Header.Get("Authorization"); len(auth) > len(prefix) {
				token = auth[len(prefix):]
			}
		}
		if token != s.cfg.Token {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
