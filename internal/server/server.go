// Package server wires the application together and runs the HTTP server.
//
// New is the composition root: it opens the database, resolves the Firebase
// project, builds the services and handlers, and mounts the routes. Nothing
// else in the codebase constructs a dependency for another package.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/auth"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/cache"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/config"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/handler"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/middleware"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
	sqliteRepo "github.com/anuj-sharma9/SpendingInsights-WebApp/internal/repository/sqlite"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/service"
)

// Server owns the router and the database pool. The pool is closed when
// Start returns.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	verifier *auth.Verifier
}

// New builds a Server from cfg. It opens (and migrates) the database, so
// callers must eventually call Start or Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	projectID, err := auth.ResolveProjectID(ctx, cfg.ProjectSource())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("resolving Firebase project: %w", err)
	}
	if projectID == "" {
		logger.Warn("Firebase project not configured; authenticated requests will fail with 500",
			slog.String("hint", "set FIREBASE_PROJECT_ID or FIREBASE_SERVICE_ACCOUNT_JSON/PATH"),
		)
	} else {
		logger.Info("Firebase token verification enabled", slog.String("project", projectID))
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		verifier: auth.NewVerifier(projectID, auth.NewKeySet(cfg.FirebaseJWKSURL, nil)),
	}
	s.setupRoutes()

	return s, nil
}

// OpenDB creates the database's parent directory if needed, then opens the
// database and applies migrations.
func OpenDB(dbPath string) (*sqliteRepo.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// setupRoutes mounts middleware and handlers.
//
// ROUTES:
//
//	GET  /health          → liveness, no auth
//	POST /users/register  → identity read from the token when present
//	GET  /spending        → auth required
//	POST /spending        → auth required
//	GET  /insights        → auth required
//
// MIDDLEWARE ORDER (outermost first):
//  1. RequestID: every later log line can carry the ID
//  2. RealIP: the logger sees the client address, not the proxy's
//  3. Logger: times the whole request including CORS and auth
//  4. Recoverer: a panicking handler becomes a 500
//  5. CORS: answers OPTIONS before auth can reject it
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(middleware.DefaultCORSOptions()))

	insights := cache.NewVersioned[model.InsightsSnapshot]()
	userService := service.NewUserService(s.db.Users(), s.logger)
	spendingService := service.NewSpendingService(s.db.Transactions(), insights, s.logger)

	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	spendingHandler := handler.NewSpendingHandler(spendingService, s.logger)

	s.router.Get("/health", healthHandler.HandleHealth)

	s.router.With(auth.IdentifyIfPresent(s.verifier, s.logger)).
		Post("/users/register", userHandler.HandleRegister)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.verifier, s.logger))
		r.Get("/spending", spendingHandler.HandleList)
		r.Post("/spending", spendingHandler.HandleCreate)
		r.Get("/insights", spendingHandler.HandleInsights)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database without serving.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until ctx is cancelled or the listener fails.
//
// On cancellation it stops accepting connections, gives in-flight requests
// up to the configured shutdown timeout, then closes the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.String("port", s.config.Port),
			slog.String("url", "http://localhost:"+s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", slog.Duration("timeout", s.config.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
