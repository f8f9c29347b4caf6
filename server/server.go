package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"weather-server/auth"
	"weather-server/cache"
	"weather-server/confs"
	"weather-server/db"
	"weather-server/entities"
	"weather-server/handlers"
	httpHandler "weather-server/handlers/http"
	"weather-server/repositories"
	"weather-server/usecases"
	"weather-server/ws"
)

const shutdownTimeout = 10 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	app    *gin.Engine
	cfg    confs.Config
	db     db.Database
	logger *slog.Logger

	readings *usecases.ReadingUseCase
	auth     *auth.Service
	feed     *ws.Manager
}

// NewServer wires repositories, use cases and routes. store may be nil.
func NewServer(cfg confs.Config, database db.Database, store cache.Store, logger *slog.Logger) *Server {
	if cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	feed := ws.NewManager(logger)
	readingRepo := repositories.NewReadingPgRepository(database)
	userRepo := repositories.NewUserPgRepository(database)

	s := &Server{
		app:      gin.New(),
		cfg:      cfg,
		db:       database,
		logger:   logger,
		readings: usecases.NewReadingUseCase(readingRepo, store, feed, logger),
		auth:     auth.NewService(userRepo, cfg.JWTSecret, cfg.JWTTTL),
		feed:     feed,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(gin.Recovery())
	s.app.Use(httpHandler.RequestLogger(s.logger))

	// Setup CORS middleware
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	s.app.Use(cors.New(config))

	s.app.NoRoute(httpHandler.NotFound)
	s.app.GET("/health", s.health)

	requireAuth := httpHandler.RequireAuth(s.auth)
	loginHandler := httpHandler.NewLoginHandler(s.auth, s.logger)
	feedHandler := handlers.NewFeedHandler(s.feed, s.logger)
	cacheHandler := handlers.NewCacheHandler(s.readings, s.logger)

	s.app.POST("/auth", loginHandler.Login)

	weather := s.app.Group("/weather")
	{
		// Open readings: anyone reads, writes need a token
		for _, kind := range entities.Kinds() {
			h := httpHandler.NewReadingHandler(s.readings, kind, entities.Open, s.logger)
			open := weather.Group("/" + kind.Plural())
			open.GET("", h.List)
			open.GET("/:id", h.Get)
			open.POST("", requireAuth, h.Create)
			open.PUT("/:id", requireAuth, h.Update)
			open.DELETE("/:id", requireAuth, h.Delete)
		}

		// Protected readings: every operation needs a token
		protected := weather.Group("/protected", requireAuth)
		for _, kind := range entities.Kinds() {
			h := httpHandler.NewReadingHandler(s.readings, kind, entities.Protected, s.logger)
			g := protected.Group("/" + kind.String())
			g.GET("", h.List)
			g.GET("/:id", h.Get)
			g.POST("", h.Create)
			g.PUT("/:id", h.Update)
			g.DELETE("/:id", h.Delete)
		}

		// Public projection of the protected readings, read-only
		public := weather.Group("/public")
		for _, kind := range entities.Kinds() {
			h := httpHandler.NewPublicReadingHandler(s.readings, kind, s.logger)
			g := public.Group("/" + kind.String())
			g.GET("", h.List)
			g.GET("/:id", h.Get)
		}
		public.GET("/stream", feedHandler.Stream)
		public.GET("/stream/subscribers", feedHandler.Subscribers)

		admin := weather.Group("/admin", requireAuth)
		admin.GET("/cache/stats", cacheHandler.GetCacheStats)
	}
}

func (s *Server) health(c *gin.Context) {
	if p, ok := s.db.(pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			s.logger.Error("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.app }

func (s *Server) Readings() *usecases.ReadingUseCase { return s.readings }

func (s *Server) Auth() *auth.Service { return s.auth }

// Start serves on cfg.HTTPAddr until ctx is cancelled, then shuts down
// gracefully and disconnects feed subscribers.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	s.feed.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
