package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liamwears/reelwrapped/internal/config"
	"github.com/liamwears/reelwrapped/internal/database"
	"github.com/liamwears/reelwrapped/internal/handlers"
	"github.com/liamwears/reelwrapped/internal/middleware"
	"github.com/liamwears/reelwrapped/internal/services"
)

func main() {
	// Check for migrate command
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrations(len(os.Args) > 2 && os.Args[2] == "down")
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := log.New(os.Stdout, "[reelwrapped] ", log.LstdFlags|log.Lshortfile)
	logger.Printf("Starting ReelWrapped server in %s mode", cfg.Server.Env)

	ctx := context.Background()

	// Initialize database connection
	db, err := database.New(ctx, database.Config{
		URL: cfg.Database.URL,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       0,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize session store
	sessionStore := database.NewSessionStore(redisClient.Client, cfg.Session.TTL)

	// Initialize services
	userService := services.NewUserService(db.Pool)
	favoriteService := services.NewFavoriteService(db.Pool)
	tmdbService := services.NewTMDBService(services.TMDBConfig{
		APIKey:            cfg.TMDB.APIKey,
		BaseURL:           cfg.TMDB.BaseURL,
		ImageBaseURL:      cfg.TMDB.ImageBaseURL,
		Timeout:           cfg.Search.UpstreamTimeout,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
	})
	omdbService := services.NewOMDBService(services.OMDBConfig{
		APIKey:  cfg.OMDB.APIKey,
		BaseURL: cfg.OMDB.BaseURL,
		Timeout: cfg.Search.UpstreamTimeout,
	})
	if !cfg.OMDBEnabled() {
		logger.Println("OMDB_KEY not set, ratings will come from TMDB only")
	}
	searchService := services.NewSearchService(tmdbService, omdbService, logger)
	searchService.SetDebug(cfg.Server.Debug)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(sessionStore, userService, "session", cfg.Session.SecretKey, cfg.IsProduction())
	searchQuota := middleware.NewQuotaLimiter(redisClient.Client, cfg.Search.QuotaPerMinute, time.Minute, cfg.Server.TrustProxy, logger)

	// Initialize renderer
	renderer, err := handlers.NewRenderer(logger)
	if err != nil {
		logger.Fatalf("Failed to initialize renderer: %v", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		userService,
		sessionStore,
		authMiddleware,
		renderer,
		handlers.AuthConfig{
			GoogleClientID:     cfg.OAuth.GoogleClientID,
			GoogleClientSecret: cfg.OAuth.GoogleClientSecret,
			GitHubClientID:     cfg.OAuth.GitHubClientID,
			GitHubClientSecret: cfg.OAuth.GitHubClientSecret,
			CallbackHost:       cfg.OAuth.CallbackHost,
		},
		logger,
	)
	pageHandler := handlers.NewPageHandler(searchService, favoriteService, renderer, logger)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService, logger)
	searchHandler := handlers.NewSearchHandler(searchService, logger)

	mux := http.NewServeMux()

	// Auth routes (public)
	mux.HandleFunc("GET /login", authHandler.LoginPage)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("GET /register", authHandler.RegisterPage)
	mux.HandleFunc("POST /register", authHandler.Register)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("GET /auth/github/login", authHandler.GitHubLogin)
	mux.HandleFunc("GET /auth/github/callback", authHandler.GitHubCallback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Page routes (protected)
	mux.HandleFunc("GET /{$}", pageHandler.Index)
	mux.Handle("GET /movies", authMiddleware.RequireAuth(searchQuota.Limit(http.HandlerFunc(pageHandler.Movies))))
	mux.Handle("GET /my_list", authMiddleware.RequireAuth(http.HandlerFunc(pageHandler.MyList)))
	mux.Handle("GET /wrapped", authMiddleware.RequireAuth(http.HandlerFunc(pageHandler.Wrapped)))

	// Favorite buttons (protected, JSON replies)
	mux.Handle("POST /add_favorite", authMiddleware.RequireAuthAPI(http.HandlerFunc(favoriteHandler.AddFavorite)))
	mux.Handle("POST /remove_favorite", authMiddleware.RequireAuthAPI(http.HandlerFunc(favoriteHandler.RemoveFavorite)))

	// JSON API
	mux.Handle("GET /api/search", authMiddleware.OptionalAuth(searchQuota.Limit(http.HandlerFunc(searchHandler.Search))))
	mux.HandleFunc("POST /api/register", authHandler.APIRegister)
	mux.HandleFunc("POST /api/login", authHandler.APILogin)
	mux.Handle("GET /api/favorites", authMiddleware.RequireAuthAPI(http.HandlerFunc(favoriteHandler.List)))
	mux.Handle("POST /api/favorites", authMiddleware.RequireAuthAPI(http.HandlerFunc(favoriteHandler.Create)))
	mux.Handle("DELETE /api/favorites/{id}", authMiddleware.RequireAuthAPI(http.HandlerFunc(favoriteHandler.Delete)))
	mux.Handle("GET /api/wrapped", authMiddleware.RequireAuthAPI(http.HandlerFunc(favoriteHandler.Wrapped)))

	// Serve static files
	mux.Handle("GET /static/", handlers.StaticHandler())

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "up", "redis": "up"}
		code := http.StatusOK

		if err := db.Health(r.Context()); err != nil {
			status["status"], status["database"] = "unhealthy", "down"
			code = http.StatusServiceUnavailable
		}
		if err := redisClient.Health(r.Context()); err != nil {
			status["status"], status["redis"] = "unhealthy", "down"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})

	// Wrap with logging middleware
	handler := middleware.Logger(logger)(mux)

	// Create HTTP server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Server forced to shutdown: %v", err)
	}

	logger.Println("Server exited")
}

// runMigrations applies (or with down, rolls back) the database migrations
func runMigrations(down bool) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := log.New(os.Stdout, "[reelwrapped] ", log.LstdFlags)
	ctx := context.Background()

	db, err := database.New(ctx, database.Config{URL: cfg.Database.URL}, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Pool, logger)

	if down {
		err = migrator.Down(ctx)
	} else {
		err = migrator.Up(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")
}
