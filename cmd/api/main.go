package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Adi4512/careercounselor/cmd"
	"github.com/Adi4512/careercounselor/internal/api"
	"github.com/Adi4512/careercounselor/internal/auth"
	"github.com/Adi4512/careercounselor/internal/database"
	"github.com/Adi4512/careercounselor/internal/llm"
	"github.com/Adi4512/careercounselor/internal/quota"
)

type Config struct {
	Port        int    `env:"API_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"careercounselor.db"`
	RedisURL    string `env:"REDIS_URL" envDefault:""`

	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY" envDefault:""`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:""`
	ModelName         string `env:"MODEL_NAME" envDefault:""`
	PublicURL         string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	GuestMaxChats     int           `env:"GUEST_MAX_CHATS" envDefault:"5"`
	GuestSessionTTL   time.Duration `env:"GUEST_SESSION_TTL" envDefault:"24h"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"24h"`
	StreamIdleTimeout time.Duration `env:"STREAM_IDLE_TIMEOUT" envDefault:"45s"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID" envDefault:""`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET" envDefault:""`
	OAuthRedirectURL   string `env:"OAUTH_REDIRECT_URL" envDefault:""`
	SessionSecret      string `env:"SESSION_SECRET" envDefault:""`

	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

func createTracker(ctx context.Context, cfg Config) quota.Tracker {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		slog.Info("using redis guest quota tracker")
		return quota.NewRedisTracker(redis.NewClient(opts), cfg.GuestMaxChats, cfg.GuestSessionTTL)
	}

	tracker := quota.NewMemoryTracker(cfg.GuestMaxChats, cfg.GuestSessionTTL)
	go tracker.Run(ctx, cfg.SweepInterval)
	return tracker
}

func createProvider(cfg Config) llm.Provider {
	if cfg.OpenRouterAPIKey == "" {
		slog.Warn("no OPENROUTER_API_KEY configured, using mock completion provider")
		return llm.NewMock()
	}

	return llm.NewOpenRouter(llm.OpenRouterConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Model:   cfg.ModelName,
		Referer: cfg.PublicURL,
		AppName: "CareerCounselor",
	})
}

func createTitleGenerator(cfg Config, provider llm.Provider) *llm.TitleGenerator {
	if cfg.OpenRouterAPIKey == "" {
		return nil
	}

	titles, err := llm.NewTitleGenerator(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, provider.Model())
	if err != nil {
		slog.Warn("title generation unavailable", "error", err)
		return nil
	}
	return titles
}

func createServer(ctx context.Context, cfg Config, db *gorm.DB, tracker quota.Tracker, provider llm.Provider) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware)

	tokens := auth.NewTokenIssuer(cfg.SessionSecret, auth.DefaultSessionTTL)

	chatService := api.NewChatService(db, tracker, provider, createTitleGenerator(cfg, provider))
	chatService.SetIdleTimeout(cfg.StreamIdleTimeout)

	var authService *api.AuthService
	if cfg.GoogleClientID != "" {
		google, err := auth.NewGoogleVerifier(ctx, auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
		})
		if err != nil {
			log.Fatalf("could not configure google sign-in: %v", err)
		}
		authService = api.NewAuthService(db, google, tokens)
	} else {
		slog.Warn("no GOOGLE_CLIENT_ID configured, sign-in endpoints disabled")
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", api.RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

		chatService.AddGuestRoutes(r)
		if authService != nil {
			authService.AddRoutes(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens))
			chatService.AddRoutes(r)
			api.NewConversationService(db).AddRoutes(r)
			api.NewSettingsService(db).AddRoutes(r)
			if authService != nil {
				authService.AddUserRoutes(r)
			}
		})
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set")
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := createTracker(ctx, cfg)
	provider := createProvider(cfg)

	server := createServer(ctx, cfg, db, tracker, provider)

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		cancel()
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	slog.Info("server stopped")
}
