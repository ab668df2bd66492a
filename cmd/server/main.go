package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	specpkg "github.com/bandhub/bandhub/api"
	"github.com/bandhub/bandhub/internal/admin"
	"github.com/bandhub/bandhub/internal/ai"
	"github.com/bandhub/bandhub/internal/api"
	"github.com/bandhub/bandhub/internal/api/handler"
	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/band"
	"github.com/bandhub/bandhub/internal/collectible"
	"github.com/bandhub/bandhub/internal/config"
	"github.com/bandhub/bandhub/internal/course"
	"github.com/bandhub/bandhub/internal/database"
	"github.com/bandhub/bandhub/internal/matchmaking"
	"github.com/bandhub/bandhub/internal/quota"
	"github.com/bandhub/bandhub/internal/scheduler"
	"github.com/bandhub/bandhub/internal/settlement"
	"github.com/bandhub/bandhub/internal/stellar"
	"github.com/bandhub/bandhub/internal/support"
	"github.com/bandhub/bandhub/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx := context.Background()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("database migrations applied")
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	pool := db.Pool()

	var (
		limiter     quota.Limiter
		cachePinger handler.Pinger
	)
	if cfg.RedisURL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		limiter = quota.NewRedisLimiter(rdb)
		cachePinger = redisPinger{rdb}
	} else {
		slog.Warn("REDIS_URL not set; generation quotas are kept in memory")
		limiter = quota.NewMemoryLimiter(time.Now)
	}

	var generator ai.Generator = ai.Disabled{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		generator = gemini
	} else {
		slog.Warn("GEMINI_API_KEY not set; AI features are disabled")
	}

	userRepo := auth.NewRepository(pool)
	bandRepo := band.NewRepository(pool)
	profileRepo := matchmaking.NewProfileRepository(pool)
	collectibleRepo := collectible.NewRepository(pool)
	courseRepo := course.NewRepository(pool)

	authService := auth.NewService(userRepo, cfg.BcryptCost, []byte(cfg.JWTSecret), cfg.SessionTTL)
	if _, err := authService.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		slog.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	horizon := stellar.NewClient(cfg.StellarHorizonURL)
	vaultService := vault.NewService(vault.NewRepository(pool), bandRepo, horizon, cfg.StellarAssetCode, cfg.StellarAssetIssuer)

	rewards, err := scheduler.New(cfg.RewardSchedule, vaultService)
	if err != nil {
		slog.Error("invalid reward schedule", "error", err)
		os.Exit(1)
	}
	settler := settlement.New(vaultService, horizon, time.Duration(cfg.SettlementInterval)*time.Second)

	router := api.NewRouter(api.RouterDeps{
		DBPinger:      db,
		CachePinger:   cachePinger,
		Version:       cfg.Version,
		OpenAPISpec:   specpkg.OpenAPISpec,
		AuthService:   authService,
		UserRepo:      userRepo,
		SessionCookie: handler.CookieConfig{Name: cfg.SessionCookie, Secure: cfg.CookieSecure},
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,

		BandRepo:       bandRepo,
		ProfileRepo:    profileRepo,
		InvitationRepo: matchmaking.NewInvitationRepository(pool),
		MessageRepo:    matchmaking.NewMessageRepository(pool),

		CollectibleService: collectible.NewService(generator, limiter, cfg.CollectibleDailyLimit),
		CollectibleRepo:    collectibleRepo,
		CourseService:      course.NewService(generator, limiter, cfg.CourseDailyLimit),
		CourseRepo:         courseRepo,
		SupportService:     support.NewService(support.NewRepository(pool), generator),
		VaultService:       vaultService,
		StatsRepo:          admin.NewStatsRepository(pool),
	})

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		settler.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		rewards.Start(workerCtx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting BandHub server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		cancelWorkers()
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	cancelWorkers()
	workers.Wait()

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// redisPinger adapts a redis client to handler.Pinger.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
