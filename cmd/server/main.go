package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/dual-auth/config"
	"github.com/ErlanBelekov/dual-auth/internal/email"
	"github.com/ErlanBelekov/dual-auth/internal/health"
	"github.com/ErlanBelekov/dual-auth/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/dual-auth/internal/log"
	"github.com/ErlanBelekov/dual-auth/internal/metrics"
	"github.com/ErlanBelekov/dual-auth/internal/password"
	"github.com/ErlanBelekov/dual-auth/internal/session"
	"github.com/ErlanBelekov/dual-auth/internal/token"
	httptransport "github.com/ErlanBelekov/dual-auth/internal/transport/http"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/middleware"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/view"
	"github.com/ErlanBelekov/dual-auth/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const sessionKeyPrefix = "session:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		stop()
		log.Fatalf("db schema: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		stop()
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Users
	userRepo := postgres.NewUserRepository(pool)

	// Tokens
	codec, err := token.NewCodec([]byte(cfg.JWTSecret))
	if err != nil {
		stop()
		log.Fatalf("token codec: %v", err)
	}
	verifier := token.NewVerifier(codec, userRepo)

	// Sessions
	sessions := session.NewStore(rdb, sessionKeyPrefix, cfg.SessionTTL)

	authUsecase := usecase.NewAuthUsecase(
		userRepo,
		password.NewHasher(bcrypt.DefaultCost),
		token.NewIssuer(codec),
		verifier,
		email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.MailFrom, logger),
		logger,
	)

	tmpl, err := view.Load()
	if err != nil {
		stop()
		log.Fatalf("templates: %v", err)
	}

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{
		"postgres": pool,
		"redis":    sessions,
	}, logger, prometheus.DefaultRegisterer)

	router := httptransport.NewRouter(logger,
		httptransport.RouterConfig{
			Sessions: sessions,
			Cookie: middleware.CookieConfig{
				Name:   cfg.SessionCookie,
				Secure: cfg.SecureCookies(),
			},
			Templates: tmpl,
			HSTS:      cfg.SecureCookies(),
		},
		middleware.NewGate(verifier, userRepo, logger),
		httptransport.Handlers{
			Session:   handler.NewSessionHandler(authUsecase, logger),
			User:      handler.NewUserHandler(authUsecase, logger),
			Dashboard: handler.NewDashboardHandler(authUsecase, logger),
		},
	)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
