package main // HTTP API entry point

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lessons-api/internal/config"
	"github.com/iliyamo/lessons-api/internal/database"
	"github.com/iliyamo/lessons-api/internal/handler"
	"github.com/iliyamo/lessons-api/internal/logging"
	"github.com/iliyamo/lessons-api/internal/middleware"
	"github.com/iliyamo/lessons-api/internal/queue"
	"github.com/iliyamo/lessons-api/internal/repository"
	"github.com/iliyamo/lessons-api/internal/router"
	"github.com/iliyamo/lessons-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional outside local runs
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, "lessons-api")

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := config.NewRedisClient(context.Background(), config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable: refresh tokens in mysql, cache and rate limit disabled", "err", err)
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	var refresh service.RefreshStore = repository.NewTokenRepo(db)
	var deny middleware.DenyChecker
	var revoker service.AccessRevoker
	if rdb != nil {
		if cfg.RefreshStore == "redis" {
			refresh = repository.NewRedisTokenStore(rdb, "rt", cfg.RefreshTTL())
		}
		denylist := repository.NewAccessDenylist(rdb)
		deny, revoker = denylist, denylist
	}

	authSvc := service.NewAuthService(users, refresh, revoker, service.TokenSettings{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
		BcryptCost: cfg.BcryptCost,
	}, log)
	recovery := service.NewRecoveryService(users, repository.NewPasswordResetRepo(db),
		queue.NewPublisher(config.AMQPURL(), log), authSvc, service.RecoverySettings{
			TTL:         cfg.ResetTTL(),
			Throttle:    cfg.ResetThrottle,
			FrontendURL: cfg.ResetFrontendURL,
		}, log)

	cacheCfg := config.LoadCacheConfig()
	var purger handler.Purger
	if rdb != nil {
		purger = middleware.NewCachePurger(cacheCfg, rdb)
	}

	e := router.New(log)
	authn := middleware.JWTAuth(cfg.JWTSecret, deny, log)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, recovery), authn,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterLessons(e, handler.NewLessonHandler(repository.NewLessonRepo(db), purger, log), authn,
		middleware.NewRedisCache(cacheCfg, rdb, handler.LessonScope, log))
	router.RegisterStudents(e, handler.NewStudentHandler(repository.NewStudentRepo(db), log), authn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdown(e, log)
}

func shutdown(e *echo.Echo, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "err", err)
		return
	}
	log.Info("server stopped cleanly")
}
