package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HA0N1/pre-onboarding/internal/audit"
	"github.com/HA0N1/pre-onboarding/internal/config"
	"github.com/HA0N1/pre-onboarding/internal/hash"
	"github.com/HA0N1/pre-onboarding/internal/httpserver"
	"github.com/HA0N1/pre-onboarding/internal/logging"
	"github.com/HA0N1/pre-onboarding/internal/middleware"
	"github.com/HA0N1/pre-onboarding/internal/mykafka"
	"github.com/HA0N1/pre-onboarding/internal/repo"
	"github.com/HA0N1/pre-onboarding/internal/service"
	"github.com/HA0N1/pre-onboarding/internal/tokens"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(requestLogger(logger))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := mykafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	var recorder *audit.Recorder
	if cfg.ESURL != "" {
		recorder, err = audit.NewRecorder(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("audit init error: %v", err)
		}
	}

	userRepo := repo.GormRepo{DB: db}
	verifier := tokens.Verifier{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
	}

	authHTTP := &httpserver.AuthHTTP{
		Svc: &service.AuthService{
			Repo:   userRepo,
			Hasher: hash.New(cfg.BcryptCost),
			Issuer: tokens.Issuer{
				AccessSecret:  cfg.AccessSecret,
				RefreshSecret: cfg.RefreshSecret,
				AccessTTL:     cfg.AccessTTL,
				RefreshTTL:    cfg.RefreshTTL,
			},
			Verifier: verifier,
			Producer: producer,
			Audit:    recorder,
		},
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: authHTTP,
		Gate:        middleware.NewAuthGate(verifier, userRepo),
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}

// requestLogger puts the process logger into each request context so the
// service layer can pick it up with logging.FromContext.
func requestLogger(l *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logging.IntoContext(req.Context(), l)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
