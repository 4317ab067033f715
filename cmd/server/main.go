package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-control-plane/internal/audit"
	auditrepo "session-control-plane/internal/audit/repository"
	"session-control-plane/internal/config"
	"session-control-plane/internal/db"
	"session-control-plane/internal/policy"
	"session-control-plane/internal/scheduler"
	"session-control-plane/internal/security"
	"session-control-plane/internal/server"
	sessionrepo "session-control-plane/internal/session/repository"
	"session-control-plane/internal/session/service"
	userrepo "session-control-plane/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	users := userrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)
	audits := auditrepo.NewPostgresRepository(pool)

	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewTokenHasher(cfg.BcryptCost)

	manager := service.NewManager(users, sessions, tokens, hasher)
	recorder := audit.NewLogger(audits)
	engine := policy.NewEngine(sessions, recorder, cfg.MaxDevicesPerUser, cfg.MaxIdleAge())

	runner := scheduler.NewRunner(
		scheduler.Job{Name: "expired-sweep", Every: cfg.ExpiredSweepEvery(), Run: engine.SweepExpired},
		scheduler.Job{Name: "idle-sweep", Every: cfg.IdleSweepEvery(), Run: engine.SweepIdle},
		scheduler.Job{Name: "device-limit", Every: cfg.DeviceLimitEvery(), Run: engine.EnforceDeviceLimit},
	)
	runner.Start(context.Background())
	defer runner.Stop()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.New(manager, engine, tokens, cfg.CORSAllowedOrigins, cfg.InternalSecret).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("http server stopped")
}
