// Sweeper runs the session policy sweeps without serving HTTP. By default it
// runs every sweep once and exits, which suits an external cron; with -loop it
// stays up on the configured intervals.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"session-control-plane/internal/audit"
	auditrepo "session-control-plane/internal/audit/repository"
	"session-control-plane/internal/config"
	"session-control-plane/internal/db"
	"session-control-plane/internal/policy"
	"session-control-plane/internal/scheduler"
	sessionrepo "session-control-plane/internal/session/repository"
)

func main() {
	loop := flag.Bool("loop", false, "keep running on the configured intervals instead of sweeping once")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("sweeper: DATABASE_URL is required")
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	sessions := sessionrepo.NewPostgresRepository(pool)
	recorder := audit.NewLogger(auditrepo.NewPostgresRepository(pool))
	engine := policy.NewEngine(sessions, recorder, cfg.MaxDevicesPerUser, cfg.MaxIdleAge())

	ctx := context.Background()
	if !*loop {
		engine.SweepExpired(ctx)
		engine.SweepIdle(ctx)
		engine.EnforceDeviceLimit(ctx)
		return
	}

	runner := scheduler.NewRunner(
		scheduler.Job{Name: "expired-sweep", Every: cfg.ExpiredSweepEvery(), Run: engine.SweepExpired},
		scheduler.Job{Name: "idle-sweep", Every: cfg.IdleSweepEvery(), Run: engine.SweepIdle},
		scheduler.Job{Name: "device-limit", Every: cfg.DeviceLimitEvery(), Run: engine.EnforceDeviceLimit},
	)
	runner.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("sweeper: shutting down...")
	runner.Stop()
	log.Println("sweeper: stopped")
}
