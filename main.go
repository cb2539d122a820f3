package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/km-arc/portal-runtime/app"
	kernel "github.com/km-arc/portal-runtime/framework/app"
	"github.com/km-arc/portal-runtime/framework/config"
)

func main() {
	cfg := config.Load() // loads .env automatically
	application := kernel.New(cfg, kernel.WithInitialState(app.InitialState()))
	log := application.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Portal modules ───────────────────────────────────────────────────────

	for _, p := range app.Providers() {
		if err := application.Register(ctx, p); err != nil {
			log.WithError(err).Fatal("register provider")
		}
	}
	application.Use(app.Middleware(cfg)...)
	application.Startup(app.Modules...)

	if err := application.Boot(ctx); err != nil {
		log.WithError(err).Fatal("boot")
	}
	log.WithField("env", cfg.App.Env).Infof("%s runtime ready", cfg.App.Name)

	// ── SIGHUP reloads, SIGINT/SIGTERM shut down ─────────────────────────────

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			if err := application.Reload(ctx); err != nil {
				log.WithError(err).Error("reload failed")
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := application.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Error("shutdown")
			}
			cancel()
			return
		}
	}
}
