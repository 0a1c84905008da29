package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/blong711/Proxy-Manager/internal/app"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	service, errNew := app.New(*configPath)
	if errNew != nil {
		log.WithError(errNew).Fatal("startup failed")
	}
	if *migrateOnly {
		log.Info("migrations applied")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := service.Run(ctx); errRun != nil {
		log.WithError(errRun).Fatal("server exited")
	}
}
