package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kickabout-app/kickabout/app"
	"github.com/kickabout-app/kickabout/common/config"
)

func main() {
	env := config.NewEnvLoader("KICKABOUT")
	configPath := env.GetString("CONFIG_PATH", "./config")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	go func() {
		if err := application.Start(); err != nil {
			log.Fatalf("Application error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := env.GetDuration("SHUTDOWN_TIMEOUT", 15*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	application.Stop(ctx)
}
