package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ignite/lgl-sync/internal/app"
	"github.com/ignite/lgl-sync/internal/config"
	"github.com/ignite/lgl-sync/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.Close()

	var wg sync.WaitGroup

	if cfg.Queue.Enabled && cfg.Sync.Enabled {
		consumer, err := a.OrderConsumer(ctx)
		if err != nil {
			log.Fatalf("Failed to create order consumer: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(ctx)
		}()
		log.Printf("Order consumer started (queue=%s)", cfg.Queue.OrderQueueURL)
	}

	if cfg.Renewal.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Job.Start(ctx)
		}()
		log.Printf("Renewal job started (every %s)", cfg.Renewal.Interval())

		cleanup := worker.NewStateCleanupWorker(a.DB)
		wg.Add(1)
		go func() {
			defer wg.Done()
			cleanup.Start(ctx)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()
	wg.Wait()
	log.Println("Worker stopped")
}
