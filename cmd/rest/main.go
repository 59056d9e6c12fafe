package main

import (
	"context"
	"log"

	"projecthub-be/internal/bootstrap"
	"projecthub-be/internal/config"
	"projecthub-be/internal/server"
	"projecthub-be/internal/tracer"
	"projecthub-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	// The invalidation consumer bridges REST content writes to the hub.
	go func() {
		log.Println("Background: Starting Invalidation Consumer...")
		if err := container.InvalidationConsumer.Consume(context.Background()); err != nil {
			log.Printf("Background Invalidation Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
