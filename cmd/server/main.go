package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/soctel/oncall/internal/config"
	"github.com/soctel/oncall/router"
	"github.com/soctel/oncall/store"
)

func main() {
	log.Println("Starting on-call manager API...")

	// Load Config
	configPath := os.Getenv("ONCALL_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if tz := config.App.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("Invalid timezone %q: %v", tz, err)
		}
		time.Local = loc
	}

	st, err := store.Open(config.App.DataDir)
	if err != nil {
		log.Fatalf("Failed to open data dir %s: %v", config.App.DataDir, err)
	}
	log.Printf("  Data dir: %s", config.App.DataDir)

	// Redis is optional; without it the resolution cache is skipped.
	var rdb *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis unreachable, resolution cache disabled: %v", err)
			rdb = nil
		} else {
			log.Println("  Connected to Redis")
		}
	}

	engine, dispatcher := router.NewGinRouter(st, rdb)

	srv := &http.Server{
		Addr:    ":" + config.App.Port,
		Handler: engine,
	}

	go func() {
		log.Printf("Listening on :%s", config.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}

	// Let in-flight webhook deliveries finish before exiting.
	dispatcher.Wait()
	log.Println("Stopped")
}
