package main

import (
	"context"
	"itinerary-route-service/internal/adapters/cache"
	"itinerary-route-service/internal/adapters/repositories"
	"itinerary-route-service/internal/adapters/routing"
	"itinerary-route-service/internal/api"
	"itinerary-route-service/internal/config"
	"itinerary-route-service/internal/platform/clock"
	"itinerary-route-service/internal/platform/db"
	"itinerary-route-service/internal/platform/obs"
	"itinerary-route-service/internal/ports"
	"itinerary-route-service/internal/services"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, Routes API) behind ports and starts the HTTP server.
func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.RoutesAPIKey == "" {
		log.Fatal("ROUTES_API_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	// Initialize schema and seed the place library on startup for local runs.
	if err := repositories.InitSchema(ctx, pool); err != nil {
		log.Fatal(err)
	}
	if _, err := os.Stat(cfg.SeedPath); err == nil {
		n, err := repositories.SeedPlacesFromJSON(ctx, pool, cfg.SeedPath)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("seeded places count=%d path=%s", n, cfg.SeedPath)
	}

	metrics := obs.NewMetrics()

	// The response cache is optional; without Redis every request reaches the API.
	var routeCache ports.RouteCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis unavailable, route cache disabled: addr=%s err=%v", cfg.RedisAddr, err)
		} else {
			routeCache = cache.NewRedisRouteCache(rdb, cfg.RouteCacheTTL)
		}
	}

	provider, err := routing.NewRoutesProvider(
		cfg.RoutesAPIKey,
		cfg.RoutesBaseURL,
		float64(cfg.RoutesRatePerSecond),
		routeCache,
		metrics,
	)
	if err != nil {
		log.Fatal(err)
	}

	clk := clock.RealClock{}
	optimizer := services.NewRouteOptimizer(
		provider,
		cache.NewSQLLegBaselineStore(pool),
		clk,
		cfg.RoutesTravelMode,
		metrics,
	)

	places := repositories.NewPgPlaceLibrary(pool)
	sessions := services.NewSessions(repositories.NewPgActivityRepository(pool), optimizer, places, clk)
	router := api.NewRouter(sessions, places, metrics)

	// Write timeout covers a full optimization including provider retries.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown failed: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
