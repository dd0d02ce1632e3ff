package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"order-orchestrator/internal/api"
	"order-orchestrator/internal/clientauth"
	"order-orchestrator/internal/clients"
	"order-orchestrator/internal/config"
	"order-orchestrator/internal/idempotency"
	"order-orchestrator/internal/logger"
	"order-orchestrator/internal/orchestrator"
	"order-orchestrator/internal/outbox"
	"order-orchestrator/internal/store"
	"order-orchestrator/internal/store/migrations"
	"order-orchestrator/internal/ticketing"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New("logs")
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.ConnectionString))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to connect to Postgres: %v", err))
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.Up(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to run migrations: %v", err))
	}
	defer runner.Close()

	st := store.NewBunStore(bunDB)

	// --- Redis setup (idempotency lock + m2m token cache) ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("failed to connect to Redis: %v", err))
	}
	defer redisClient.Close()

	idemLock := idempotency.NewLock(redisClient, 10*time.Second)

	// --- Outbound service clients ---
	httpClient := &http.Client{Timeout: cfg.Services.ClientTimeout}
	tokens := clientauth.NewSource(cfg.Auth.TokenURL, cfg.Auth.ClientID, cfg.Auth.ClientSecret, httpClient, redisClient, log)

	catalog := clients.NewHTTPCatalog(cfg.Services.CatalogURL, httpClient, tokens)
	seating := clients.NewHTTPSeating(cfg.Services.SeatingURL, httpClient, tokens)
	payment := clients.NewStripePayment(os.Getenv("STRIPE_SECRET_KEY"), os.Getenv("STRIPE_CURRENCY"))
	notification := clients.NewKafkaNotification(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer notification.Close()

	qr := ticketing.NewQRGenerator(cfg.Ticketing.QRSecret)

	orch := orchestrator.New(st, catalog, seating, payment, qr, idemLock, log, orchestrator.Config{
		ReservationTTLSeconds: cfg.Seat.ReservationTTLSeconds,
		TaxRate:               cfg.Tax.Rate,
	})

	// --- Outbox dispatcher ---
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	dispatcher := outbox.NewDispatcher(st, notification, log, cfg.Outbox.DispatchInterval)
	go dispatcher.Run(dispatcherCtx)
	defer cancelDispatcher()

	// --- HTTP server ---
	ready := func() error {
		return sqldb.Ping()
	}
	handler := api.NewRouter(orch, st, log, ready)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("order service listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "shutdown signal received, cleaning up")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cancelDispatcher()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("SERVER", fmt.Sprintf("server forced to shutdown: %v", err))
	}
	log.Info("SERVER", "server exited gracefully")
}
