package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	grpcapi "roomsync-backend/internal/api/grpc"
	httpapi "roomsync-backend/internal/api/http"
	"roomsync-backend/internal/cache"
	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/config"
	"roomsync-backend/internal/jobs"
	"roomsync-backend/internal/logger"
	"roomsync-backend/internal/realtime"
	"roomsync-backend/internal/relay"
	"roomsync-backend/internal/repository/postgres"
	"roomsync-backend/internal/scheduler"
	"roomsync-backend/internal/security"
	"roomsync-backend/internal/service"
	"roomsync-backend/migrations"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RoomSync Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "health_address", cfg.GetHealthAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Redis configuration", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if cfg.Database.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConns)
	}
	if cfg.Database.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdle)
	}

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.Migrate {
		if err := migrations.Apply(ctx, db); err != nil {
			logger.Error("Failed to apply migrations", "error", err)
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		logger.Info("Database migrations applied")
	}

	// Initialize Repositories
	clk := clock.NewSystem()
	store := postgres.NewStore(db, clk, cfg.Relay.Channel)

	// Initialize Cache
	redisClient := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Reads fall back to storage while the cache is down.
		logger.Warn("Redis unreachable at startup", "addr", cfg.Redis.Addr, "error", err)
	}
	kv := cache.NewRedisKV(redisClient)
	readCache := cache.New(kv, cfg.Cache.TTL, cfg.Cache.OpTimeout)
	invalidator := cache.NewInvalidator(kv, store.AccessRepository, cfg.Cache.OpTimeout)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Initialize Services
	bookingSvc := service.NewBookingService(store.BookingRepository, store.AccessRepository, readCache, clk)
	roomSvc := service.NewRoomService(store.RoomRepository, store.LedgerRepository, store.AccessRepository, readCache, invalidator, clk, cfg.Ledger.HorizonDays)

	// Initialize Realtime
	hub := realtime.NewHub(realtime.NewRegistry(), tokenManager, store.AccessRepository)
	wsHandler := realtime.NewWSHandler(hub, realtime.WSConfig{
		SendBuffer:      cfg.Realtime.SendBuffer,
		WriteTimeout:    cfg.Realtime.WriteTimeout,
		PongTimeout:     cfg.Realtime.PongTimeout,
		AllowedOrigins:  cfg.Realtime.AllowedOrigins,
		MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
	})

	// Initialize Relay: eviction runs before broadcast for every event
	health := grpcapi.NewHealthServer()
	changeRelay := relay.New(relay.Config{
		Channel:              cfg.Relay.Channel,
		MinReconnectInterval: cfg.Relay.MinReconnectInterval,
		MaxReconnectInterval: cfg.Relay.MaxReconnectInterval,
		PingInterval:         cfg.Relay.PingInterval,
		DedupWindow:          cfg.Relay.DedupWindow,
	}, health)
	changeRelay.Use("cache", invalidator)
	changeRelay.Use("realtime", hub)
	if cfg.Events.AMQPURL != "" {
		forwarder, err := relay.NewAMQPForwarder(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", "error", err)
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer forwarder.Close()
		changeRelay.Use("amqp", forwarder)
		logger.Info("Forwarding change events to RabbitMQ", "exchange", cfg.Events.Exchange)
	}

	// Set up HTTP server
	router := httpapi.NewRouter(httpapi.RouterDeps{
		BookingService: bookingSvc,
		RoomService:    roomSvc,
		TokenManager:   tokenManager,
		WebSocket:      wsHandler,
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return changeRelay.Run(gctx, changeRelay.NewListener(cfg.GetDatabaseConnectionString()))
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if addr := cfg.GetHealthAddress(); addr != "" {
		grpcServer := health.NewServer()
		g.Go(func() error {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("health listen: %w", err)
			}
			logger.Info("gRPC health server listening", "address", addr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			health.Shutdown()
			grpcServer.GracefulStop()
			return nil
		})
	}

	if cfg.Scheduler.Enabled {
		runner := jobs.NewJobRunner(&jobs.Services{Booking: bookingSvc, Room: roomSvc}, cfg)
		sched, err := scheduler.NewScheduler(runner)
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
