package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"roomsync-backend/internal/cache"
	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/config"
	"roomsync-backend/internal/jobs"
	"roomsync-backend/internal/logger"
	"roomsync-backend/internal/repository/postgres"
	"roomsync-backend/internal/scheduler"
	"roomsync-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-bookings', 'rebuild-ledger', 'all-nightly')")
	roomID := flag.Int64("room", 0, "Room id for rebuild-ledger")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RoomSync Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	clk := clock.NewSystem()
	store := postgres.NewStore(db, clk, cfg.Relay.Channel)

	// Job writes emit change events too, so the cache is evicted by the
	// server's relay. The direct evictor only covers ledger rebuilds.
	redisClient := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()
	kv := cache.NewRedisKV(redisClient)
	invalidator := cache.NewInvalidator(kv, store.AccessRepository, cfg.Cache.OpTimeout)

	jobServices := &jobs.Services{
		Booking: service.NewBookingService(store.BookingRepository, store.AccessRepository, nil, clk),
		Room:    service.NewRoomService(store.RoomRepository, store.LedgerRepository, store.AccessRepository, nil, invalidator, clk, cfg.Ledger.HorizonDays),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg)

	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce, *roomID); err != nil {
			logger.Error("Job failed", "job", *runOnce, "error", err)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string, roomID int64) error {
	switch jobName {
	case "expire-bookings":
		jobRunner.ExpireBookings()
	case "refresh-room-status":
		jobRunner.RefreshRoomStatus()
	case "extend-ledger-horizon":
		jobRunner.ExtendLedgerHorizon()
	case "rebuild-ledger":
		if roomID <= 0 {
			return fmt.Errorf("rebuild-ledger requires -room")
		}
		return jobRunner.RebuildLedger(roomID)
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	default:
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-bookings\n")
		fmt.Printf("  - refresh-room-status\n")
		fmt.Printf("  - extend-ledger-horizon\n")
		fmt.Printf("  - rebuild-ledger -room <id>\n")
		fmt.Printf("  - all-nightly\n")
		return fmt.Errorf("unknown job %q", jobName)
	}
	return nil
}
