package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"riddlen/riddle-service/internal/config"
	"riddlen/riddle-service/internal/handler"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/internal/service"
	"riddlen/riddle-service/pkg/auth"
	"riddlen/riddle-service/pkg/db"
	"riddlen/riddle-service/pkg/helpers"
	"riddlen/riddle-service/pkg/logger"
	"riddlen/riddle-service/pkg/metrics"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// Load config.env if present (development convenience)
	if err := godotenv.Load("config.env"); err != nil {
		_ = godotenv.Load()
	}

	log := logger.NewLogger("riddle-service")
	log.Info("Starting Riddle Service...")

	cfg := config.LoadConfig()

	// Initialize database connection
	dbPort, err := strconv.Atoi(cfg.Database.Port)
	if err != nil {
		log.Fatal("Invalid DB_PORT", "error", err)
	}
	conn, err := db.NewConnection(db.Config{
		Host:     cfg.Database.Host,
		Port:     dbPort,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create tables and seed the pool allocations before serving
	if err := repository.EnsureSchema(ctx, conn.DB); err != nil {
		log.Fatal("Failed to ensure schema", "error", err)
	}
	if err := repository.SeedPools(ctx, conn.DB, cfg.Economy.PoolCaps()); err != nil {
		log.Fatal("Failed to seed token pools", "error", err)
	}

	// Validate schema
	schemaGuard := db.NewSchemaGuard(conn.DB)
	if err := schemaGuard.ValidateTables(repository.ExpectedSchemas()); err != nil {
		log.Warn("Schema validation warning", "error", err)
	}
	log.Info("Database connected and schema validated")

	// Redis backs the guard counters and the audit event stream
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping redis", "error", err)
	}
	defer redisClient.Close()

	publisher := pubsub.NewAuditPublisher(redisClient, log)
	defer publisher.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(conn.DB)
	ledgerRepo := repository.NewLedgerRepository(conn.DB)
	sessionRepo := repository.NewSessionRepository(conn.DB)
	participantRepo := repository.NewParticipantRepository(conn.DB)
	questionRepo := repository.NewQuestionRepository(conn.DB)
	proposalRepo := repository.NewProposalRepository(conn.DB)
	guardRepo := repository.NewGuardRepository(redisClient)

	idGen := helpers.NewIDGenerator()
	validator := helpers.NewCustomValidator()
	entropy := processEntropy()

	// Initialize services
	guardService := service.NewGuardService(guardRepo, accountRepo, publisher, log, cfg.Guard)
	ledgerService := service.NewLedgerService(ledgerRepo, accountRepo, guardService, publisher, idGen, log)
	reputationService := service.NewReputationService(accountRepo, publisher, log, cfg.Economy, entropy)
	sessionService := service.NewSessionService(
		sessionRepo,
		participantRepo,
		questionRepo,
		accountRepo,
		guardService,
		publisher,
		idGen,
		log,
		cfg.Economy,
		entropy,
	)
	questionService := service.NewQuestionService(
		questionRepo,
		accountRepo,
		guardService,
		publisher,
		idGen,
		log,
		cfg.Governance,
	)
	governanceService := service.NewGovernanceService(
		proposalRepo,
		accountRepo,
		guardService,
		publisher,
		idGen,
		log,
		cfg.Governance,
	)

	serviceMetrics := metrics.NewMetrics("riddle")

	// Initialize HTTP handlers and router
	router := handler.NewRouter(handler.RouterDeps{
		Ledger:         handler.NewLedgerHandler(ledgerService, validator),
		Reputation:     handler.NewReputationHandler(reputationService, validator),
		Sessions:       handler.NewSessionHandler(sessionService, validator),
		Questions:      handler.NewQuestionHandler(questionService, validator),
		Governance:     handler.NewGovernanceHandler(governanceService, validator),
		Logger:         log,
		Metrics:        serviceMetrics,
		ThrottleMax:    cfg.Server.ThrottleMax,
		ThrottlePeriod: cfg.Server.ThrottleWindow,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics endpoint on its own port
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}

	// gRPC health endpoint for orchestration probes
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.UnaryServerInterceptor(log),
			metrics.UnaryServerInterceptor(serviceMetrics),
			auth.UnaryServerInterceptor(),
		),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	// Feed the connection pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := conn.DB.Stats()
				serviceMetrics.RecordDBPoolStats(
					stats.OpenConnections,
					stats.InUse,
					stats.Idle,
					stats.WaitCount,
					stats.WaitDuration,
				)
			}
		}
	}()

	go func() {
		log.Info("Metrics server listening", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server failed", "error", err)
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
		if err != nil {
			log.Fatal("Failed to listen for gRPC", "error", err, "port", cfg.Server.GRPCPort)
		}
		log.Info("gRPC health server listening", "port", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server failed", "error", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down gracefully...")
		healthServer.Shutdown()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP shutdown failed", "error", err)
		}
		metricsServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		log.Info("Shutdown complete")
	}()

	log.Info("Riddle Service started", "http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort, "metrics_port", cfg.Server.MetricsPort)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server failed", "error", err)
	}
}

// processEntropy draws one random seed for the session parameter mixer.
// Session params must differ across restarts even when sessions are created
// at the same wall-clock instant.
func processEntropy() uint64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint64(buf[:])
}
