// multa/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	multaapi "github.com/Ftotnem/multa-tracker/multa/api"
	"github.com/Ftotnem/multa-tracker/multa/service"
	"github.com/Ftotnem/multa-tracker/multa/store"
	"github.com/Ftotnem/multa-tracker/multa/store/memstore"
	"github.com/Ftotnem/multa-tracker/multa/sweeper"
	"github.com/Ftotnem/multa-tracker/shared/api"
	"github.com/Ftotnem/multa-tracker/shared/auth"
	"github.com/Ftotnem/multa-tracker/shared/cluster"
	"github.com/Ftotnem/multa-tracker/shared/config"
	"github.com/Ftotnem/multa-tracker/shared/feed"
	"github.com/Ftotnem/multa-tracker/shared/logging"
	"github.com/Ftotnem/multa-tracker/shared/metrics"
	mongodbu "github.com/Ftotnem/multa-tracker/shared/mongodb"
	redisu "github.com/Ftotnem/multa-tracker/shared/redis"
	"github.com/Ftotnem/multa-tracker/shared/registry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "multa-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadMultaServiceConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// --- 2. Logging and Metrics ---
	logger, err := logging.New("multa-service", cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	m := metrics.New()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	// --- 3. Connect to Redis (change feed, token revocation, registry) ---
	var redisClient redis.UniversalClient
	if cfg.UsesRedis() {
		redisClient, err = redisu.NewRedisClusterClient(startCtx, cfg.RedisAddrs, cfg.RedisPassword, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("error closing Redis client", zap.Error(err))
			}
		}()
	}

	// --- 4. Initialize Data Stores ---
	var (
		teams   service.TeamRepository
		players service.PlayerRepository
		users   service.UserRepository
		revoked service.RevocationRepository
		health  func(ctx context.Context) error
	)
	switch cfg.StoreBackend {
	case config.BackendMongo:
		mongoClient, err := mongodbu.NewClient(startCtx, cfg.MongoDBConnStr, cfg.MongoDBDatabase, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoClient.Disconnect(ctx); err != nil {
				logger.Error("failed to disconnect from MongoDB", zap.Error(err))
			}
		}()

		teamsColl := mongoClient.Collection(cfg.MongoDBTeamsCollection)
		playersColl := mongoClient.Collection(cfg.MongoDBPlayersCollection)
		usersColl := mongoClient.Collection(cfg.MongoDBUsersCollection)
		if err := store.EnsureIndexes(startCtx, teamsColl, playersColl, usersColl); err != nil {
			return fmt.Errorf("failed to ensure indexes: %w", err)
		}

		teams = store.NewTeamStore(teamsColl)
		players = store.NewPlayerStore(playersColl)
		users = store.NewUserStore(usersColl)
		revoked = store.NewRevocationStore(redisClient)
		health = func(ctx context.Context) error {
			if err := mongoClient.Ping(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		}
	case config.BackendMemory:
		logger.Warn("using the in-memory store, data is lost on restart")
		mem := memstore.New()
		teams, players, users, revoked = mem, mem, mem, mem
	}

	// --- 5. Change Feed ---
	var bus feed.Bus
	if redisClient != nil {
		redisBus, err := feed.NewRedisBus(startCtx, redisClient, logger, m)
		if err != nil {
			return fmt.Errorf("failed to subscribe to change feed: %w", err)
		}
		defer redisBus.Close()
		bus = redisBus
	} else {
		bus = feed.NewLocalBus()
	}

	// --- 6. Initialize Business Logic Services ---
	issuer := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	services := multaapi.Services{
		Teams:   service.NewTeamService(teams, users, bus, logger),
		Players: service.NewPlayerService(players, teams, bus, logger),
		Ledger:  service.NewLedgerService(players, teams, bus, m, logger),
		Roster:  service.NewRosterService(teams, players, bus, m, logger),
		Auth:    service.NewAuthService(users, revoked, issuer, logger),
	}

	// --- 7. Service Registrar and Cluster Leadership ---
	var leadership cluster.Leadership = cluster.Standalone{}
	if redisClient != nil {
		registrar := registry.NewServiceRegistrar(redisClient, registry.MultaServiceType, version, &cfg.CommonConfig, logger)
		registrar.Start()
		defer registrar.Stop()

		registryClient := registry.NewRegistryClient(redisClient, cfg.HeartbeatTTL, logger)
		assignments := cluster.NewServiceAssignmentManager(registryClient, registrar.GetServiceID(), registry.MultaServiceType, cfg.HeartbeatInterval, logger)
		go assignments.Start()
		defer assignments.Stop()
		leadership = assignments
	}

	// --- 8. Orphan Membership Sweeper ---
	if cfg.OrphanSweepInterval > 0 {
		orphanSweeper := sweeper.NewOrphanSweeper(players, teams, bus, leadership, cfg.OrphanSweepInterval, cfg.OrphanSweepTimeout, m, logger)
		go orphanSweeper.Start()
		defer orphanSweeper.Stop()
	} else {
		logger.Info("orphan sweeper disabled")
	}

	// --- 9. Setup HTTP Server and Register Routes ---
	liveCtx, stopLive := context.WithCancel(context.Background())
	defer stopLive()

	baseServer := api.NewBaseServer(cfg.ListenAddr, logger, api.ServerOptions{
		AllowedOrigins: cfg.LiveAllowedOrigins,
		Metrics:        m,
	})
	handler := multaapi.NewHandler(liveCtx, services, multaapi.Options{
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.LiveAllowedOrigins,
		Health:         health,
	}, logger)
	handler.RegisterRoutes(baseServer.Router)

	// --- 10. Start HTTP Server ---
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- baseServer.Start()
	}()
	logger.Info("multa-service started",
		zap.String("version", version),
		zap.String("addr", cfg.ListenAddr),
		zap.String("store", cfg.StoreBackend),
		zap.Bool("redis", redisClient != nil))

	// --- 11. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	// Hijacked websocket connections are not tracked by http.Server.
	stopLive()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server graceful shutdown failed: %w", err)
	}
	logger.Info("server gracefully stopped")
	return nil
}
