// shared/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends understood by the multa-service.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

const devTokenSecret = "multa-dev-secret-change-me"

// CommonConfig holds configuration fields that are shared across multiple services.
type CommonConfig struct {
	RedisAddrs              []string      // Redis server addresses (e.g., "redis-cluster:6379")
	RedisPassword           string        // Redis password for authentication
	HeartbeatInterval       time.Duration // How often to send a heartbeat to registry (e.g., 5s)
	HeartbeatTTL            time.Duration // How long an instance is considered alive without a heartbeat (e.g., 15s)
	RegistryCleanupInterval time.Duration // How often the registry actively cleans stale entries (e.g., 30s)
	ServiceIP               string        // The IP address this service advertises for registration (Kubernetes Pod IP)
	ServicePort             int           // The port this service listens on, used for registration
	LogLevel                string        // debug, info, warn, error
	LogDevelopment          bool          // Human readable console logs

	// Warnings collects non-fatal problems found while loading, to be logged once a logger exists.
	Warnings []string
}

// MultaServiceConfig holds configuration specific to the multa-service.
type MultaServiceConfig struct {
	CommonConfig
	ListenAddr               string        // Address for the HTTP server to listen on (e.g., ":8080")
	StoreBackend             string        // "mongo" or "memory"
	MongoDBConnStr           string        // MongoDB connection string
	MongoDBDatabase          string        // MongoDB database name (e.g., "multatracker")
	MongoDBTeamsCollection   string        // MongoDB collection for teams
	MongoDBPlayersCollection string        // MongoDB collection for players
	MongoDBUsersCollection   string        // MongoDB collection for user accounts
	TokenSecret              string        // HMAC secret for identity tokens
	TokenTTL                 time.Duration // Lifetime of an identity token (e.g., 24h)
	OrphanSweepInterval      time.Duration // How often to clean memberships of deleted teams, 0 disables
	OrphanSweepTimeout       time.Duration // Upper bound for one sweep
	RequestTimeout           time.Duration // Per-request store timeout used by handlers
	LiveAllowedOrigins       []string      // Origins allowed to open live websockets, empty allows all
}

// loadDotEnv reads a .env file when present. A missing file is fine; real
// deployments set the environment directly.
func loadDotEnv() error {
	path := os.Getenv("MULTA_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadCommonConfig loads common configuration from environment variables.
func LoadCommonConfig() (CommonConfig, error) {
	cfg := CommonConfig{}
	var err error

	cfg.RedisAddrs = getList("REDIS_ADDRS")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.HeartbeatInterval, err = getDuration("SERVICE_HEARTBEAT_INTERVAL", 5*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.HeartbeatTTL, err = getDuration("SERVICE_HEARTBEAT_TTL", 15*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.RegistryCleanupInterval, err = getDuration("SERVICE_REGISTRY_CLEANUP_INTERVAL", 30*time.Second)
	if err != nil {
		return cfg, err
	}
	if cfg.HeartbeatTTL <= cfg.HeartbeatInterval {
		return cfg, fmt.Errorf("SERVICE_HEARTBEAT_TTL (%v) must be longer than SERVICE_HEARTBEAT_INTERVAL (%v)", cfg.HeartbeatTTL, cfg.HeartbeatInterval)
	}

	// Service IP (for registration, from Kubernetes Pod IP)
	cfg.ServiceIP = os.Getenv("POD_IP")
	if cfg.ServiceIP == "" {
		cfg.ServiceIP = "0.0.0.0"
		cfg.Warnings = append(cfg.Warnings, "POD_IP not set, defaulting ServiceIP to 0.0.0.0")
	}

	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogDevelopment, err = getBool("LOG_DEVELOPMENT", false)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadMultaServiceConfig loads configuration for the multa-service.
func LoadMultaServiceConfig() (*MultaServiceConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for multa-service: %w", err)
	}

	cfg := &MultaServiceConfig{
		CommonConfig:             common,
		ListenAddr:               getString("MULTA_SERVICE_LISTEN_ADDR", ":8080"),
		StoreBackend:             strings.ToLower(getString("STORE_BACKEND", BackendMongo)),
		MongoDBConnStr:           getString("MONGODB_CONN_STR", "mongodb://mongodb-service:27017"),
		MongoDBDatabase:          getString("MONGODB_DATABASE", "multatracker"),
		MongoDBTeamsCollection:   getString("MONGODB_TEAMS_COLLECTION", "teams"),
		MongoDBPlayersCollection: getString("MONGODB_PLAYERS_COLLECTION", "players"),
		MongoDBUsersCollection:   getString("MONGODB_USERS_COLLECTION", "users"),
		TokenSecret:              os.Getenv("AUTH_TOKEN_SECRET"),
		LiveAllowedOrigins:       getList("LIVE_ALLOWED_ORIGINS"),
	}

	switch cfg.StoreBackend {
	case BackendMongo, BackendMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q (got %q)", BackendMongo, BackendMemory, cfg.StoreBackend)
	}

	if cfg.TokenSecret == "" {
		cfg.TokenSecret = devTokenSecret
		cfg.Warnings = append(cfg.Warnings, "AUTH_TOKEN_SECRET not set, using the development secret")
	}

	cfg.TokenTTL, err = getDuration("AUTH_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("AUTH_TOKEN_TTL must be positive (got %v)", cfg.TokenTTL)
	}
	cfg.OrphanSweepInterval, err = getDuration("ORPHAN_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.OrphanSweepTimeout, err = getDuration("ORPHAN_SWEEP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout, err = getDuration("MULTA_REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	// Extract ServicePort from ListenAddr
	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from MULTA_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	if cfg.StoreBackend == BackendMemory && len(cfg.RedisAddrs) > 0 {
		return nil, fmt.Errorf("STORE_BACKEND=memory cannot be combined with REDIS_ADDRS: in-memory data is not shared between instances")
	}
	if cfg.StoreBackend == BackendMongo && len(cfg.RedisAddrs) == 0 {
		cfg.RedisAddrs = []string{"redis-cluster-headless.multa.svc.cluster.local:6379"} // Default for K8s Service
	}

	return cfg, nil
}

// UsesRedis reports whether the change feed, token revocation and registry run on Redis.
func (c *MultaServiceConfig) UsesRedis() bool {
	return len(c.RedisAddrs) > 0
}

func getString(envKey, defaultVal string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultVal
}

// getList splits a comma separated variable, dropping empty items.
func getList(envKey string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Helper function to parse duration from environment variable
func getDuration(envKey string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", envKey, err)
	}
	return d, nil
}

func getBool(envKey string, defaultVal bool) (bool, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("invalid boolean format for %s: %w", envKey, err)
	}
	return b, nil
}

// extractPort extracts the numeric port from a listen address (e.g., ":8080" -> 8080, "0.0.0.0:8080" -> 8080)
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		if strings.HasPrefix(listenAddr, ":") {
			portStr = strings.TrimPrefix(listenAddr, ":")
		} else {
			return 0, fmt.Errorf("invalid ListenAddr format for port extraction: %w", err)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number '%s': %w", portStr, err)
	}
	return port, nil
}
