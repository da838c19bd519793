package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the riddle service
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Economy    EconomyConfig
	Guard      GuardConfig
	Governance GovernanceConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort    string
	GRPCPort    string
	MetricsPort string

	// Per-account HTTP request budget enforced by the throttle middleware.
	ThrottleMax    int
	ThrottleWindow time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// RedisConfig holds Redis configuration for the guard counters and the
// audit event stream
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EconomyConfig holds the token protocol constants. The four pool caps sum
// to the fixed total supply; nothing is ever minted outside them.
type EconomyConfig struct {
	RewardPoolCap    int64
	TreasuryPoolCap  int64
	AirdropPoolCap   int64
	LiquidityPoolCap int64

	// Halving schedule for the session mint cost, anchored at GenesisAt.
	InitialMintCost int64
	MinMintCost     int64
	HalvingPeriod   time.Duration
	GenesisAt       time.Time

	// Per-participant answer attempts allowed in one session.
	MaxAttempts int32

	// Minimum lifetime accuracy (percent) to hold a tier above newcomer.
	MinAccuracyPct int64

	// Reputation decays 10% per fully elapsed window of inactivity.
	DecayWindow time.Duration
}

// GuardConfig holds the anti-abuse limits
type GuardConfig struct {
	// Base minimum interval between state-changing actions; halved per
	// tier above newcomer.
	MinInterval time.Duration

	// Hard per-day action cap per account.
	DayCap int64

	// Suspicion score at which the guard hard-fails the account.
	SuspicionThreshold int32
}

// GovernanceConfig holds proposal windows and consensus thresholds
type GovernanceConfig struct {
	VotingWindow  time.Duration
	VetoPct       int64
	EnactPct      int64
	RecencyWindow time.Duration

	// Matching approvals or rejections needed to settle a pending question.
	ConsensusVotes int32
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       getEnv("HTTP_PORT", "8080"),
			GRPCPort:       getEnv("GRPC_PORT", "50051"),
			MetricsPort:    getEnv("METRICS_PORT", "9090"),
			ThrottleMax:    getEnvInt("HTTP_THROTTLE_MAX", 120),
			ThrottleWindow: time.Duration(getEnvInt64("HTTP_THROTTLE_WINDOW_SECONDS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_DATABASE", "riddlen"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Economy: EconomyConfig{
			RewardPoolCap:    getEnvInt64("ECONOMY_REWARD_POOL_CAP", 700_000_000),
			TreasuryPoolCap:  getEnvInt64("ECONOMY_TREASURY_POOL_CAP", 100_000_000),
			AirdropPoolCap:   getEnvInt64("ECONOMY_AIRDROP_POOL_CAP", 100_000_000),
			LiquidityPoolCap: getEnvInt64("ECONOMY_LIQUIDITY_POOL_CAP", 100_000_000),
			InitialMintCost:  getEnvInt64("ECONOMY_INITIAL_MINT_COST", 1000),
			MinMintCost:      getEnvInt64("ECONOMY_MIN_MINT_COST", 10),
			HalvingPeriod:    time.Duration(getEnvInt64("ECONOMY_HALVING_DAYS", 730)) * 24 * time.Hour,
			GenesisAt:        getEnvTime("ECONOMY_GENESIS_AT", "2026-01-01T00:00:00Z"),
			MaxAttempts:      int32(getEnvInt("ECONOMY_MAX_ATTEMPTS", 5)),
			MinAccuracyPct:   getEnvInt64("ECONOMY_MIN_ACCURACY_PCT", 60),
			DecayWindow:      time.Duration(getEnvInt64("ECONOMY_DECAY_DAYS", 90)) * 24 * time.Hour,
		},
		Guard: GuardConfig{
			MinInterval:        time.Duration(getEnvInt64("GUARD_MIN_INTERVAL_SECONDS", 30)) * time.Second,
			DayCap:             getEnvInt64("GUARD_DAY_CAP", 300),
			SuspicionThreshold: int32(getEnvInt("GUARD_SUSPICION_THRESHOLD", 10)),
		},
		Governance: GovernanceConfig{
			VotingWindow:   time.Duration(getEnvInt64("GOVERNANCE_VOTING_HOURS", 168)) * time.Hour,
			VetoPct:        getEnvInt64("GOVERNANCE_VETO_PCT", 33),
			EnactPct:       getEnvInt64("GOVERNANCE_ENACT_PCT", 50),
			RecencyWindow:  time.Duration(getEnvInt64("GOVERNANCE_RECENCY_DAYS", 30)) * 24 * time.Hour,
			ConsensusVotes: int32(getEnvInt("GOVERNANCE_CONSENSUS_VOTES", 3)),
		},
	}
}

// PoolCaps maps pool names to their configured caps for seeding.
func (c EconomyConfig) PoolCaps() map[string]int64 {
	return map[string]int64{
		"reward":    c.RewardPoolCap,
		"treasury":  c.TreasuryPoolCap,
		"airdrop":   c.AirdropPoolCap,
		"liquidity": c.LiquidityPoolCap,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt64 gets a 64-bit integer environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvTime gets an RFC3339 timestamp environment variable, falling back
// to the given default when unset or malformed
func getEnvTime(key, defaultValue string) time.Time {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		parsed, _ = time.Parse(time.RFC3339, defaultValue)
	}
	return parsed
}
