package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Admission configuration
	EntryWindow      time.Duration // how long an entered user may act
	PromoteBatchSize int           // users promoted per scheduler tick
	MaxEnteredLimit  int           // ceiling of concurrently entered users

	// Scheduler configuration
	PromoteInterval     time.Duration
	ExpireSweepInterval time.Duration
	TicketSweepInterval time.Duration
	LockMinHold         time.Duration
	LockMaxHold         time.Duration

	// Session cache configuration
	SessionTTL        time.Duration
	CacheJitterRatio  float64
	CacheFailCoolDown time.Duration

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Admission
		EntryWindow:      getEnvAsDuration("ENTRY_WINDOW", "15m"),
		PromoteBatchSize: getEnvAsInt("PROMOTE_BATCH_SIZE", 100),
		MaxEnteredLimit:  getEnvAsInt("MAX_ENTERED_LIMIT", 500),

		// Scheduler
		PromoteInterval:     getEnvAsDuration("PROMOTE_INTERVAL", "10s"),
		ExpireSweepInterval: getEnvAsDuration("EXPIRE_SWEEP_INTERVAL", "30s"),
		TicketSweepInterval: getEnvAsDuration("TICKET_SWEEP_INTERVAL", "1m"),
		LockMinHold:         getEnvAsDuration("LOCK_MIN_HOLD", "5s"),
		LockMaxHold:         getEnvAsDuration("LOCK_MAX_HOLD", "5m"),

		// Session cache
		SessionTTL:        getEnvAsDuration("SESSION_TTL", "1h"),
		CacheJitterRatio:  getEnvAsFloat("CACHE_JITTER_RATIO", 0.1),
		CacheFailCoolDown: getEnvAsDuration("CACHE_FAIL_COOL_DOWN", "3s"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
