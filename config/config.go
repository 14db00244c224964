package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"wingo/database"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	HTTPAddr       string
	JWTSecret      string
	JWTTTL         time.Duration
	BetRatePerSec  float64 // Sustained bet/cashout requests per account
	BetRateBurst   int
	AllowedOrigins []string // Websocket origins; empty allows any

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Color game timings
	ColorBettingDuration time.Duration
	ColorCooldown        time.Duration
	ColorBetCutoff       int // Seconds remaining below which color bets are refused

	// Crash game timings and curve
	CrashWaitingDuration time.Duration
	CrashTickInterval    time.Duration
	CrashPauseAfterCrash time.Duration
	CrashCurveA          float64
	CrashCurveB          float64

	// Payment provider
	PaymentBaseURL       string
	PaymentAppID         string
	PaymentSecret        string // Shared webhook secret, also used for API auth
	PaymentTimeout       time.Duration
	PaymentReturnURL     string
	ProviderCurrencyCode string

	// Optional integrations
	RedisAddr           string
	RedisPassword       string
	NATSServers         string
	DiscordToken        string
	DiscordAlertChannel string

	// Metrics
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel  string
	LogFormat string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{
		HTTPAddr:      getEnvWithDefault("HTTP_ADDR", ":8080"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        getDurationWithDefault("JWT_TTL", 24*time.Hour),
		BetRatePerSec: getFloatWithDefault("BET_RATE_PER_SEC", 5),
		BetRateBurst:  getIntWithDefault("BET_RATE_BURST", 10),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		ColorBettingDuration: getDurationWithDefault("COLOR_BETTING_DURATION", 30*time.Second),
		ColorCooldown:        getDurationWithDefault("COLOR_COOLDOWN", 5*time.Second),
		ColorBetCutoff:       getIntWithDefault("COLOR_BET_CUTOFF_SECONDS", 5),

		CrashWaitingDuration: getDurationWithDefault("CRASH_WAITING_DURATION", 10*time.Second),
		CrashTickInterval:    getDurationWithDefault("CRASH_TICK_INTERVAL", 100*time.Millisecond),
		CrashPauseAfterCrash: getDurationWithDefault("CRASH_PAUSE_AFTER_CRASH", 3*time.Second),
		CrashCurveA:          getFloatWithDefault("CRASH_CURVE_A", 0.06),
		CrashCurveB:          getFloatWithDefault("CRASH_CURVE_B", 0.02),

		PaymentBaseURL:       getEnvWithDefault("PAYMENT_BASE_URL", "https://sandbox.cashfree.com/pg"),
		PaymentAppID:         os.Getenv("PAYMENT_APP_ID"),
		PaymentSecret:        os.Getenv("PAYMENT_SECRET"),
		PaymentTimeout:       getDurationWithDefault("PAYMENT_TIMEOUT", 10*time.Second),
		PaymentReturnURL:     os.Getenv("PAYMENT_RETURN_URL"),
		ProviderCurrencyCode: getEnvWithDefault("PAYMENT_CURRENCY", "INR"),

		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		NATSServers:         os.Getenv("NATS_SERVERS"),
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		DiscordAlertChannel: os.Getenv("DISCORD_ALERT_CHANNEL_ID"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "wingo"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: getIntWithDefault("OTEL_EXPORT_INTERVAL_MS", 15000),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		if config.PaymentSecret == "" {
			return nil, fmt.Errorf("PAYMENT_SECRET is required")
		}
	}

	if config.ColorBetCutoff < 0 || time.Duration(config.ColorBetCutoff)*time.Second >= config.ColorBettingDuration {
		return nil, fmt.Errorf("COLOR_BET_CUTOFF_SECONDS must be between 0 and the betting duration")
	}
	if config.CrashTickInterval <= 0 {
		return nil, fmt.Errorf("CRASH_TICK_INTERVAL must be positive")
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:          "test",
		HTTPAddr:             ":0",
		JWTSecret:            "test-secret",
		JWTTTL:               time.Hour,
		BetRatePerSec:        100,
		BetRateBurst:         100,
		ColorBettingDuration: 30 * time.Second,
		ColorCooldown:        5 * time.Second,
		ColorBetCutoff:       5,
		CrashWaitingDuration: 10 * time.Second,
		CrashTickInterval:    100 * time.Millisecond,
		CrashCurveA:          0.06,
		CrashCurveB:          0.02,
		PaymentSecret:        "test-webhook-secret",
		PaymentTimeout:       time.Second,
		ProviderCurrencyCode: "INR",
		OTelExporterType:     "none",
		LogLevel:             "debug",
		LogFormat:            "text",
	}
}
