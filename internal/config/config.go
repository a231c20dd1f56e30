package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort   string `yaml:"port"`
	DatabaseType string `yaml:"db_type"`
	DatabasePath string `yaml:"db_path"`
	DatabaseURL  string `yaml:"database_url"`
	LogMode      string `yaml:"log_mode"`

	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	OracleModel   string        `yaml:"oracle_model"`
	OracleTimeout time.Duration `yaml:"oracle_timeout"`

	GateTimeout       time.Duration `yaml:"gate_timeout"`
	BiometricCooldown time.Duration `yaml:"biometric_cooldown"`
	GateSweepInterval time.Duration `yaml:"gate_sweep_interval"`

	DashboardTokenSecret string        `yaml:"dashboard_token_secret"`
	DashboardTokenTTL    time.Duration `yaml:"dashboard_token_ttl"`
	RateLimitPerMinute   int           `yaml:"rate_limit_per_minute"`
	TrustProxyHeaders    bool          `yaml:"trust_proxy_headers"`

	AWSRegion     string `yaml:"aws_region"`
	SESFromEmail  string `yaml:"ses_from_email"`
	SESFromName   string `yaml:"ses_from_name"`
	GuardianEmail string `yaml:"guardian_email"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ServerPort:         "8080",
		DatabaseType:       "sqlite",
		DatabasePath:       "./eudguide.db",
		LogMode:            "development",
		OracleModel:        "gemini-flash-lite-latest",
		OracleTimeout:      20 * time.Second,
		GateTimeout:        5 * time.Minute,
		BiometricCooldown:  3 * time.Second,
		GateSweepInterval:  30 * time.Second,
		DashboardTokenTTL:  15 * time.Minute,
		RateLimitPerMinute: 10,
		AWSRegion:          "us-east-1",
		SESFromName:        "EudGuide",
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by EUDGUIDE_CONFIG, and environment variables, in that order of precedence
// (environment wins).
func Load() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("EUDGUIDE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServerPort = getEnv("PORT", cfg.ServerPort)
	cfg.DatabaseType = getEnv("DB_TYPE", cfg.DatabaseType)
	cfg.DatabasePath = getEnv("DB_PATH", cfg.DatabasePath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogMode = getEnv("LOG_MODE", cfg.LogMode)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.OracleModel = getEnv("ORACLE_MODEL", cfg.OracleModel)
	cfg.DashboardTokenSecret = getEnv("DASHBOARD_TOKEN_SECRET", cfg.DashboardTokenSecret)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.SESFromEmail = getEnv("SES_FROM_EMAIL", cfg.SESFromEmail)
	cfg.SESFromName = getEnv("SES_FROM_NAME", cfg.SESFromName)
	cfg.GuardianEmail = getEnv("GUARDIAN_EMAIL", cfg.GuardianEmail)

	var err error
	if cfg.OracleTimeout, err = getEnvDuration("ORACLE_TIMEOUT", cfg.OracleTimeout); err != nil {
		return nil, err
	}
	if cfg.GateTimeout, err = getEnvDuration("GATE_TIMEOUT", cfg.GateTimeout); err != nil {
		return nil, err
	}
	if cfg.BiometricCooldown, err = getEnvDuration("BIOMETRIC_COOLDOWN", cfg.BiometricCooldown); err != nil {
		return nil, err
	}
	if cfg.GateSweepInterval, err = getEnvDuration("GATE_SWEEP_INTERVAL", cfg.GateSweepInterval); err != nil {
		return nil, err
	}
	if cfg.DashboardTokenTTL, err = getEnvDuration("DASHBOARD_TOKEN_TTL", cfg.DashboardTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute); err != nil {
		return nil, err
	}
	if cfg.TrustProxyHeaders, err = getEnvBool("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
