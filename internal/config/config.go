package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port               int      `mapstructure:"port"`
	DatabasePath       string   `mapstructure:"database_path"`
	LogLevel           string   `mapstructure:"log_level"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	AuthJWTSecret      string   `mapstructure:"auth_jwt_secret"`      // required; VOLTGUARD_AUTH_JWT_SECRET
	SessionTTLMin      int      `mapstructure:"session_ttl_min"`      // active session lifetime
	PendingTTLMin      int      `mapstructure:"pending_ttl_min"`      // window to complete the second factor
	MaxFailedLogins    int      `mapstructure:"max_failed_logins"`    // consecutive failures before account lock
	LockoutMin         int      `mapstructure:"lockout_min"`          // account lock duration
	AnomalySigma       float64  `mapstructure:"anomaly_sigma"`        // stddev multiple for the anomaly check
	AnomalyCooldownMin int      `mapstructure:"anomaly_cooldown_min"` // min gap between anomaly alerts per device
	AnomalyMinSamples  int      `mapstructure:"anomaly_min_samples"`  // window warm-up before anomaly checks
	TelemetryWindow    int      `mapstructure:"telemetry_window"`     // rolling window size (samples)

	BootstrapAdminEmail    string `mapstructure:"bootstrap_admin_email"`    // first-run admin; created only when no users exist
	BootstrapAdminPassword string `mapstructure:"bootstrap_admin_password"` // VOLTGUARD_BOOTSTRAP_ADMIN_PASSWORD

	RequestTimeoutSec  int `mapstructure:"request_timeout_sec"`  // HTTP read/write; 0 = server default
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec"` // graceful shutdown wait
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/voltguard/")
	viper.AddConfigPath("$HOME/.voltguard")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("database_path", "./voltguard.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("auth_jwt_secret", "")
	viper.SetDefault("session_ttl_min", 60)
	viper.SetDefault("pending_ttl_min", 5)
	viper.SetDefault("max_failed_logins", 10)
	viper.SetDefault("lockout_min", 30)
	viper.SetDefault("anomaly_sigma", 3.0)
	viper.SetDefault("anomaly_cooldown_min", 60)
	viper.SetDefault("anomaly_min_samples", 8)
	viper.SetDefault("telemetry_window", 64)
	viper.SetDefault("bootstrap_admin_email", "admin@voltguard.local")
	viper.SetDefault("bootstrap_admin_password", "")
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)

	// Environment variables
	viper.SetEnvPrefix("VOLTGUARD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
