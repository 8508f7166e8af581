package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"chess-explorer/internal/constants"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	BaseURL        string        `validate:"required|fullUrl"`
	UserAgent      string        `validate:"required"`
	DBPath         string        `validate:"required"`
	ServerPort     string        `validate:"required|numeric"`
	LogLevel       string        `validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	CacheTTL       time.Duration `validate:"required|min:1"`
	OnlineTTL      time.Duration `validate:"required|min:1"`
	MetricsEnabled bool
	InviteCountry  string `validate:"required|len:2"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cacheTTL, err := getDuration("CACHE_TTL", constants.DefaultCacheTTL)
	if err != nil {
		return nil, err
	}
	onlineTTL, err := getDuration("ONLINE_TTL", constants.OnlineCacheTTL)
	if err != nil {
		return nil, err
	}
	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}

	cfg := &Config{
		BaseURL:        getEnv("CHESSCOM_BASE_URL", "https://api.chess.com/pub/"),
		UserAgent:      getEnv("CHESSCOM_USER_AGENT", "chess-explorer/1.0"),
		DBPath:         getEnv("DB_PATH", "invites.db"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CacheTTL:       cacheTTL,
		OnlineTTL:      onlineTTL,
		MetricsEnabled: metricsEnabled,
		InviteCountry:  getEnv("INVITE_COUNTRY", "BR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("cache_ttl", cfg.CacheTTL).
		Dur("online_ttl", cfg.OnlineTTL).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid configuration: %s", v.Errors.One())
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

var Module = fx.Provide(Load)
