package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"clickwar/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBDriver      string
	DBPath        string
	ServerPort    string
	LogLevel      string
	AdminPassword string

	GeoAPIURL   string
	GeoCacheTTL time.Duration

	MissileCooldown time.Duration
	// zero disables expiry of never-accepted challenges
	PendingChallengeTTL time.Duration

	ClickRate  float64
	ClickBurst int

	AllowedOrigins []string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		DBPath:         getEnv("DB_PATH", "clickwar.db"),
		ServerPort:     getEnv("SERVER_PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		GeoAPIURL:      getEnv("GEO_API_URL", "http://ip-api.com/json/%s?fields=status,countryCode"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.GeoCacheTTL, err = getDuration("GEO_CACHE_TTL", constants.GeoCacheTTL); err != nil {
		return nil, err
	}
	if cfg.MissileCooldown, err = getDuration("MISSILE_COOLDOWN", constants.DefaultMissileCooldown); err != nil {
		return nil, err
	}
	if cfg.PendingChallengeTTL, err = getDuration("PENDING_CHALLENGE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.ClickRate, err = getFloat("CLICK_RATE", 20); err != nil {
		return nil, err
	}
	burst, err := getFloat("CLICK_BURST", 40)
	if err != nil {
		return nil, err
	}
	cfg.ClickBurst = int(burst)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_driver", cfg.DBDriver).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("missile_cooldown", cfg.MissileCooldown).
		Dur("pending_challenge_ttl", cfg.PendingChallengeTTL).
		Float64("click_rate", cfg.ClickRate).
		Int("click_burst", cfg.ClickBurst).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	switch c.DBDriver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.MissileCooldown <= 0 {
		return fmt.Errorf("MISSILE_COOLDOWN must be positive")
	}
	if c.PendingChallengeTTL < 0 {
		return fmt.Errorf("PENDING_CHALLENGE_TTL must not be negative")
	}
	if c.ClickRate <= 0 || c.ClickBurst <= 0 {
		return fmt.Errorf("CLICK_RATE and CLICK_BURST must be positive")
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

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var Module = fx.Provide(Load)
