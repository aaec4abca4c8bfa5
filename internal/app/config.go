package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mailroom-bot/mailroom-backend/internal/pkg/envutil"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/logger"
)

type Config struct {
	Port    string `yaml:"port"`
	GuildID string `yaml:"guild_id"`

	GatewayBaseURL string `yaml:"gateway_base_url"`
	GatewayToken   string `yaml:"gateway_token"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
}

// LoadConfig reads an optional YAML file named by CONFIG_FILE, then lets
// individual environment variables override it. Postgres settings stay
// env-only and live in the db package.
func LoadConfig(log *logger.Logger) (Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		log.Info("Loaded config file", "path", path)
	}

	cfg.Port = envutil.GetEnv("PORT", fallback(cfg.Port, "8080"), log)
	cfg.GuildID = envutil.GetEnv("GUILD_ID", cfg.GuildID, log)
	cfg.GatewayBaseURL = envutil.GetEnv("GATEWAY_BASE_URL", cfg.GatewayBaseURL, log)
	cfg.GatewayToken = envutil.GetEnv("GATEWAY_TOKEN", cfg.GatewayToken, log)
	cfg.RedisAddr = envutil.GetEnv("REDIS_ADDR", cfg.RedisAddr, log)
	cfg.RedisChannel = envutil.GetEnv("REDIS_CHANNEL", cfg.RedisChannel, log)

	if cfg.GuildID == "" {
		return Config{}, fmt.Errorf("GUILD_ID is required")
	}
	if cfg.GatewayBaseURL == "" {
		return Config{}, fmt.Errorf("GATEWAY_BASE_URL is required")
	}
	return cfg, nil
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
