package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type RateLimitConfig struct {
	Messages int           `mapstructure:"messages"`
	Window   time.Duration `mapstructure:"window"`
}

type CreateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type RedisConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	TTL           time.Duration `mapstructure:"ttl"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type Config struct {
	Mode            string            `mapstructure:"mode"`
	Port            int               `mapstructure:"port"`
	LogLevel        string            `mapstructure:"log_level"`
	StaticPath      string            `mapstructure:"static_path"`
	Secret          string            `mapstructure:"secret"`
	TrustedProxies  []string          `mapstructure:"trusted_proxies"`
	ReadLimit       int64             `mapstructure:"read_limit"`
	PingPeriod      time.Duration     `mapstructure:"ping_period"`
	WriteWait       time.Duration     `mapstructure:"write_wait"`
	MaxSessions     int               `mapstructure:"max_sessions"`
	MaxParticipants int               `mapstructure:"max_participants"`
	RateLimit       RateLimitConfig   `mapstructure:"rate_limit"`
	CreateLimit     CreateLimitConfig `mapstructure:"create_limit"`
	SessionTTL      time.Duration     `mapstructure:"session_ttl"`
	ReapInterval    time.Duration     `mapstructure:"reap_interval"`
	Redis           RedisConfig       `mapstructure:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("trusted_proxies", []string{})
	v.SetDefault("read_limit", 16384)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("max_sessions", 1000)
	v.SetDefault("max_participants", 50)
	v.SetDefault("rate_limit.messages", 20)
	v.SetDefault("rate_limit.window", "1s")
	v.SetDefault("create_limit.requests", 10)
	v.SetDefault("create_limit.window", "1m")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("reap_interval", "10m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("redis.flush_interval", "5s")
}

// Load reads config/config.<CONFIG_ENV>.yaml, then POKER_* variables
// (optionally from .env) on top.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Info().Str("module", "config").Msg("loaded .env")
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix("POKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Bool("redis", cfg.Redis.Enabled).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("invalid port")
	}
	switch c.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("trusted_proxies: %q is neither an IP nor a CIDR", p)
			}
		}
	}
	if c.ReadLimit < 1024 {
		return errors.New("read_limit must be at least 1024 bytes")
	}
	if c.PingPeriod <= 0 || c.WriteWait <= 0 {
		return errors.New("ping_period and write_wait must be positive")
	}
	if c.WriteWait >= c.PingPeriod {
		return errors.New("write_wait should be less than ping_period")
	}
	if c.MaxSessions < 1 || c.MaxParticipants < 1 {
		return errors.New("max_sessions and max_participants must be positive")
	}
	if c.RateLimit.Messages < 1 || c.RateLimit.Window <= 0 {
		return errors.New("rate_limit needs positive messages and window")
	}
	if c.CreateLimit.Requests < 1 || c.CreateLimit.Window <= 0 {
		return errors.New("create_limit needs positive requests and window")
	}
	if c.SessionTTL <= 0 || c.ReapInterval <= 0 {
		return errors.New("session_ttl and reap_interval must be positive")
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return errors.New("redis.addr must be set when redis is enabled")
		}
		if c.Redis.TTL < c.SessionTTL {
			return errors.New("redis.ttl should not be shorter than session_ttl")
		}
		if c.Redis.FlushInterval <= 0 {
			return errors.New("redis.flush_interval must be positive")
		}
	}
	return nil
}
