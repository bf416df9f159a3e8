package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Replay
	ReplayWorkers  int   `env:"REPLAY_WORKERS"   envDefault:"1"`
	LogRejections  bool  `env:"LOG_REJECTIONS"   envDefault:"false"`
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"67108864"`

	// Database (optional - leave empty to disable the postgres exporter)
	DatabaseURL             string        `env:"DATABASE_URL"               envDefault:""`
	DatabaseMaxConns        int           `env:"DATABASE_MAX_CONNS"         envDefault:"5"`
	DatabaseMinConns        int           `env:"DATABASE_MIN_CONNS"         envDefault:"0"`
	DatabaseRetryMax        int           `env:"DATABASE_RETRY_MAX"         envDefault:"3"`
	DatabaseRetryMaxElapsed time.Duration `env:"DATABASE_RETRY_MAX_ELAPSED" envDefault:"10s"`

	// Redis (optional - leave empty to disable the redis exporter)
	RedisURL       string        `env:"REDIS_URL"        envDefault:""`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX" envDefault:"txengine:"`
	RedisTTL       time.Duration `env:"REDIS_TTL"        envDefault:"0s"`

	// Export
	ExportTimeout time.Duration `env:"EXPORT_TIMEOUT" envDefault:"30s"`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Rate limiting (0 disables)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
