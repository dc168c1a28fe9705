package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
// BOT_TOKEN has no default: starting without it is a fatal error.
type Config struct {
	BotToken      string        `envconfig:"BOT_TOKEN" required:"true"`
	DBPath        string        `envconfig:"DB_PATH" default:"./data/free_games.db"`
	StoreURL      string        `envconfig:"STORE_URL" default:"https://store.epicgames.com/en-US/"`
	ChromePath    string        `envconfig:"CHROME_PATH" default:""`           // empty = system default
	RenderTimeout time.Duration `envconfig:"RENDER_TIMEOUT" default:"15s"`     // per-render bound, covers element waits
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`         // debug|info|warn|error
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`        // healthz + metrics
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
