// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"autoenter/internal/filter"
	"autoenter/internal/model"
)

// PolicyConfig holds the raw eligibility options.
type PolicyConfig struct {
	SkipOwned       bool          `env:"SKIP_OWNED"`
	SkipDLCs        string        `env:"SKIP_DLCS" envDefault:"false"`
	MaxParticipants int           `env:"MAX_PARTICIPANTS"`
	MaxPrice        int           `env:"MAX_PRICE"`
	GameBlacklist   []string      `env:"GAME_BLACKLIST" envSeparator:";"`
	OnlyGuaranteed  bool          `env:"ONLY_GUARANTEED"`
	UserBlacklist   []string      `env:"USER_BLACKLIST" envSeparator:";"`
	SkipSubs        bool          `env:"SKIP_SUBS"`
	WaitOnEnd       time.Duration `env:"WAIT_ON_END" envDefault:"60m"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Config holds the application configuration.
type Config struct {
	BaseURL        string        `env:"GALA_BASE_URL" envDefault:"https://www.indiegala.com"`
	Cookie         string        `env:"GALA_COOKIE,required"`
	StartPath      string        `env:"START_PATH" envDefault:"/giveaways"`
	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"./data/autoenter.db"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	Debug          bool          `env:"DEBUG"`
	PassRetryDelay time.Duration `env:"PASS_RETRY_DELAY" envDefault:"1m"`
	Headless       bool          `env:"HEADLESS" envDefault:"true"`
	InterceptAlert bool          `env:"INTERCEPT_ALERT"`
	FeedPath       string        `env:"FEED_PATH"`

	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB"`
	}

	Steam struct {
		APIKey        string        `env:"STEAM_API_KEY"`
		UserID        string        `env:"STEAM_USER_ID"`
		OwnedGamesTTL time.Duration `env:"OWNED_GAMES_TTL" envDefault:"2h"`
	}

	Telegram struct {
		BotToken     string  `env:"TELEGRAM_BOT_TOKEN"`
		ChatID       int64   `env:"TELEGRAM_CHAT_ID"`
		AllowedUsers []int64 `env:"ALLOWED_USERS" envSeparator:","`
	}

	Policy PolicyConfig
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// a missing .env is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if _, err := cfg.BuildPolicy(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildPolicy compiles the raw options into an eligibility policy.
func (c *Config) BuildPolicy() (model.Policy, error) {
	p := c.Policy
	dlc, err := parseDLCPolicy(p.SkipDLCs)
	if err != nil {
		return model.Policy{}, err
	}
	if p.MaxParticipants < 0 || p.MaxPrice < 0 {
		return model.Policy{}, fmt.Errorf("MAX_PARTICIPANTS and MAX_PRICE must not be negative")
	}
	if p.Timeout <= 0 {
		return model.Policy{}, fmt.Errorf("TIMEOUT must be positive")
	}
	games, err := filter.ParsePatterns(p.GameBlacklist)
	if err != nil {
		return model.Policy{}, fmt.Errorf("GAME_BLACKLIST: %w", err)
	}
	users, err := filter.ParsePatterns(p.UserBlacklist)
	if err != nil {
		return model.Policy{}, fmt.Errorf("USER_BLACKLIST: %w", err)
	}
	return model.Policy{
		SkipOwned:       p.SkipOwned,
		SkipDLC:         dlc,
		MaxParticipants: p.MaxParticipants,
		MaxPrice:        p.MaxPrice,
		GameBlacklist:   games,
		OnlyGuaranteed:  p.OnlyGuaranteed,
		UserBlacklist:   users,
		SkipSubs:        p.SkipSubs,
		WaitOnEnd:       p.WaitOnEnd,
		Timeout:         p.Timeout,
	}, nil
}

func parseDLCPolicy(raw string) (model.DLCPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false", "0", "no":
		return model.DLCKeep, nil
	case "true", "1", "yes":
		return model.DLCSkip, nil
	case string(model.DLCMissingBaseGame):
		return model.DLCMissingBaseGame, nil
	}
	return "", fmt.Errorf("invalid SKIP_DLCS %q, use: false, true, missing_basegame", raw)
}

// TelegramEnabled reports whether the bot should be started.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.Telegram.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.Telegram.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
