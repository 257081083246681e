package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"autoenter/internal/bot"
	"autoenter/internal/browser"
	"autoenter/internal/cache"
	"autoenter/internal/config"
	"autoenter/internal/entry"
	"autoenter/internal/fetcher"
	"autoenter/internal/gala"
	"autoenter/internal/pager"
	"autoenter/internal/resolver"
	"autoenter/internal/scheduler"
	"autoenter/internal/state"
	"autoenter/internal/steam"
	"autoenter/internal/storage"
	"autoenter/internal/watchdog"
)

const redisPrefix = "autoenter:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	policy, err := cfg.BuildPolicy()
	if err != nil {
		log.Error("build policy", "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var kv storage.KV = store
	if cfg.Redis.Addr != "" {
		rdb, err := storage.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisPrefix)
		if err != nil {
			log.Error("connect redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
		kv = rdb
		log.Info("using redis cache", "addr", cfg.Redis.Addr)
	}

	f := fetcher.New(&http.Client{Timeout: policy.Timeout}, cfg.BaseURL, cfg.Cookie, log)
	host := gala.New(f, log)
	res := resolver.New(steam.New(f), cache.New(kv), policy, resolver.Options{
		APIKey:   cfg.Steam.APIKey,
		SteamID:  cfg.Steam.UserID,
		OwnedTTL: cfg.Steam.OwnedGamesTTL,
	}, log)

	br, err := browser.New(ctx, browser.Options{
		BaseURL:        cfg.BaseURL,
		Cookie:         cfg.Cookie,
		Headless:       cfg.Headless,
		InterceptAlert: cfg.InterceptAlert,
	}, log)
	if err != nil {
		log.Error("start browser", "error", err)
		os.Exit(1)
	}
	defer br.Close()

	navCtx, navCancel := context.WithTimeout(ctx, policy.Timeout)
	err = br.Navigate(navCtx, cfg.StartPath)
	navCancel()
	if err != nil {
		log.Error("open start page", "path", cfg.StartPath, "error", err)
		os.Exit(1)
	}

	sub := entry.New(host, store, nil, policy, log)
	sched := scheduler.New(scheduler.Deps{
		Browser:   br,
		Watchdog:  watchdog.New(br, log),
		Tracker:   state.New(host),
		Resolver:  res,
		Submitter: sub,
		Pager:     pager.New(br, policy.Timeout, log),
		Journal:   store,
	}, scheduler.Options{
		BaseURL:    cfg.BaseURL,
		FeedPath:   cfg.FeedPath,
		WaitOnEnd:  policy.WaitOnEnd,
		Timeout:    policy.Timeout,
		RetryDelay: cfg.PassRetryDelay,
	}, log)

	if cfg.TelegramEnabled() {
		b, err := bot.New(cfg.Telegram.BotToken, store, sched, cfg, log)
		if err != nil {
			log.Error("create bot", "error", err)
			os.Exit(1)
		}
		sub.SetNotifier(b)
		go b.Run(ctx)
	}

	log.Info("starting", "start_path", cfg.StartPath, "skip_dlcs", string(policy.SkipDLC), "skip_owned", policy.SkipOwned)

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stopped", "error", err)
		return
	}

	log.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
