package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonroyaalmerol/kumaqueue/internal/config"
	"github.com/sonroyaalmerol/kumaqueue/internal/handlers"
	"github.com/sonroyaalmerol/kumaqueue/internal/logging"
	"github.com/sonroyaalmerol/kumaqueue/internal/repository"
	"github.com/sonroyaalmerol/kumaqueue/internal/resolver"
	"github.com/sonroyaalmerol/kumaqueue/internal/spotify"
	"github.com/sonroyaalmerol/kumaqueue/internal/store"
	"github.com/sonroyaalmerol/kumaqueue/internal/stream"
)

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fatal("load config", err)
	}
	log := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogColor)

	qs, err := store.Open(cfg.QueueFile)
	if err != nil {
		fatal("open queue store", err)
	}
	log.Info("queue store ready", "path", qs.Path())

	var repo *repository.Repo
	db, err := repository.OpenDB(cfg)
	if err != nil {
		log.Warn("play history disabled", "err", err)
	} else {
		defer db.Close()
		repo = repository.NewRepo(db)
	}

	opts := resolver.Options{
		Searcher:      stream.NewYouTubeSearch(),
		RatePerSecond: cfg.SpotifyResolveRate,
		PlaylistLimit: cfg.PlaylistLimit,
		Logger:        log,
	}
	if cfg.SpotifyEnabled() {
		sp, err := spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
		if err != nil {
			fatal("spotify client", err)
		}
		opts.Catalog = sp
	} else {
		log.Info("spotify credentials not set, spotify links disabled")
	}
	res := resolver.New(stream.NewYtdlp(log), opts)

	bot := handlers.NewBot(cfg, qs, repo, res, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := bot.Run(ctx); err != nil {
		log.Error("bot exited", "err", err)
		cancel()
		os.Exit(1)
	}
}
