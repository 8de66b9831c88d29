package player

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sonroyaalmerol/kumaqueue/internal/store"
)

// Presenter keeps a now-playing message in sync with elapsed time.
type Presenter struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type presenterConfig struct {
	board     StatusBoard
	messageID string
	track     store.Track
	started   time.Time
	interval  time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// startPresenter returns nil when the track has no known duration.
func startPresenter(cfg presenterConfig) *Presenter {
	if cfg.track.Duration <= 0 || cfg.board == nil || cfg.messageID == "" {
		return nil
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.interval <= 0 {
		cfg.interval = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	pr := &Presenter{cancel: cancel, done: make(chan struct{})}
	go pr.loop(ctx, cfg)
	return pr
}

// Stop cancels the presenter and waits for it to exit. No edit is made
// once Stop returns.
func (pr *Presenter) Stop() {
	if pr == nil {
		return
	}
	pr.cancel()
	<-pr.done
}

func (pr *Presenter) loop(ctx context.Context, cfg presenterConfig) {
	defer close(pr.done)

	for {
		elapsed := cfg.now().Sub(cfg.started).Seconds()
		if elapsed > cfg.track.Duration {
			break
		}
		if ctx.Err() != nil {
			return
		}
		if err := cfg.board.Edit(ctx, cfg.messageID, BuildPlayingEmbed(cfg.track, elapsed)); err != nil {
			if errors.Is(err, ErrStatusGone) || ctx.Err() != nil {
				return
			}
			cfg.log.Debug("progress edit failed", "message", cfg.messageID, "err", err)
		}

		t := time.NewTimer(cfg.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := cfg.board.Edit(ctx, cfg.messageID, BuildFinishedEmbed()); err != nil && !errors.Is(err, ErrStatusGone) {
		cfg.log.Debug("finish edit failed", "message", cfg.messageID, "err", err)
	}
}
