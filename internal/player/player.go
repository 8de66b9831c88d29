package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaqueue/internal/repository"
	"github.com/sonroyaalmerol/kumaqueue/internal/store"
)

// session is the state of the track currently playing in a guild.
type session struct {
	track     store.Track
	started   time.Time
	statusID  string
	cancel    context.CancelFunc
	done      chan struct{}
	presenter *Presenter
	outcome   repository.Outcome
	stopped   bool
}

type Player struct {
	GuildID string

	store    *store.QueueStore
	recorder Recorder
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	out    Output
	board  StatusBoard
	sess   *session
	status PlayerStatus
}

type Options struct {
	Recorder         Recorder // optional
	ProgressInterval time.Duration
	Logger           *slog.Logger
	Now              func() time.Time
}

func NewPlayer(guildID string, qs *store.QueueStore, opts Options) *Player {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Player{
		GuildID:  guildID,
		store:    qs,
		recorder: opts.Recorder,
		log:      log.With("component", "player", "guildID", guildID),
		interval: interval,
		now:      now,
		status:   StatusIdle,
	}
}

// Attach sets the voice output used for the next track.
func (p *Player) Attach(out Output) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = out
	if p.status == StatusStopped {
		p.status = StatusIdle
	}
}

// Bind sets where status messages are posted.
func (p *Player) Bind(board StatusBoard) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.board = board
}

func (p *Player) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out != nil
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess != nil
}

func (p *Player) Status() PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Advance starts the next queued track. It reports whether a track is
// playing once it returns.
func (p *Player) Advance(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.out == nil {
		p.mu.Unlock()
		return false, ErrNotConnected
	}
	if p.sess != nil {
		p.mu.Unlock()
		return true, nil
	}

	t, ok, err := p.store.Pop(p.GuildID)
	if err != nil {
		p.mu.Unlock()
		return false, fmt.Errorf("pop queue: %w", err)
	}
	if !ok {
		p.status = StatusIdle
		board := p.board
		p.mu.Unlock()
		if board != nil {
			if err := board.Notify(ctx, "Queue exhausted."); err != nil {
				p.log.Warn("failed to announce empty queue", "err", err)
			}
		}
		return false, nil
	}

	playCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		track:   t,
		started: p.now(),
		cancel:  cancel,
		done:    make(chan struct{}),
		outcome: repository.OutcomeFinished,
	}
	p.sess = s
	p.status = StatusPlaying
	out, board := p.out, p.board
	p.mu.Unlock()

	p.log.Info("playing", "title", t.Title, "requester", t.Requester, "duration", t.Duration)
	go p.run(playCtx, s, out)

	if board == nil {
		return true, nil
	}
	id, err := board.Post(ctx, BuildPlayingEmbed(t, 0))
	if err != nil {
		p.log.Warn("failed to post now playing", "err", err)
		return true, nil
	}

	// Skip and Stop only edit once statusID is set; one that landed during
	// the post is applied here.
	p.mu.Lock()
	s.statusID = id
	var late *discordgo.MessageEmbed
	switch {
	case s.stopped:
		late = BuildStoppedEmbed()
	case s.outcome == repository.OutcomeSkipped:
		late = BuildSkippedEmbed()
	case p.sess != s:
		late = BuildFinishedEmbed()
	default:
		s.presenter = startPresenter(presenterConfig{
			board:     board,
			messageID: id,
			track:     t,
			started:   s.started,
			interval:  p.interval,
			now:       p.now,
			log:       p.log,
		})
	}
	p.mu.Unlock()

	if late != nil {
		if err := board.Edit(ctx, id, late); err != nil && !errors.Is(err, ErrStatusGone) {
			p.log.Debug("failed to update late status", "err", err)
		}
	}
	return true, nil
}

func (p *Player) run(ctx context.Context, s *session, out Output) {
	defer close(s.done)

	err := out.Play(ctx, s.track.URL)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.log.Warn("playback error", "title", s.track.Title, "err", err)
	}

	p.mu.Lock()
	current := p.sess == s
	if current {
		p.sess = nil
		if p.status == StatusPlaying || p.status == StatusSkipping {
			p.status = StatusIdle
		}
	}
	outcome := s.outcome
	var pres *Presenter
	if outcome == repository.OutcomeFinished && err != nil && !errors.Is(err, context.Canceled) {
		outcome = repository.OutcomeFailed
		pres = s.presenter
		s.presenter = nil
	}
	stopped := s.stopped
	p.mu.Unlock()

	// a failed track ends early, and so does its progress display
	pres.Stop()

	p.record(s, outcome)

	if !current || stopped {
		return
	}
	if _, err := p.Advance(context.Background()); err != nil {
		p.log.Error("failed to advance queue", "err", err)
	}
}

func (p *Player) record(s *session, outcome repository.Outcome) {
	if p.recorder == nil {
		return
	}
	rec := repository.PlayRecord{
		GuildID:   p.GuildID,
		Title:     s.track.Title,
		URL:       s.track.URL,
		Requester: s.track.Requester,
		Duration:  s.track.Duration,
		StartedAt: s.started,
		EndedAt:   p.now(),
		Outcome:   outcome,
	}
	if err := p.recorder.RecordPlay(context.Background(), rec); err != nil {
		p.log.Warn("failed to record play", "title", s.track.Title, "err", err)
	}
}

// Skip ends the current track; the queue then advances on its own.
func (p *Player) Skip(ctx context.Context) error {
	p.mu.Lock()
	s := p.sess
	if s == nil {
		p.mu.Unlock()
		return ErrNothingPlaying
	}
	s.outcome = repository.OutcomeSkipped
	p.status = StatusSkipping
	pres := s.presenter
	s.presenter = nil
	id := s.statusID
	board := p.board
	p.mu.Unlock()

	pres.Stop()
	if board != nil && id != "" {
		if err := board.Edit(ctx, id, BuildSkippedEmbed()); err != nil && !errors.Is(err, ErrStatusGone) {
			p.log.Debug("failed to mark status skipped", "err", err)
		}
	}
	s.cancel()
	p.log.Info("skipped", "title", s.track.Title)
	return nil
}

// Stop disconnects from voice and clears the queue without advancing.
func (p *Player) Stop(ctx context.Context) {
	p.mu.Lock()
	s := p.sess
	p.sess = nil
	out := p.out
	p.out = nil
	board := p.board
	p.status = StatusStopped
	var pres *Presenter
	var id string
	if s != nil {
		s.stopped = true
		s.outcome = repository.OutcomeStopped
		pres = s.presenter
		s.presenter = nil
		id = s.statusID
	}
	p.mu.Unlock()

	if out != nil {
		if err := out.Disconnect(); err != nil {
			p.log.Warn("voice disconnect failed", "err", err)
		}
	}
	pres.Stop()
	if s != nil {
		s.cancel()
	}
	if err := p.store.Clear(p.GuildID); err != nil {
		p.log.Error("failed to clear queue", "err", err)
	}
	if board != nil && id != "" {
		if err := board.Edit(ctx, id, BuildStoppedEmbed()); err != nil && !errors.Is(err, ErrStatusGone) {
			p.log.Debug("failed to mark status stopped", "err", err)
		}
	}
	p.log.Info("stopped")
}

// Shutdown ends playback and leaves voice but keeps the persisted queue.
func (p *Player) Shutdown() {
	p.mu.Lock()
	s := p.sess
	p.sess = nil
	out := p.out
	p.out = nil
	p.status = StatusStopped
	var pres *Presenter
	if s != nil {
		s.stopped = true
		s.outcome = repository.OutcomeStopped
		pres = s.presenter
		s.presenter = nil
	}
	p.mu.Unlock()

	pres.Stop()
	if s != nil {
		s.cancel()
		<-s.done
	}
	if out != nil {
		if err := out.Disconnect(); err != nil {
			p.log.Warn("voice disconnect failed", "err", err)
		}
	}
}
