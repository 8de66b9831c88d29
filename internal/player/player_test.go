package player

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaqueue/internal/repository"
	"github.com/sonroyaalmerol/kumaqueue/internal/store"
)

type fakeOutput struct {
	mu           sync.Mutex
	played       []string
	disconnected int
	release      chan error
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{release: make(chan error)}
}

func (o *fakeOutput) Play(ctx context.Context, url string) error {
	o.mu.Lock()
	o.played = append(o.played, url)
	o.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-o.release:
		return err
	}
}

func (o *fakeOutput) Disconnect() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disconnected++
	return nil
}

func (o *fakeOutput) Played() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.played...)
}

type fakeBoard struct {
	mu    sync.Mutex
	calls int
	posts []*discordgo.MessageEmbed
	edits map[string][]*discordgo.MessageEmbed
	notes []string
	gone  bool
	// gate, when set, holds the first Post until it is closed
	gate    chan struct{}
	entered chan struct{}
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{edits: map[string][]*discordgo.MessageEmbed{}}
}

func (b *fakeBoard) Post(_ context.Context, e *discordgo.MessageEmbed) (string, error) {
	b.mu.Lock()
	b.calls++
	id := fmt.Sprintf("m%d", b.calls)
	gate := b.gate
	b.gate = nil
	b.mu.Unlock()

	if gate != nil {
		close(b.entered)
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = append(b.posts, e)
	return id, nil
}

func (b *fakeBoard) postWith(needle string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.posts {
		if strings.Contains(p.Description, needle) {
			return true
		}
	}
	return false
}

func (b *fakeBoard) Edit(_ context.Context, id string, e *discordgo.MessageEmbed) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gone {
		return ErrStatusGone
	}
	b.edits[id] = append(b.edits[id], e)
	return nil
}

func (b *fakeBoard) Notify(_ context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes = append(b.notes, text)
	return nil
}

func (b *fakeBoard) Posts() []*discordgo.MessageEmbed {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*discordgo.MessageEmbed(nil), b.posts...)
}

func (b *fakeBoard) Edits(id string) []*discordgo.MessageEmbed {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*discordgo.MessageEmbed(nil), b.edits[id]...)
}

func (b *fakeBoard) Notes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.notes...)
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []repository.PlayRecord
}

func (r *fakeRecorder) RecordPlay(_ context.Context, rec repository.PlayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *fakeRecorder) Records() []repository.PlayRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.PlayRecord(nil), r.recs...)
}

type fakeClock struct {
	base   time.Time
	offset atomic.Int64
}

func newFakeClock() *fakeClock {
	return &fakeClock{base: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.base.Add(time.Duration(c.offset.Load())) }

func (c *fakeClock) Advance(d time.Duration) { c.offset.Add(int64(d)) }

type harness struct {
	p     *Player
	qs    *store.QueueStore
	out   *fakeOutput
	board *fakeBoard
	rec   *fakeRecorder
	clock *fakeClock
}

func newHarness(t *testing.T, tracks ...store.Track) *harness {
	t.Helper()
	qs, err := store.Open(filepath.Join(t.TempDir(), "music.json"))
	require.NoError(t, err)
	if len(tracks) > 0 {
		_, err = qs.Append("g1", tracks...)
		require.NoError(t, err)
	}
	h := &harness{
		qs:    qs,
		out:   newFakeOutput(),
		board: newFakeBoard(),
		rec:   &fakeRecorder{},
		clock: newFakeClock(),
	}
	h.p = NewPlayer("g1", qs, Options{
		Recorder:         h.rec,
		ProgressInterval: time.Hour,
		Now:              h.clock.Now,
	})
	h.p.Attach(h.out)
	h.p.Bind(h.board)
	t.Cleanup(h.p.Shutdown)
	return h
}

var (
	trackA = store.Track{Title: "A", URL: "https://a", Requester: "alice", Duration: 180}
	trackB = store.Track{Title: "B", URL: "https://b", Requester: "bob", Duration: 200}
)

func TestAdvanceNotConnected(t *testing.T) {
	qs, err := store.Open(filepath.Join(t.TempDir(), "music.json"))
	require.NoError(t, err)
	p := NewPlayer("g1", qs, Options{})

	_, err = p.Advance(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestAdvanceEmptyQueue(t *testing.T) {
	h := newHarness(t)

	playing, err := h.p.Advance(context.Background())
	require.NoError(t, err)
	assert.False(t, playing)
	assert.Equal(t, []string{"Queue exhausted."}, h.board.Notes())
	assert.Equal(t, StatusIdle, h.p.Status())
}

func TestAdvancePopsAndPosts(t *testing.T) {
	h := newHarness(t, trackA, trackB)

	playing, err := h.p.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, playing)

	require.Eventually(t, func() bool { return len(h.out.Played()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://a", h.out.Played()[0])

	posts := h.board.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "[□□□□□□□□□□] 0:00 / 3:00\nA\nRequested by: alice", posts[0].Description)

	q, err := h.qs.Queue("g1")
	require.NoError(t, err)
	assert.Equal(t, []store.Track{trackB}, q)

	// a second Advance while playing is a no-op
	playing, err = h.p.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, playing)
	assert.Len(t, h.out.Played(), 1)
}

func TestSkipStartsNextTrack(t *testing.T) {
	h := newHarness(t, trackA, trackB)

	_, err := h.p.Advance(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(h.out.Played()) == 1 }, time.Second, 5*time.Millisecond)

	h.clock.Advance(42 * time.Second)
	require.NoError(t, h.p.Skip(context.Background()))

	edits := h.board.Edits("m1")
	require.NotEmpty(t, edits)
	assert.Equal(t, "Skipped", edits[len(edits)-1].Title)

	require.Eventually(t, func() bool { return len(h.board.Posts()) == 2 }, time.Second, 5*time.Millisecond)
	posts := h.board.Posts()
	assert.Equal(t, "[□□□□□□□□□□] 0:00 / 3:20\nB\nRequested by: bob", posts[1].Description)
	require.Eventually(t, func() bool { return len(h.out.Played()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"https://a", "https://b"}, h.out.Played())

	// nothing edits the skipped message afterwards
	assert.Len(t, h.board.Edits("m1"), len(edits))

	recs := h.rec.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, repository.OutcomeSkipped, recs[0].Outcome)
	assert.Equal(t, "A", recs[0].Title)
}

func TestSkipNothingPlaying(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.p.Skip(context.Background()), ErrNothingPlaying)
}

func TestTrackEndAdvances(t *testing.T) {
	h := newHarness(t, trackA, trackB)

	_, err := h.p.Advance(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(h.out.Played()) == 1 }, time.Second, 5*time.Millisecond)

	h.out.release <- nil
	require.Eventually(t, func() bool { return len(h.out.Played()) == 2 }, time.Second, 5*time.Millisecond)

	h.out.release <- fmt.Errorf("stream dropped")
	require.Eventually(t, func() bool { return len(h.board.Notes()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Queue exhausted.", h.board.Notes()[0])
	assert.False(t, h.p.Playing())

	recs := h.rec.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, repository.OutcomeFinished, recs[0].Outcome)
	assert.Equal(t, repository.OutcomeFailed, recs[1].Outcome)
}

func TestStopClearsQueueWithoutAdvancing(t *testing.T) {
	h := newHarness(t, trackA, trackB)

	_, err := h.p.Advance(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(h.out.Played()) == 1 }, time.Second, 5*time.Millisecond)

	h.p.Stop(context.Background())

	n, err := h.qs.Len("g1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, h.out.disconnected)
	assert.Equal(t, StatusStopped, h.p.Status())

	edits := h.board.Edits("m1")
	require.NotEmpty(t, edits)
	assert.Equal(t, "🎶 Music Stopped", edits[len(edits)-1].Title)

	require.Eventually(t, func() bool { return len(h.rec.Records()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, repository.OutcomeStopped, h.rec.Records()[0].Outcome)
	assert.Len(t, h.board.Posts(), 1)
	assert.Empty(t, h.board.Notes())

	_, err = h.p.Advance(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestStopWhenIdle(t *testing.T) {
	h := newHarness(t, trackA)
	h.p.Stop(context.Background())

	n, err := h.qs.Len("g1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSkipDuringStatusPost(t *testing.T) {
	h := newHarness(t, trackA, trackB)
	gate := make(chan struct{})
	h.board.gate = gate
	h.board.entered = make(chan struct{})

	advanced := make(chan error, 1)
	go func() {
		_, err := h.p.Advance(context.Background())
		advanced <- err
	}()
	<-h.board.entered
	require.Eventually(t, func() bool { return len(h.out.Played()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.p.Skip(context.Background()))
	close(gate)
	require.NoError(t, <-advanced)

	edits := h.board.Edits("m1")
	require.NotEmpty(t, edits)
	assert.Equal(t, "Skipped", edits[len(edits)-1].Title)

	require.Eventually(t, func() bool { return h.board.postWith("\nB\nRequested by: bob") }, time.Second, 5*time.Millisecond)
	assert.Len(t, h.board.Edits("m1"), len(edits))
}

func TestStopDuringStatusPost(t *testing.T) {
	h := newHarness(t, trackA, trackB)
	gate := make(chan struct{})
	h.board.gate = gate
	h.board.entered = make(chan struct{})

	advanced := make(chan error, 1)
	go func() {
		_, err := h.p.Advance(context.Background())
		advanced <- err
	}()
	<-h.board.entered

	h.p.Stop(context.Background())
	close(gate)
	require.NoError(t, <-advanced)

	edits := h.board.Edits("m1")
	require.Len(t, edits, 1)
	assert.Equal(t, "🎶 Music Stopped", edits[0].Title)
	assert.Len(t, h.board.Posts(), 1)
}
