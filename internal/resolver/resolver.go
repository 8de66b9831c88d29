// Package resolver turns a play request (free text, YouTube URL, Spotify link)
// into playable tracks. Spotify only provides metadata, so every Spotify item
// is re-resolved as a "<track> <artist>" search against YouTube.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"github.com/sonroyaalmerol/kumaqueue/internal/spotify"
	"github.com/sonroyaalmerol/kumaqueue/internal/store"
	"github.com/sonroyaalmerol/kumaqueue/internal/stream"
)

var (
	ErrNoStream        = errors.New("no playable stream found")
	ErrSpotifyDisabled = errors.New("spotify is not configured")
)

type Source int

const (
	SourceYouTube Source = iota
	SourceSpotifyTrack
	SourceSpotifyPlaylist
	SourceSpotifyAlbum
)

// Collection reports whether a source expands to many tracks.
func (s Source) Collection() bool {
	return s == SourceSpotifyPlaylist || s == SourceSpotifyAlbum
}

func (s Source) String() string {
	switch s {
	case SourceSpotifyTrack:
		return "spotify track"
	case SourceSpotifyPlaylist:
		return "spotify playlist"
	case SourceSpotifyAlbum:
		return "spotify album"
	default:
		return "youtube"
	}
}

type Extractor interface {
	Extract(ctx context.Context, query string) (*stream.Media, error)
}

type Searcher interface {
	First(ctx context.Context, query string) (string, error)
}

type Catalog interface {
	GetTrack(ctx context.Context, id spotifyapi.ID) (spotify.Track, error)
	GetPlaylist(ctx context.Context, id spotifyapi.ID, limit int) ([]spotify.Track, spotify.PlaylistMeta, error)
	GetAlbum(ctx context.Context, id spotifyapi.ID, limit int) ([]spotify.Track, spotify.PlaylistMeta, error)
}

// Event is one resolved track, or a failure that ends the stream.
type Event struct {
	Track  store.Track
	Source Source
	Err    error
}

type Options struct {
	Searcher      Searcher // optional
	Catalog       Catalog  // nil disables Spotify links
	RatePerSecond float64  // pacing of per-item lookups in collections; <= 0 means unlimited
	PlaylistLimit int      // 0 means no limit
	Logger        *slog.Logger
}

type Resolver struct {
	ext           Extractor
	search        Searcher
	catalog       Catalog
	limiter       *rate.Limiter
	playlistLimit int
	log           *slog.Logger
}

func New(ext Extractor, opts Options) *Resolver {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		ext:           ext,
		search:        opts.Searcher,
		catalog:       opts.Catalog,
		limiter:       rate.NewLimiter(limit, 1),
		playlistLimit: opts.PlaylistLimit,
		log:           log.With("component", "resolver"),
	}
}

func isURL(q string) bool {
	return strings.HasPrefix(q, "http://") || strings.HasPrefix(q, "https://")
}

// Direct resolves a URL or free-text query to a single playable stream.
func (r *Resolver) Direct(ctx context.Context, query string) (*stream.Media, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, ErrNoStream
	}
	target := q
	if !isURL(q) && r.search != nil {
		if u, err := r.search.First(ctx, q); err == nil && u != "" {
			target = u
		} else {
			r.log.Debug("search lookup failed, falling back to ytsearch", "query", q, "err", err)
		}
	}

	m, err := r.ext.Extract(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", q, err)
	}
	if m == nil || m.StreamURL == "" {
		return nil, ErrNoStream
	}
	return m, nil
}

// Resolve streams the tracks for query. The channel is closed when resolution
// is complete or ctx is done. Collection items that cannot be resolved are
// skipped; any other failure is delivered as a final Event with Err set.
func (r *Resolver) Resolve(ctx context.Context, query, requester string) <-chan Event {
	ch := make(chan Event, 8)

	go func() {
		defer close(ch)
		send := func(ev Event) bool {
			select {
			case <-ctx.Done():
				return false
			case ch <- ev:
				return true
			}
		}

		q := strings.TrimSpace(query)
		if !spotify.IsSpotify(q) {
			m, err := r.Direct(ctx, q)
			if err != nil {
				send(Event{Source: SourceYouTube, Err: err})
				return
			}
			send(Event{Source: SourceYouTube, Track: store.Track{
				Title:     m.Title,
				URL:       m.StreamURL,
				Requester: requester,
				Duration:  m.Duration,
			}})
			return
		}

		if r.catalog == nil {
			send(Event{Source: SourceSpotifyTrack, Err: ErrSpotifyDisabled})
			return
		}
		typ, id, err := spotify.ParseID(q)
		if err != nil {
			send(Event{Source: SourceSpotifyTrack, Err: fmt.Errorf("invalid spotify link: %w", err)})
			return
		}

		switch typ {
		case "track":
			t, err := r.catalog.GetTrack(ctx, id)
			if err != nil {
				send(Event{Source: SourceSpotifyTrack, Err: fmt.Errorf("spotify track %s: %w", id, err)})
				return
			}
			tr, err := r.fromCatalog(ctx, t, requester)
			if err != nil {
				send(Event{Source: SourceSpotifyTrack, Err: err})
				return
			}
			send(Event{Source: SourceSpotifyTrack, Track: tr})

		case "playlist", "album":
			src := SourceSpotifyPlaylist
			get := r.catalog.GetPlaylist
			if typ == "album" {
				src = SourceSpotifyAlbum
				get = r.catalog.GetAlbum
			}
			tracks, meta, err := get(ctx, id, r.playlistLimit)
			if err != nil {
				send(Event{Source: src, Err: fmt.Errorf("spotify %s %s: %w", typ, id, err)})
				return
			}
			r.log.Info("expanding spotify collection", "type", typ, "title", meta.Title, "tracks", len(tracks), "skipped", meta.Skipped)
			for _, t := range tracks {
				if err := r.limiter.Wait(ctx); err != nil {
					return
				}
				tr, err := r.fromCatalog(ctx, t, requester)
				if err != nil {
					r.log.Debug("skipping unresolvable item", "track", t.Title(), "err", err)
					continue
				}
				if !send(Event{Source: src, Track: tr}) {
					return
				}
			}

		default:
			send(Event{Source: SourceSpotifyTrack, Err: fmt.Errorf("unsupported spotify type: %s", typ)})
		}
	}()

	return ch
}

func (r *Resolver) fromCatalog(ctx context.Context, t spotify.Track, requester string) (store.Track, error) {
	m, err := r.Direct(ctx, t.Query())
	if err != nil {
		return store.Track{}, err
	}
	return store.Track{
		Title:     t.Title(),
		URL:       m.StreamURL,
		Requester: requester,
		Duration:  m.Duration,
	}, nil
}
