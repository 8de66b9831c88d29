package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

type Track struct {
	Name   string
	Artist string
}

// Query is the search string used to find a playable copy of t.
func (t Track) Query() string {
	return strings.TrimSpace(t.Name + " " + t.Artist)
}

// Title is the display title stored for a track resolved from Spotify.
func (t Track) Title() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Name + " / " + t.Artist
}

type PlaylistMeta struct {
	Title  string
	Source string
	// Skipped counts items without an underlying track (removed or region locked).
	Skipped int
}

type Client struct {
	raw *spotify.Client
}

func NewClientCredentials(clientID, clientSecret string) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify client credentials missing")
	}
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	cl := spotify.New(httpClient, spotify.WithRetry(true))
	return &Client{raw: cl}, nil
}

// IsSpotify reports whether raw looks like a Spotify URL or URI.
func IsSpotify(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "spotify:") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), "spotify.com")
}

func ParseID(raw string) (typ string, id spotify.ID, err error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) == 3 && parts[2] != "" {
			return parts[1], spotify.ID(parts[2]), nil
		}
		return "", "", fmt.Errorf("invalid spotify URI")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	host := strings.ToLower(u.Hostname())
	if host != "open.spotify.com" && host != "www.open.spotify.com" && host != "play.spotify.com" {
		return "", "", fmt.Errorf("not a spotify URL")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// localized links look like /intl-de/track/<id>
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid spotify URL path")
	}
	switch parts[0] {
	case "album", "playlist", "track":
		return parts[0], spotify.ID(parts[1]), nil
	}
	return "", "", fmt.Errorf("unsupported spotify type %q", parts[0])
}

func (c *Client) GetAlbum(ctx context.Context, id spotify.ID, limit int) ([]Track, PlaylistMeta, error) {
	alb, err := c.raw.GetAlbum(ctx, id)
	if err != nil {
		return nil, PlaylistMeta{}, err
	}
	page, err := c.raw.GetAlbumTracks(ctx, id)
	if err != nil {
		return nil, PlaylistMeta{}, err
	}
	out := make([]Track, 0, page.Total)
	add := func(items []spotify.SimpleTrack) {
		for _, t := range items {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, Track{Name: t.Name, Artist: primaryArtist(t.Artists)})
		}
	}
	add(page.Tracks)
	for page.Next != "" && (limit == 0 || len(out) < limit) {
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
		add(page.Tracks)
	}
	meta := PlaylistMeta{Title: alb.Name, Source: alb.ExternalURLs["spotify"]}
	return out, meta, nil
}

func (c *Client) GetPlaylist(ctx context.Context, id spotify.ID, limit int) ([]Track, PlaylistMeta, error) {
	pl, err := c.raw.GetPlaylist(ctx, id)
	if err != nil {
		return nil, PlaylistMeta{}, err
	}
	page, err := c.raw.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, PlaylistMeta{}, err
	}
	out := make([]Track, 0, page.Total)
	skipped := 0
	add := func(items []spotify.PlaylistItem) {
		for _, it := range items {
			if limit > 0 && len(out) >= limit {
				break
			}
			t := it.Track.Track
			if t == nil {
				skipped++
				continue
			}
			out = append(out, Track{Name: t.Name, Artist: primaryArtist(t.Artists)})
		}
	}
	add(page.Items)
	for page.Next != "" && (limit == 0 || len(out) < limit) {
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
		add(page.Items)
	}
	meta := PlaylistMeta{Title: pl.Name, Source: pl.ExternalURLs["spotify"], Skipped: skipped}
	return out, meta, nil
}

func (c *Client) GetTrack(ctx context.Context, id spotify.ID) (Track, error) {
	t, err := c.raw.GetTrack(ctx, id)
	if err != nil {
		return Track{}, err
	}
	return Track{Name: t.Name, Artist: primaryArtist(t.Artists)}, nil
}

func primaryArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}
