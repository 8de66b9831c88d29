package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ytdlp "github.com/lrstanley/go-ytdlp"
)

// AudioFormat asks yt-dlp for the best audio-only rendition, webm first.
const AudioFormat = "bestaudio[ext=webm]/bestaudio/best"

var ErrNoEntries = errors.New("yt-dlp returned no results")

type YTDLPInfo struct {
	Id               string
	Title            string
	Duration         float64
	IsLive           bool
	WebpageUrl       string
	Url              string
	RequestedFormats []string
	Formats          []string
}

// Media is the playable result of one extraction.
type Media struct {
	ID         string
	Title      string
	StreamURL  string
	WebpageURL string
	Duration   float64 // seconds, 0 when unknown
	IsLive     bool
}

var installOnce sync.Once

// helpers to safely read pointer fields with defaults
func s(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
func f(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}
func b(ptr *bool) bool {
	if ptr == nil {
		return false
	}
	return *ptr
}

func formatURLs(fs []*ytdlp.ExtractedFormat) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		if f == nil {
			continue
		}
		out = append(out, f.URL)
	}
	return out
}

func toInfo(e *ytdlp.ExtractedInfo) *YTDLPInfo {
	return &YTDLPInfo{
		Id:               e.ID,
		Title:            s(e.Title),
		Duration:         f(e.Duration),
		IsLive:           b(e.IsLive),
		WebpageUrl:       s(e.WebpageURL),
		Url:              s(e.URL),
		RequestedFormats: formatURLs(e.RequestedFormats),
		Formats:          formatURLs(e.Formats),
	}
}

// Ytdlp extracts single audio streams through the yt-dlp binary.
type Ytdlp struct {
	log *slog.Logger
}

func NewYtdlp(log *slog.Logger) *Ytdlp {
	if log == nil {
		log = slog.Default()
	}
	return &Ytdlp{log: log.With("component", "ytdlp")}
}

// SearchTarget turns free text into a single-result YouTube search; URLs pass through.
func SearchTarget(query string) string {
	q := strings.TrimSpace(query)
	if strings.HasPrefix(q, "http://") || strings.HasPrefix(q, "https://") || strings.HasPrefix(q, "ytsearch") {
		return q
	}
	return "ytsearch1:" + q
}

// Extract runs yt-dlp -J against query (URL or free text) and returns the
// first entry with a stream URL.
func (y *Ytdlp) Extract(ctx context.Context, query string) (*Media, error) {
	installOnce.Do(func() {
		// cmd.Run surfaces a missing binary if this did not work
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			y.log.Warn("yt-dlp install check failed", "err", err)
		}
	})

	target := SearchTarget(query)
	cmd := ytdlp.New().
		Format(AudioFormat).
		NoPlaylist().
		NoCheckCertificates().
		DumpJSON()

	y.log.Debug("extracting", "target", target)
	res, err := cmd.Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp json: %w", err)
	}

	var picked *YTDLPInfo
	for _, ext := range infos {
		if ext == nil {
			continue
		}
		if len(ext.Entries) > 0 {
			for _, e := range ext.Entries {
				if e != nil {
					picked = toInfo(e)
					break
				}
			}
		} else {
			picked = toInfo(ext)
		}
		if picked != nil {
			break
		}
	}
	if picked == nil {
		return nil, ErrNoEntries
	}
	return MediaFromInfo(picked), nil
}

func MediaFromInfo(info *YTDLPInfo) *Media {
	return &Media{
		ID:         info.Id,
		Title:      info.Title,
		StreamURL:  YtdlpAudioURL(info),
		WebpageURL: info.WebpageUrl,
		Duration:   max(0, info.Duration),
		IsLive:     info.IsLive,
	}
}

// YtdlpAudioURL returns the best playable URL.
// Preferred order: requested_formats, top-level url, then formats[] (which
// yt-dlp lists worst to best).
func YtdlpAudioURL(info *YTDLPInfo) string {
	for _, u := range info.RequestedFormats {
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	if strings.HasPrefix(info.Url, "http") {
		return info.Url
	}
	for i := len(info.Formats) - 1; i >= 0; i-- {
		if strings.HasPrefix(info.Formats[i], "http") {
			return info.Formats[i]
		}
	}
	return ""
}
