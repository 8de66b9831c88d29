package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

// firstenv returns the first non-empty value among keys.
func firstenv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func atoiDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func durationDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	// plain number of seconds
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

// LoadConfig reads configuration from the process environment. Files in envFiles
// are loaded first with godotenv; a missing file is not an error and variables
// already present in the environment win.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, ErrConfig("load " + f + ": " + err.Error())
		}
	}

	dataDir := getenv("DATA_DIR", "./data")
	rate, err := strconv.ParseFloat(getenv("SPOTIFY_RESOLVE_RATE", "2"), 64)
	if err != nil || rate <= 0 {
		rate = 2
	}

	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		// spotipy-style names are accepted so existing deployments keep working
		SpotifyClientID:     firstenv("SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID"),
		SpotifyClientSecret: firstenv("SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET"),
		CommandPrefix:       getenv("COMMAND_PREFIX", "!"),
		DataDir:             dataDir,
		QueueFile:           getenv("QUEUE_FILE", filepath.Join("json", "music.json")),
		FFmpegPath:          getenv("FFMPEG_PATH", "ffmpeg"),
		ProgressInterval:    durationDefault(os.Getenv("PROGRESS_INTERVAL"), 10*time.Second),
		QueueViewTimeout:    durationDefault(os.Getenv("QUEUE_VIEW_TIMEOUT"), 60*time.Second),
		PlaylistLimit:       max(0, atoiDefault(getenv("PLAYLIST_LIMIT", "0"), 0)),
		SpotifyResolveRate:  rate,
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogColor:            getenv("LOG_COLOR", "true") == "true",
	}

	if cfg.DiscordToken == "" {
		return nil, ErrConfig("DISCORD_TOKEN required")
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)
	return cfg, nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
