package config

import "time"

type Config struct {
	DiscordToken        string
	SpotifyClientID     string
	SpotifyClientSecret string
	CommandPrefix       string
	DataDir             string
	QueueFile           string
	FFmpegPath          string
	ProgressInterval    time.Duration
	QueueViewTimeout    time.Duration
	PlaylistLimit       int
	SpotifyResolveRate  float64 // yt-dlp lookups per second while expanding Spotify collections
	LogLevel            string  // debug/info/warn/error
	LogColor            bool
}

func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}
