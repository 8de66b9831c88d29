package store

type RepeatMode string

const RepeatOff RepeatMode = "off"

// Track is one queued item. URL is the direct (time-limited) stream URL.
type Track struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Requester string  `json:"requester"`
	Duration  float64 `json:"duration"` // seconds, 0 when unknown
}

type GuildMusic struct {
	Queue      []Track    `json:"queue"`
	RepeatMode RepeatMode `json:"repeat_mode"`
}

// Snapshot is the whole persisted file: guild id -> state.
type Snapshot map[string]*GuildMusic

func newGuildMusic() *GuildMusic {
	return &GuildMusic{Queue: []Track{}, RepeatMode: RepeatOff}
}
