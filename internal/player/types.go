package player

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaqueue/internal/repository"
)

var (
	ErrNotConnected   = errors.New("not connected to a voice channel")
	ErrNothingPlaying = errors.New("nothing is playing")
	// ErrStatusGone is returned by a StatusBoard when the status message no
	// longer exists.
	ErrStatusGone = errors.New("status message is gone")
)

// Output plays a single stream until it ends or ctx is cancelled.
type Output interface {
	Play(ctx context.Context, streamURL string) error
	Disconnect() error
}

// StatusBoard is the text channel a guild's playback status is shown in.
type StatusBoard interface {
	Post(ctx context.Context, embed *discordgo.MessageEmbed) (messageID string, err error)
	Edit(ctx context.Context, messageID string, embed *discordgo.MessageEmbed) error
	Notify(ctx context.Context, text string) error
}

type Recorder interface {
	RecordPlay(ctx context.Context, rec repository.PlayRecord) error
}

type PlayerStatus int

const (
	StatusIdle PlayerStatus = iota
	StatusPlaying
	StatusSkipping
	StatusStopped
)

func (s PlayerStatus) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusSkipping:
		return "skipping"
	case StatusStopped:
		return "stopped"
	default:
		return "idle"
	}
}
