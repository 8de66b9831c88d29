package player

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaqueue/internal/store"
	"github.com/sonroyaalmerol/kumaqueue/internal/utils"
)

const (
	colorPlaying  = 0x3498DB
	colorFinished = 0x2ECC71
	colorSkipped  = 0xE67E22
	colorStopped  = 0xE74C3C

	barWidth = 10
)

func progressLine(t store.Track, elapsed float64) string {
	progress := 0.0
	if t.Duration > 0 {
		progress = elapsed / t.Duration
	}
	return fmt.Sprintf("[%s] %s / %s",
		ProgressBar(barWidth, progress),
		utils.PrettySeconds(elapsed),
		utils.PrettySeconds(t.Duration),
	)
}

func BuildPlayingEmbed(t store.Track, elapsed float64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🎶 Now Playing",
		Description: fmt.Sprintf("%s\n%s\nRequested by: %s",
			progressLine(t, elapsed), t.Title, t.Requester),
		Color: colorPlaying,
	}
}

func BuildFinishedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎶 Now Playing",
		Description: "Track finished.",
		Color:       colorFinished,
	}
}

func BuildSkippedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Skipped",
		Description: "Track skipped by user.",
		Color:       colorSkipped,
	}
}

func BuildStoppedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎶 Music Stopped",
		Description: "Playback stopped.",
		Color:       colorStopped,
	}
}
