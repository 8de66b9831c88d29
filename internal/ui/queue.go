package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sonroyaalmerol/kumaqueue/internal/store"
	"github.com/sonroyaalmerol/kumaqueue/internal/utils"
)

const (
	PageSize = 10

	ActionPrev = "prev"
	ActionNext = "next"

	customIDPrefix = "queue"
	colorQueue     = 0x9B59B6
)

// QueueView pages through a snapshot of a guild queue taken when the view
// was opened. It is not safe for concurrent use; Views serializes access.
type QueueView struct {
	ID        string
	OwnerID   string
	ChannelID string
	MessageID string

	pages [][]store.Track
	page  int
}

func NewQueueView(ownerID string, tracks []store.Track) *QueueView {
	return &QueueView{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		pages:   lo.Chunk(tracks, PageSize),
	}
}

func (v *QueueView) Page() int { return v.page }

// Next moves forward one page and reports whether the page changed.
func (v *QueueView) Next() bool {
	if v.page+1 >= len(v.pages) {
		return false
	}
	v.page++
	return true
}

// Prev moves back one page and reports whether the page changed.
func (v *QueueView) Prev() bool {
	if v.page == 0 {
		return false
	}
	v.page--
	return true
}

func (v *QueueView) Embed() *discordgo.MessageEmbed {
	var b strings.Builder
	if v.page < len(v.pages) {
		start := v.page * PageSize
		for i, t := range v.pages[v.page] {
			fmt.Fprintf(&b, "%d. `%s` [%s] - %s\n",
				start+i+1, t.Title, utils.PrettySeconds(t.Duration), t.Requester)
		}
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🎵 Music Queue (Page %d)", v.page+1),
		Description: b.String(),
		Color:       colorQueue,
	}
}

func (v *QueueView) Components() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Style:    discordgo.SecondaryButton,
					CustomID: CustomID(ActionPrev, v.ID),
					Emoji:    &discordgo.ComponentEmoji{Name: "⬅️"},
				},
				discordgo.Button{
					Style:    discordgo.PrimaryButton,
					CustomID: CustomID(ActionNext, v.ID),
					Emoji:    &discordgo.ComponentEmoji{Name: "➡️"},
				},
			},
		},
	}
}

func CustomID(action, viewID string) string {
	return customIDPrefix + ":" + action + ":" + viewID
}

// ParseCustomID splits a queue button id into its action and view id.
func ParseCustomID(id string) (action, viewID string, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != customIDPrefix {
		return "", "", false
	}
	if parts[1] != ActionPrev && parts[1] != ActionNext {
		return "", "", false
	}
	return parts[1], parts[2], parts[2] != ""
}
