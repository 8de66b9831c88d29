package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"

	"github.com/sonroyaalmerol/kumaqueue/internal/repository"
	"github.com/sonroyaalmerol/kumaqueue/internal/utils"
)

const colorHistory = 0x95A5A6

var outcomeIcons = map[repository.Outcome]string{
	repository.OutcomeFinished: "✅",
	repository.OutcomeSkipped:  "⏭",
	repository.OutcomeStopped:  "⏹",
	repository.OutcomeFailed:   "❌",
}

// BuildHistoryEmbed lists recs; total is the guild's play count overall.
func BuildHistoryEmbed(recs []repository.PlayRecord, total int) *discordgo.MessageEmbed {
	if len(recs) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "📜 Recently Played",
			Description: "Nothing has been played yet.",
			Color:       colorHistory,
		}
	}
	lines := lo.Map(recs, func(r repository.PlayRecord, i int) string {
		icon, ok := outcomeIcons[r.Outcome]
		if !ok {
			icon = "•"
		}
		return fmt.Sprintf("%d. %s `%s` [%s] - %s <t:%d:R>",
			i+1, icon, utils.Truncate(r.Title, 80), utils.PrettySeconds(r.Duration),
			r.Requester, r.StartedAt.Unix())
	})
	return &discordgo.MessageEmbed{
		Title:       "📜 Recently Played",
		Description: strings.Join(lines, "\n"),
		Color:       colorHistory,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d plays in total", total),
		},
	}
}
