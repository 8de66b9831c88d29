package handlers

import (
	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaqueue/internal/ui"
)

func (h *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		h.log.Debug("interaction: ignored type", "type", i.Type, "guildID", i.GuildID)
		return
	}
	data := i.MessageComponentData()
	if _, _, ok := ui.ParseCustomID(data.CustomID); !ok {
		return
	}

	res := h.views.Press(data.CustomID, userIDOf(i))
	if !res.Accepted {
		// acknowledge without changing anything
		h.respond(s, i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
		return
	}
	h.respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{res.Embed},
			Components: res.Components,
		},
	})
}

func (h *CommandHandler) respond(s *discordgo.Session, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		h.log.Warn("interaction response failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

// expireView strips the paging buttons once a queue view times out.
func (h *CommandHandler) expireView(s *discordgo.Session, v *ui.QueueView) {
	if v.MessageID == "" {
		return
	}
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         v.MessageID,
		Channel:    v.ChannelID,
		Components: &[]discordgo.MessageComponent{},
	})
	if err != nil && !isGone(err) {
		h.log.Debug("failed to remove queue buttons", "messageID", v.MessageID, "err", err)
	}
}

func userIDOf(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
