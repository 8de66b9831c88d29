package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaqueue/internal/player"
)

// channelBoard posts playback status into the text channel a command came from.
type channelBoard struct {
	s         *discordgo.Session
	channelID string
}

func newChannelBoard(s *discordgo.Session, channelID string) *channelBoard {
	return &channelBoard{s: s, channelID: channelID}
}

func (b *channelBoard) Post(ctx context.Context, embed *discordgo.MessageEmbed) (string, error) {
	msg, err := b.s.ChannelMessageSendEmbed(b.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (b *channelBoard) Edit(ctx context.Context, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := b.s.ChannelMessageEditEmbed(b.channelID, messageID, embed, discordgo.WithContext(ctx))
	if isGone(err) {
		return player.ErrStatusGone
	}
	return err
}

func (b *channelBoard) Notify(ctx context.Context, text string) error {
	_, err := b.s.ChannelMessageSend(b.channelID, text, discordgo.WithContext(ctx))
	return err
}

// isGone reports whether err means the target message or channel was deleted.
func isGone(err error) bool {
	if err == nil {
		return false
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
