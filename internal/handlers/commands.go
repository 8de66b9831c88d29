package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaqueue/internal/config"
	plib "github.com/sonroyaalmerol/kumaqueue/internal/player"
	"github.com/sonroyaalmerol/kumaqueue/internal/repository"
	"github.com/sonroyaalmerol/kumaqueue/internal/resolver"
	"github.com/sonroyaalmerol/kumaqueue/internal/store"
	"github.com/sonroyaalmerol/kumaqueue/internal/stream"
	"github.com/sonroyaalmerol/kumaqueue/internal/ui"
	"github.com/sonroyaalmerol/kumaqueue/internal/utils"
)

const historySize = 10

type CommandHandler struct {
	cfg      *config.Config
	store    *store.QueueStore
	repo     *repository.Repo
	resolver *resolver.Resolver
	pm       *plib.PlayerManager
	views    *ui.Views
	log      *slog.Logger
}

// parseCommand splits "<prefix>name rest" into its name and argument.
func parseCommand(prefix, content string) (name, arg string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	body := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if body == "" {
		return "", "", false
	}
	name, arg, _ = strings.Cut(body, " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}

func (h *CommandHandler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	name, arg, ok := parseCommand(h.cfg.CommandPrefix, m.Content)
	if !ok {
		return
	}

	switch name {
	case "play":
		h.log.Info("cmd play", "guildID", m.GuildID, "userID", m.Author.ID, "query", arg)
		h.cmdPlay(s, m, arg)
	case "skip":
		h.log.Info("cmd skip", "guildID", m.GuildID, "userID", m.Author.ID)
		h.cmdSkip(s, m)
	case "stop":
		h.log.Info("cmd stop", "guildID", m.GuildID, "userID", m.Author.ID)
		h.cmdStop(s, m)
	case "track":
		h.cmdTrack(s, m)
	case "history":
		h.cmdHistory(s, m)
	default:
		h.log.Debug("unknown command", "name", name, "guildID", m.GuildID, "userID", m.Author.ID)
	}
}

func (h *CommandHandler) send(s *discordgo.Session, channelID, content string) {
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		h.log.Warn("send failed", "channelID", channelID, "err", err)
	}
}

func userInVoice(s *discordgo.Session, guildID, userID string) (channelID string, ok bool) {
	g, _ := s.State.Guild(guildID)
	if g == nil {
		g, _ = s.Guild(guildID)
	}
	if g == nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}

func (h *CommandHandler) startIfIdle(p *plib.Player) {
	if _, err := p.Advance(context.Background()); err != nil {
		h.log.Error("failed to start playback", "guildID", p.GuildID, "err", err)
	}
}

func (h *CommandHandler) cmdPlay(s *discordgo.Session, m *discordgo.MessageCreate, query string) {
	guildID := m.GuildID

	chID, ok := userInVoice(s, guildID, m.Author.ID)
	if !ok {
		h.send(s, m.ChannelID, "Join a voice channel first!")
		return
	}
	if query == "" {
		h.send(s, m.ChannelID, "❌ Please provide a title or URL.")
		return
	}

	p := h.pm.Get(guildID)
	p.Bind(newChannelBoard(s, m.ChannelID))
	if !p.Connected() {
		vc, err := s.ChannelVoiceJoin(guildID, chID, false, true)
		if err != nil {
			h.log.Warn("voice connect failed", "guildID", guildID, "channelID", chID, "err", err)
			h.send(s, m.ChannelID, fmt.Sprintf("❌ Failed to connect to the voice channel: %v", err))
			return
		}
		p.Attach(stream.NewVoiceOutput(vc, h.cfg.FFmpegPath, h.log))
	}

	h.send(s, m.ChannelID, "Processing request...")
	h.enqueue(context.Background(), p, query, m.Author.Username, func(content string) {
		h.send(s, m.ChannelID, content)
	})
}

// enqueue resolves query into guild p's queue, starting playback as soon as
// the first track lands. Every user-facing outcome goes through reply.
func (h *CommandHandler) enqueue(ctx context.Context, p *plib.Player, query, requester string, reply func(content string)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		added   int
		source  resolver.Source
		lastErr error
	)
	for ev := range h.resolver.Resolve(ctx, query, requester) {
		source = ev.Source
		if ev.Err != nil {
			lastErr = ev.Err
			continue
		}
		if _, err := h.store.Append(p.GuildID, ev.Track); err != nil {
			lastErr = err
			cancel()
			break
		}
		added++
		h.log.Debug("enqueued track", "guildID", p.GuildID, "title", ev.Track.Title, "source", ev.Source)

		if !ev.Source.Collection() {
			label := "YouTube"
			if ev.Source == resolver.SourceSpotifyTrack {
				label = "Spotify track"
			}
			reply(fmt.Sprintf("🎶 Added from %s: **%s**", label, utils.EscapeMd(ev.Track.Title)))
		}
		if added == 1 {
			h.startIfIdle(p)
		}
	}

	if lastErr != nil && added == 0 {
		switch {
		case errors.Is(lastErr, resolver.ErrNoStream):
			reply("❌ Couldn't stream that track from YouTube.")
		case errors.Is(lastErr, resolver.ErrSpotifyDisabled):
			reply("❌ Spotify links are not enabled on this bot.")
		default:
			h.log.Error("play request failed", "guildID", p.GuildID, "query", query, "err", lastErr)
			reply(fmt.Sprintf("❌ Failed to process request: %v", lastErr))
		}
		return
	}
	if source.Collection() {
		reply(fmt.Sprintf("🎶 Spotify %s loaded (%d tracks).", strings.TrimPrefix(source.String(), "spotify "), added))
	}
	if added == 0 {
		return
	}

	h.startIfIdle(p)
}

func (h *CommandHandler) cmdSkip(s *discordgo.Session, m *discordgo.MessageCreate) {
	p := h.pm.Peek(m.GuildID)
	if p == nil {
		h.send(s, m.ChannelID, "🚫 Nothing is playing.")
		return
	}
	if err := p.Skip(context.Background()); err != nil {
		if errors.Is(err, plib.ErrNothingPlaying) {
			h.send(s, m.ChannelID, "🚫 Nothing is playing.")
			return
		}
		h.log.Error("skip failed", "guildID", m.GuildID, "err", err)
		return
	}
	h.send(s, m.ChannelID, "⏭ Skipped.")
}

func (h *CommandHandler) cmdStop(s *discordgo.Session, m *discordgo.MessageCreate) {
	p := h.pm.Get(m.GuildID)
	h.log.Debug("stopping player", "guildID", m.GuildID, "status", p.Status())
	p.Stop(context.Background())
	h.send(s, m.ChannelID, "⏹ Music stopped.")
}

func (h *CommandHandler) cmdTrack(s *discordgo.Session, m *discordgo.MessageCreate) {
	q, err := h.store.Queue(m.GuildID)
	if err != nil {
		h.log.Error("read queue failed", "guildID", m.GuildID, "err", err)
		h.send(s, m.ChannelID, "❌ Failed to read the queue.")
		return
	}
	if len(q) == 0 {
		h.send(s, m.ChannelID, "🚫 Queue is empty.")
		return
	}

	v := ui.NewQueueView(m.Author.ID, q)
	msg, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{v.Embed()},
		Components: v.Components(),
	})
	if err != nil {
		h.log.Warn("send queue view failed", "guildID", m.GuildID, "err", err)
		return
	}
	v.ChannelID = msg.ChannelID
	v.MessageID = msg.ID
	h.views.Add(v)
}

func (h *CommandHandler) cmdHistory(s *discordgo.Session, m *discordgo.MessageCreate) {
	if h.repo == nil {
		h.send(s, m.ChannelID, "🚫 Play history is not available.")
		return
	}
	recs, err := h.repo.RecentPlays(context.Background(), m.GuildID, historySize)
	if err != nil {
		h.log.Error("read history failed", "guildID", m.GuildID, "err", err)
		h.send(s, m.ChannelID, "❌ Failed to read play history.")
		return
	}
	total, err := h.repo.CountPlays(context.Background(), m.GuildID)
	if err != nil {
		h.log.Warn("count plays failed", "guildID", m.GuildID, "err", err)
		total = len(recs)
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, ui.BuildHistoryEmbed(recs, total)); err != nil {
		h.log.Warn("send history failed", "guildID", m.GuildID, "err", err)
	}
}
