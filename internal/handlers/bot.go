package handlers

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaqueue/internal/config"
	"github.com/sonroyaalmerol/kumaqueue/internal/player"
	"github.com/sonroyaalmerol/kumaqueue/internal/repository"
	"github.com/sonroyaalmerol/kumaqueue/internal/resolver"
	"github.com/sonroyaalmerol/kumaqueue/internal/store"
	"github.com/sonroyaalmerol/kumaqueue/internal/ui"
)

type Bot struct {
	cfg *config.Config
	pm  *player.PlayerManager
	cmd *CommandHandler
	log *slog.Logger
}

// NewBot wires the command handler. repo may be nil, which disables the play
// history.
func NewBot(cfg *config.Config, qs *store.QueueStore, repo *repository.Repo, res *resolver.Resolver, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	var rec player.Recorder
	if repo != nil {
		rec = repo
	}
	pm := player.NewPlayerManager(func(guildID string) *player.Player {
		return player.NewPlayer(guildID, qs, player.Options{
			Recorder:         rec,
			ProgressInterval: cfg.ProgressInterval,
			Logger:           log,
		})
	})
	cmd := &CommandHandler{
		cfg:      cfg,
		store:    qs,
		repo:     repo,
		resolver: res,
		pm:       pm,
		log:      log.With("component", "commands"),
	}
	return &Bot{cfg: cfg, pm: pm, cmd: cmd, log: log.With("component", "bot")}
}

func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	b.cmd.views = ui.NewViews(b.cfg.QueueViewTimeout, func(v *ui.QueueView) {
		b.cmd.expireView(dg, v)
	})
	defer b.cmd.views.Close()

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("connected", "user", s.State.User.Username, "guilds", len(r.Guilds), "prefix", b.cfg.CommandPrefix)
	})
	dg.AddHandler(b.cmd.HandleMessage)
	dg.AddHandler(b.cmd.HandleInteraction)

	// the bot was moved out of voice by someone else
	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if s.State.User == nil || vs.UserID != s.State.User.ID || vs.ChannelID != "" {
			return
		}
		p := b.pm.Peek(vs.GuildID)
		if p == nil || !p.Connected() {
			return
		}
		b.log.Info("disconnected from voice externally", "guildID", vs.GuildID)
		p.Shutdown()
	})

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	<-ctx.Done()
	b.log.Info("shutting down")
	b.pm.ShutdownAll()
	return nil
}
