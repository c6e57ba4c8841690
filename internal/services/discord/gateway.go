package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"draftbot/internal/approval"
	"draftbot/internal/config"
	"draftbot/internal/logging"
	"draftbot/internal/services"
)

// NewSession creates an unopened bot session with the intents the approval
// loop needs.
func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	if cfg.Discord.BotToken == "" {
		return nil, &services.ConfigurationError{Key: "discord.bot_token", Err: fmt.Errorf("bot token is required")}
	}
	s, err := discordgo.New("Bot " + cfg.Discord.BotToken)
	if err != nil {
		return nil, &services.ConfigurationError{Key: "discord.bot_token", Err: err}
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions
	return s, nil
}

// Gateway relays marker reactions from the approval channel.
type Gateway struct {
	session      *discordgo.Session
	channelID    string
	approveEmoji string
	rejectEmoji  string
	logger       *slog.Logger
	now          func() time.Time

	reactions chan approval.Reaction
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.RWMutex
	botID   string
	onReady []func(botID string)
	remove  []func()
}

// NewGateway wraps session. Call Open to connect.
func NewGateway(cfg *config.Config, session *discordgo.Session, logger *slog.Logger) *Gateway {
	return &Gateway{
		session:      session,
		channelID:    cfg.Discord.ChannelID,
		approveEmoji: cfg.Discord.ApproveEmoji,
		rejectEmoji:  cfg.Discord.RejectEmoji,
		logger:       logging.NewComponentLogger(logger, "discord-gateway"),
		now:          time.Now,
		reactions:    make(chan approval.Reaction, 64),
		done:         make(chan struct{}),
	}
}

// OnReady registers fn to run with the bot's user id once the session is ready.
func (g *Gateway) OnReady(fn func(botID string)) {
	g.mu.Lock()
	g.onReady = append(g.onReady, fn)
	g.mu.Unlock()
}

// Reactions delivers marker reactions on the approval channel.
func (g *Gateway) Reactions() <-chan approval.Reaction {
	return g.reactions
}

// BotUserID returns the bot's own user id once known.
func (g *Gateway) BotUserID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.botID
}

// Open registers handlers and connects the websocket.
func (g *Gateway) Open(ctx context.Context) error {
	g.mu.Lock()
	g.remove = append(g.remove,
		g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { g.handleReady(r) }),
		g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) { g.handleReaction(ctx, r) }),
	)
	g.mu.Unlock()

	if err := g.session.Open(); err != nil {
		return &services.PublishError{Op: "connect", Err: classify(err)}
	}
	g.logger.Info("discord gateway connected",
		logging.Event("discord_connected"),
		logging.String("channel_id", g.channelID),
	)
	return nil
}

// Close disconnects the session and stops delivering reactions.
func (g *Gateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)
		g.mu.Lock()
		for _, rm := range g.remove {
			rm()
		}
		g.remove = nil
		g.mu.Unlock()
		err = g.session.Close()
	})
	return err
}

func (g *Gateway) handleReady(r *discordgo.Ready) {
	if r == nil || r.User == nil {
		return
	}
	g.mu.Lock()
	g.botID = r.User.ID
	callbacks := append([]func(string){}, g.onReady...)
	g.mu.Unlock()

	g.logger.Info("discord session ready",
		logging.Event("discord_ready"),
		logging.String("bot_user", r.User.Username),
	)
	for _, fn := range callbacks {
		fn(r.User.ID)
	}
}

// MarkerFor maps a reaction emoji to a marker.
func (g *Gateway) MarkerFor(emoji discordgo.Emoji) (approval.Marker, bool) {
	for _, name := range []string{emoji.Name, emoji.APIName()} {
		switch name {
		case g.approveEmoji:
			return approval.MarkerApprove, true
		case g.rejectEmoji:
			return approval.MarkerReject, true
		}
	}
	return "", false
}

func (g *Gateway) handleReaction(ctx context.Context, r *discordgo.MessageReactionAdd) {
	if r == nil || r.MessageReaction == nil {
		return
	}
	if r.ChannelID != g.channelID {
		return
	}
	if r.UserID == "" || r.UserID == g.BotUserID() {
		return
	}
	marker, ok := g.MarkerFor(r.Emoji)
	if !ok {
		return
	}
	reaction := approval.Reaction{
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Marker:    marker,
		At:        g.now(),
	}
	g.logger.Debug("marker reaction received",
		logging.MessageID(r.MessageID),
		logging.String("user_id", r.UserID),
		logging.String("marker", string(marker)),
	)
	select {
	case g.reactions <- reaction:
	case <-g.done:
	case <-ctx.Done():
	}
}
