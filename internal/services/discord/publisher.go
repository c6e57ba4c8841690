package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"draftbot/internal/approval"
	"draftbot/internal/config"
	"draftbot/internal/drafts"
	"draftbot/internal/logging"
	"draftbot/internal/services"
	"draftbot/internal/services/homeassistant"
)

const (
	excerptLimit  = 2000
	colorPending  = 0x3498db
	colorApproved = 0x2ecc71
	colorRejected = 0xe74c3c
	colorExpired  = 0x95a5a6
)

// ErrUploadTooLarge marks an artifact above the channel's upload limit.
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

// MessageAPI is the subset of the Discord REST surface the publisher uses.
// *discordgo.Session satisfies it.
type MessageAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error)
}

// Publisher announces drafts in the approval channel.
type Publisher struct {
	api          MessageAPI
	channelID    string
	approveEmoji string
	rejectEmoji  string
	maxUpload    int64
	timeout      time.Duration
	logger       *slog.Logger
}

// NewPublisher builds a publisher for the configured channel.
func NewPublisher(cfg *config.Config, api MessageAPI, logger *slog.Logger) *Publisher {
	timeout := time.Duration(cfg.Discord.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Publisher{
		api:          api,
		channelID:    cfg.Discord.ChannelID,
		approveEmoji: cfg.Discord.ApproveEmoji,
		rejectEmoji:  cfg.Discord.RejectEmoji,
		maxUpload:    cfg.Discord.MaxUploadBytes,
		timeout:      timeout,
		logger:       logging.NewComponentLogger(logger, "discord"),
	}
}

// ChannelID returns the approval channel.
func (p *Publisher) ChannelID() string {
	return p.channelID
}

// Publish posts the draft with its audio attached and adds both markers.
// It returns the new message id.
func (p *Publisher) Publish(ctx context.Context, d drafts.Draft, art homeassistant.Artifact) (string, error) {
	size := art.Size
	if info, err := os.Stat(art.Path); err == nil {
		size = info.Size()
	} else {
		return "", &services.PublishError{Op: "attach", Err: fmt.Errorf("stat audio %s: %w", art.Path, err)}
	}
	if p.maxUpload > 0 && size > p.maxUpload {
		return "", &services.PublishError{Op: "attach", Err: fmt.Errorf("%w: %s is %s, limit %s",
			ErrUploadTooLarge, filepath.Base(art.Path), humanize.IBytes(uint64(size)), humanize.IBytes(uint64(p.maxUpload)))}
	}

	f, err := os.Open(art.Path)
	if err != nil {
		return "", &services.PublishError{Op: "attach", Err: err}
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contentType := art.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	msg, err := p.api.ChannelMessageSendComplex(p.channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{p.pendingEmbed(d, art, size)},
		Files: []*discordgo.File{{
			Name:        filepath.Base(art.Path),
			ContentType: contentType,
			Reader:      f,
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", &services.PublishError{Op: "send", Err: classify(err)}
	}

	for _, emoji := range []string{p.approveEmoji, p.rejectEmoji} {
		if err := p.api.MessageReactionAdd(p.channelID, msg.ID, emoji, discordgo.WithContext(ctx)); err != nil {
			logging.WarnWithContext(p.logger, "marker reaction failed", "discord_reaction_failed",
				logging.MessageID(msg.ID),
				logging.String("emoji", emoji),
				logging.Error(err),
				logging.String(logging.FieldImpact, "reviewers must add the marker themselves"),
			)
		}
	}

	p.logger.Info("draft posted for approval",
		logging.Event("draft_published"),
		logging.DraftPath(d.Path),
		logging.MessageID(msg.ID),
		logging.Int64("audio_size_bytes", size),
	)
	return msg.ID, nil
}

func (p *Publisher) pendingEmbed(d drafts.Draft, art homeassistant.Artifact, size int64) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "File", Value: d.Name(), Inline: true},
		{Name: "Size", Value: fmt.Sprintf("%s characters", humanize.Comma(int64(d.CharCount()))), Inline: true},
		{Name: "Audio", Value: humanize.IBytes(uint64(size)), Inline: true},
	}
	if art.Truncated {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Note", Value: "Audio covers a truncated version of the draft"})
	}
	return &discordgo.MessageEmbed{
		Title:       "📝 New Blog Draft: " + d.Name(),
		Description: d.Excerpt(excerptLimit),
		Color:       colorPending,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("React with %s to approve or %s to reject", p.approveEmoji, p.rejectEmoji)},
		Timestamp:   d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// MarkDecided recolours the approval embed and adds a status field.
func (p *Publisher) MarkDecided(ctx context.Context, t approval.Tracker) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	channelID := t.ChannelID
	if channelID == "" {
		channelID = p.channelID
	}
	msg, err := p.api.ChannelMessage(channelID, t.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return &services.PublishError{Op: "fetch", Err: classify(err)}
	}

	embed := &discordgo.MessageEmbed{Title: t.Title}
	if len(msg.Embeds) > 0 && msg.Embeds[0] != nil {
		embed = msg.Embeds[0]
	}
	status := statusText(t)
	switch t.State {
	case approval.StateApproved:
		embed.Color = colorApproved
	case approval.StateRejected:
		embed.Color = colorRejected
	default:
		embed.Color = colorExpired
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: status}
	embed.Fields = append(withoutStatus(embed.Fields), &discordgo.MessageEmbedField{Name: "Status", Value: status})

	edit := discordgo.NewMessageEdit(channelID, t.MessageID).SetEmbeds([]*discordgo.MessageEmbed{embed})
	if _, err := p.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return &services.PublishError{Op: "edit", Err: classify(err)}
	}
	return nil
}

// Reactions lists current marker reactions on a message, excluding botID.
// Discord does not expose when a reaction was added, so every returned
// reaction carries at.
func (p *Publisher) Reactions(ctx context.Context, channelID, messageID, botID string, at time.Time) ([]approval.Reaction, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if channelID == "" {
		channelID = p.channelID
	}

	var out []approval.Reaction
	for _, marker := range []approval.Marker{approval.MarkerReject, approval.MarkerApprove} {
		emoji := p.approveEmoji
		if marker == approval.MarkerReject {
			emoji = p.rejectEmoji
		}
		users, err := p.api.MessageReactions(channelID, messageID, emoji, 100, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, &services.PublishError{Op: "reactions", Err: classify(err)}
		}
		for _, u := range users {
			if u == nil || u.ID == botID || u.Bot {
				continue
			}
			out = append(out, approval.Reaction{MessageID: messageID, UserID: u.ID, Marker: marker, At: at})
		}
	}
	return out, nil
}

func statusText(t approval.Tracker) string {
	switch t.State {
	case approval.StateApproved:
		return "✅ Approved"
	case approval.StateRejected:
		return "❌ Rejected"
	case approval.StateExpired:
		return "⌛ Expired without a decision"
	default:
		return string(t.State)
	}
}

func withoutStatus(fields []*discordgo.MessageEmbedField) []*discordgo.MessageEmbedField {
	out := fields[:0:0]
	for _, f := range fields {
		if f != nil && f.Name != "Status" && f.Name != "Note" {
			out = append(out, f)
		}
	}
	return out
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "discord", "request", "request timed out", err)
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode >= 500 {
		return services.Wrap(services.ErrTransient, "discord", "request", "server error", err)
	}
	return err
}
