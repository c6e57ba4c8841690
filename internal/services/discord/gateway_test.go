package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"draftbot/internal/approval"
	"draftbot/internal/logging"
	"draftbot/internal/testsupport"
)

func TestGatewayFiltersReactions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	g := NewGateway(cfg, nil, logging.NewNop())
	fixed := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }
	g.handleReady(&discordgo.Ready{User: &discordgo.User{ID: "bot"}})

	ctx := context.Background()
	events := []*discordgo.MessageReactionAdd{
		{MessageReaction: &discordgo.MessageReaction{ChannelID: "other", MessageID: "m1", UserID: "u1", Emoji: discordgo.Emoji{Name: "✅"}}},
		{MessageReaction: &discordgo.MessageReaction{ChannelID: cfg.Discord.ChannelID, MessageID: "m1", UserID: "bot", Emoji: discordgo.Emoji{Name: "✅"}}},
		{MessageReaction: &discordgo.MessageReaction{ChannelID: cfg.Discord.ChannelID, MessageID: "m1", UserID: "u1", Emoji: discordgo.Emoji{Name: "👍"}}},
		{MessageReaction: &discordgo.MessageReaction{ChannelID: cfg.Discord.ChannelID, MessageID: "m1", UserID: "u2", Emoji: discordgo.Emoji{Name: "❌"}}},
	}
	for _, ev := range events {
		g.handleReaction(ctx, ev)
	}

	select {
	case r := <-g.Reactions():
		want := approval.Reaction{MessageID: "m1", UserID: "u2", Marker: approval.MarkerReject, At: fixed}
		if r != want {
			t.Fatalf("got %+v, want %+v", r, want)
		}
	default:
		t.Fatal("expected one relayed reaction")
	}
	select {
	case r := <-g.Reactions():
		t.Fatalf("unexpected extra reaction %+v", r)
	default:
	}
}

func TestOnReadyCallbacks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	g := NewGateway(cfg, nil, logging.NewNop())
	var got string
	g.OnReady(func(id string) { got = id })
	g.handleReady(&discordgo.Ready{User: &discordgo.User{ID: "bot-1", Username: "draftbot"}})
	if got != "bot-1" || g.BotUserID() != "bot-1" {
		t.Fatalf("ready callback id=%q BotUserID=%q", got, g.BotUserID())
	}
}

func TestMarkerForCustomEmoji(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Discord.ApproveEmoji = "shipit:123"
	g := NewGateway(cfg, nil, logging.NewNop())
	if m, ok := g.MarkerFor(discordgo.Emoji{Name: "shipit", ID: "123"}); !ok || m != approval.MarkerApprove {
		t.Fatalf("custom emoji not matched: %v %v", m, ok)
	}
}
