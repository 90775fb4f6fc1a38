// Package discord bridges BotMesh bots into Discord channels using
// discordgo. Each Discord channel maps to a BotMesh user channel; inbound
// messages trigger the attached bot and its streamed responses are relayed
// back, with interim responses keeping the typing indicator alive.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/internal/util"
	"github.com/hupe1980/botmesh/logging"
)

// messageLimit is Discord's maximum message length; longer responses are
// split into consecutive chunks.
const messageLimit = 2000

// channelType tags the channels created by this adapter in the object store.
const channelType = "discord"

// Options configures the adapter.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Adapter relays messages between a Discord session and a single BotMesh
// bot.
type Adapter struct {
	merger core.Merger
	bot    *core.Bot
	logger logging.Logger

	detach func()
}

// AttachBot registers a message handler on the session that forwards every
// inbound Discord message to the bot and relays its responses. Call Detach to
// unregister.
func AttachBot(session *discordgo.Session, m core.Merger, bot *core.Bot, optFns ...func(o *Options)) *Adapter {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &Adapter{merger: m, bot: bot, logger: opts.Logger}
	a.detach = session.AddHandler(func(s *discordgo.Session, event *discordgo.MessageCreate) {
		a.handleMessage(s, event)
	})
	return a
}

// Detach unregisters the adapter's message handler from the session.
func (a *Adapter) Detach() {
	if a.detach != nil {
		a.detach()
		a.detach = nil
	}
}

func (a *Adapter) handleMessage(s *discordgo.Session, event *discordgo.MessageCreate) {
	// Ignore our own and other bots' messages; relaying them back would loop.
	if event.Author == nil || event.Author.ID == s.State.User.ID || event.Author.Bot {
		return
	}

	ctx := context.Background()
	if err := a.relay(ctx, s, event); err != nil {
		a.logger.Error("discord adapter failed channel=%s error=%v", event.ChannelID, err)
		_, _ = s.ChannelMessageSend(event.ChannelID, fmt.Sprintf("oops... %v", err))
	}
}

func (a *Adapter) relay(ctx context.Context, s *discordgo.Session, event *discordgo.MessageCreate) error {
	channel, err := a.merger.FindOrCreateUserChannel(ctx, channelType, event.ChannelID, event.Author.Username)
	if err != nil {
		return err
	}

	responses, err := a.merger.TriggerBot(ctx, a.bot, func(o *core.TriggerOptions) {
		o.Request = event.Content
		o.OverrideSender = channel.Sender
		o.OverrideParentCtx = channel
	})
	if err != nil {
		return err
	}

	_ = s.ChannelTyping(event.ChannelID)

	cursor := responses.Cursor()
	for {
		response, err := cursor.Next(ctx)
		if errors.Is(err, core.ErrEndOfResponses) {
			return nil
		}
		if err != nil {
			return err
		}

		text, err := response.Text(ctx)
		if err != nil {
			return err
		}
		for _, chunk := range util.TextChunks(text, messageLimit) {
			if _, err := s.ChannelMessageSend(event.ChannelID, chunk); err != nil {
				return err
			}
		}
		if response.StillThinking {
			_ = s.ChannelTyping(event.ChannelID)
		}
	}
}
