package core

import (
	"context"

	"github.com/google/uuid"
)

// BotOptions configures bot creation.
type BotOptions struct {
	// Name is the display name. Defaults to the alias.
	Name string
	// Description is an optional free-form description.
	Description string
	// NoCache disables response caching for the bot.
	NoCache bool
	// Handler, when non-nil, is registered as the bot's local single-turn
	// handler in the same call.
	Handler Handler
	// ExtraFields is attached to the created Bot object.
	ExtraFields map[string]any
}

// NextMessage carries the parameters of Merger.CreateNextMessage.
type NextMessage struct {
	// Content is the message content: a string, a map[string]any, a Payload,
	// or an existing *Message (which produces a forwarded message).
	Content any

	// StillThinking must be set explicitly for new content; it is ignored
	// for forwards, where the original's flag would be misleading anyway.
	StillThinking *bool

	// InvisibleToBots excludes the message from assembled conversations.
	InvisibleToBots bool

	// Sender defaults to the well-known default User when nil.
	Sender Participant

	// Receiver is the addressee of the message. Required.
	Receiver Participant

	// ParentContext defaults to the default message-context singleton when
	// nil.
	ParentContext *Message

	// RespondsTo is the request this message answers, if any.
	RespondsTo *Message

	// ExtraFields is attached to the created Message object.
	ExtraFields map[string]any
}

// TriggerOptions configures Merger.TriggerBot.
type TriggerOptions struct {
	// Request is a single request: plain content or an existing *Message.
	// Mutually exclusive with Requests.
	Request any
	// Requests is a bundle of requests handled as one turn.
	Requests []any
	// OverrideSender overrides the sender the prepared requests are
	// attributed to. Defaults to the currently handling bot (when triggered
	// from inside a turn) or the default User.
	OverrideSender Participant
	// OverrideParentCtx overrides the parent context of the prepared
	// requests. Defaults to the ambient turn's conversation.
	OverrideParentCtx *Message
	// RewriteCache forces the handler to run and replaces any recorded
	// response stream for the same cache key.
	RewriteCache bool
	// ExtraFields is attached to request messages prepared from plain
	// content.
	ExtraFields map[string]any
}

// Merger is the factory of everything else in this library and the low level
// implementation behind it: almost all methods of the other types are a
// facade over a Merger. The concrete implementation lives in the merger
// package; this interface keeps the domain types free of a dependency on it
// and leaves room for remote implementations later.
type Merger interface {
	// CreateBot creates and registers a bot under both its UUID and its
	// alias. Fails with ErrAliasTaken when the alias is already registered.
	CreateBot(ctx context.Context, alias string, optFns ...func(o *BotOptions)) (*Bot, error)

	// RegisterLocalHandler binds an in-process handler to the bot's UUID in
	// a private side table. Bot objects stay transport-agnostic data; the
	// executable logic exists only on the node that registered it.
	RegisterLocalHandler(bot *Bot, h Handler)

	// FindBot fetches a bot by its alias, failing with ErrBotNotFound.
	FindBot(ctx context.Context, alias string) (*Bot, error)

	// FindOrCreateUserChannel looks up a channel root message by its
	// composite key, creating an owning User and the root Message on first
	// use. Idempotent regardless of userDisplayName: first writer wins.
	FindOrCreateUserChannel(ctx context.Context, channelType string, channelID any, userDisplayName string) (*Message, error)

	// CreateNextMessage is the general message-construction entry point; it
	// chains the new message onto the latest message of its (context,
	// participant-pair) sub-thread.
	CreateNextMessage(ctx context.Context, p NextMessage) (*Message, error)

	// TriggerBot dispatches request(s) to the bot's handler and returns the
	// response stream. The handler runs concurrently; handler failures
	// surface on the stream, never here.
	TriggerBot(ctx context.Context, bot *Bot, optFns ...func(o *TriggerOptions)) (*ResponseStream, error)

	// FindMessage is an identity lookup with a type assertion.
	FindMessage(ctx context.Context, id uuid.UUID) (*Message, error)

	// Replay re-invokes a bot against a previously recorded request,
	// reconstructing the same cache key as the original invocation.
	Replay(ctx context.Context, requestID uuid.UUID) (*ResponseStream, error)
}
