package core

import "context"

// Participant is a named actor that can send and receive messages.
// Concrete implementations are *Bot and *User.
type Participant interface {
	Identified
	DisplayName() string
	IsHuman() bool
}

// Bot is a participant that can be triggered to respond to messages. Bot
// values are pure data; the executable handler logic lives in a side table on
// the node that registered it (see Merger.RegisterLocalHandler), so a Bot
// record may be visible on nodes that cannot execute it.
type Bot struct {
	Object

	// Alias is the globally unique lookup key for the bot. Immutable once
	// registered.
	Alias string `json:"alias" yaml:"alias"`

	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// NoCache disables response caching for this bot: every trigger runs the
	// handler, even for content-identical requests.
	NoCache bool `json:"no_cache,omitempty" yaml:"no_cache,omitempty"`
}

// DisplayName returns the bot's human-readable name.
func (b *Bot) DisplayName() string { return b.Name }

// IsHuman reports false for bots.
func (b *Bot) IsHuman() bool { return false }

// Handle registers h as the local single-turn handler for this bot. It
// returns the bot so declarations can stay compact.
func (b *Bot) Handle(h Handler) *Bot {
	b.merger.RegisterLocalHandler(b, h)
	return b
}

// Trigger dispatches a request to this bot and returns the response stream.
// Shorthand for Merger.TriggerBot.
func (b *Bot) Trigger(ctx context.Context, request any, optFns ...func(o *TriggerOptions)) (*ResponseStream, error) {
	fns := append([]func(o *TriggerOptions){func(o *TriggerOptions) { o.Request = request }}, optFns...)
	return b.merger.TriggerBot(ctx, b, fns...)
}

// FinalResponse triggers the bot and waits for the last response, or nil if
// the bot produced none.
func (b *Bot) FinalResponse(ctx context.Context, request any, optFns ...func(o *TriggerOptions)) (*Message, error) {
	responses, err := b.Trigger(ctx, request, optFns...)
	if err != nil {
		return nil, err
	}
	return responses.GetFinalResponse(ctx)
}

// User is a human participant with just a display name.
type User struct {
	Object

	Name string `json:"name" yaml:"name"`
}

// DisplayName returns the user's name.
func (u *User) DisplayName() string { return u.Name }

// IsHuman reports true for users.
func (u *User) IsHuman() bool { return true }
