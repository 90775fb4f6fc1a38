// Package botmesh provides a high-level façade over the core Merger and its
// service abstractions (object store & logging) enabling rapid composition of
// chat bots into a mesh. Most applications interact with this package by:
//  1. Creating a BotMesh via New() (optionally overriding the default in-memory store)
//  2. Registering one or more bots with their single-turn handlers
//  3. Triggering bots and consuming the returned response streams
//
// The façade delegates dispatching to merger.Merger while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable store
// implementation and a structured logger.
package botmesh

import (
	"context"

	"github.com/google/uuid"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/logging"
	"github.com/hupe1980/botmesh/merger"
	"github.com/hupe1980/botmesh/store"
)

// Options configures the BotMesh instance.
type Options struct {
	// MergerConfig contains dispatcher parameters (concurrency limits).
	MergerConfig merger.Config

	// Store is the object store backend. Defaults to the in-memory
	// implementation; supply a yamllog or sqlite store for a durable trace.
	Store core.ObjectStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// BotMesh is the high-level façade aggregating the underlying dispatcher and
// services.
type BotMesh struct {
	opts   Options
	merger core.Merger
}

// New creates a new BotMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *BotMesh {
	opts := Options{
		MergerConfig: merger.DefaultConfig,
		Store:        store.NewInMemory(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	m := merger.New(func(o *merger.Options) {
		o.Config = opts.MergerConfig
		o.Store = opts.Store
		o.Logger = opts.Logger
	})

	return &BotMesh{opts: opts, merger: m}
}

// Merger exposes the underlying dispatcher for advanced use.
func (b *BotMesh) Merger() core.Merger { return b.merger }

// CreateBot creates and registers a bot under the given alias.
func (b *BotMesh) CreateBot(ctx context.Context, alias string, optFns ...func(o *core.BotOptions)) (*core.Bot, error) {
	return b.merger.CreateBot(ctx, alias, optFns...)
}

// FindBot fetches a previously registered bot by its alias.
func (b *BotMesh) FindBot(ctx context.Context, alias string) (*core.Bot, error) {
	return b.merger.FindBot(ctx, alias)
}

// FindOrCreateUserChannel obtains the root message of a user channel,
// creating it on first use.
func (b *BotMesh) FindOrCreateUserChannel(ctx context.Context, channelType string, channelID any, userDisplayName string) (*core.Message, error) {
	return b.merger.FindOrCreateUserChannel(ctx, channelType, channelID, userDisplayName)
}

// Trigger dispatches a request to the named bot and returns its response
// stream.
func (b *BotMesh) Trigger(ctx context.Context, alias string, request any, optFns ...func(o *core.TriggerOptions)) (*core.ResponseStream, error) {
	bot, err := b.merger.FindBot(ctx, alias)
	if err != nil {
		return nil, err
	}
	return bot.Trigger(ctx, request, optFns...)
}

// TriggerSync is a synchronous helper that triggers the named bot and drains
// the response stream to completion.
func (b *BotMesh) TriggerSync(ctx context.Context, alias string, request any, optFns ...func(o *core.TriggerOptions)) ([]*core.Message, error) {
	responses, err := b.Trigger(ctx, alias, request, optFns...)
	if err != nil {
		return nil, err
	}
	return responses.GetAllResponses(ctx)
}

// FindMessage looks up a message by its identifier.
func (b *BotMesh) FindMessage(ctx context.Context, id uuid.UUID) (*core.Message, error) {
	return b.merger.FindMessage(ctx, id)
}

// Replay re-invokes a bot against a previously recorded request.
func (b *BotMesh) Replay(ctx context.Context, requestID uuid.UUID) (*core.ResponseStream, error) {
	return b.merger.Replay(ctx, requestID)
}
