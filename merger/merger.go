package merger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/internal/util"
	"github.com/hupe1980/botmesh/logging"
	"github.com/hupe1980/botmesh/store"
)

// Well-known identifiers of the lazily created default singletons. Fixed so
// that every node of a future distributed deployment agrees on them.
var (
	// DefaultUserUUID identifies the default User used when a message is
	// created without an explicit sender.
	DefaultUserUUID = uuid.MustParse("00000000-0000-4000-8000-000000000001")

	// DefaultContextUUID identifies the default message-context singleton
	// used when a message is created without an explicit parent context.
	DefaultContextUUID = uuid.MustParse("00000000-0000-4000-8000-000000000002")
)

// Config defines tuning parameters for the Merger's operational behavior.
type Config struct {
	// MaxConcurrentTurns limits the number of handler invocations that can
	// execute simultaneously. 0 means unlimited, which is the safe default
	// here: a bounded semaphore can deadlock handlers that trigger other
	// bots and wait for their responses.
	MaxConcurrentTurns int
}

// DefaultConfig provides the default configuration values.
var DefaultConfig = Config{MaxConcurrentTurns: 0}

// Options configures a Merger instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Store is the ObjectStore backend. Defaults to the in-memory
	// implementation.
	Store core.ObjectStore

	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger
}

// Merger is the in-process core.Merger implementation.
//
// Concurrency model: handler invocations run as independent goroutines; the
// two invariants that need more than the store's own locking are guarded by
// dedicated mutexes. latestMu makes the read-then-update of a latest-message
// pointer atomic, preserving per-(context, pair) ordering. cacheMu makes the
// cache check-and-insert atomic, preserving "at most one concurrent
// execution of a given (bot, request-set)": a check-then-later-write cache
// would run duplicate handlers for concurrent identical triggers.
type Merger struct {
	store  core.ObjectStore
	logger logging.Logger
	config Config

	// Local handler side table, keyed by bot UUID. Bot objects are
	// transport-agnostic data; the executable logic lives only here.
	handlersMu sync.RWMutex
	handlers   map[uuid.UUID]core.Handler

	latestMu sync.Mutex
	cacheMu  sync.Mutex

	defaultsMu     sync.Mutex
	defaultUser    *core.User
	defaultContext *core.Message

	channelsMu sync.Mutex

	sem chan struct{}
}

var _ core.Merger = (*Merger)(nil)

// New creates a Merger with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Merger {
	opts := Options{
		Config: DefaultConfig,
		Store:  store.NewInMemory(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	m := &Merger{
		store:    opts.Store,
		logger:   opts.Logger,
		config:   opts.Config,
		handlers: make(map[uuid.UUID]core.Handler),
	}
	if opts.Config.MaxConcurrentTurns > 0 {
		m.sem = make(chan struct{}, opts.Config.MaxConcurrentTurns)
	}
	return m
}

// CreateBot creates and registers a bot. The alias is enforced unique at
// registration time: the alias index insert itself fails on a duplicate, so
// concurrent creations cannot race past the eager check.
func (m *Merger) CreateBot(ctx context.Context, alias string, optFns ...func(o *core.BotOptions)) (*core.Bot, error) {
	opts := core.BotOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Name == "" {
		opts.Name = alias
	}

	existing, err := m.getBot(ctx, alias)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("bot with alias %q: %w", alias, core.ErrAliasTaken)
	}

	bot := &core.Bot{
		Object:      core.NewObject(m, opts.ExtraFields),
		Alias:       alias,
		Name:        opts.Name,
		Description: opts.Description,
		NoCache:     opts.NoCache,
	}
	if err := m.store.RegisterImmutable(ctx, bot.UUID, bot); err != nil {
		return nil, err
	}
	if err := m.store.RegisterImmutable(ctx, core.BotByAliasKey(alias), bot); err != nil {
		return nil, fmt.Errorf("bot with alias %q: %w", alias, core.ErrAliasTaken)
	}

	if opts.Handler != nil {
		m.RegisterLocalHandler(bot, opts.Handler)
	}

	m.logger.Debug("merger registered bot alias=%s uuid=%s", alias, bot.UUID)
	return bot, nil
}

// BotDecl records the intent to create a bot. Declarations are plain values
// that can be assembled at package init time, long before a runtime context
// exists; RegisterBots performs the actual registrations once it does.
type BotDecl struct {
	Alias       string
	Name        string
	Description string
	NoCache     bool
	Handler     core.Handler
	ExtraFields map[string]any
}

// RegisterBots registers a batch of declared bots in order, stopping at the
// first failure.
func (m *Merger) RegisterBots(ctx context.Context, decls ...BotDecl) error {
	for _, decl := range decls {
		_, err := m.CreateBot(ctx, decl.Alias, func(o *core.BotOptions) {
			o.Name = decl.Name
			o.Description = decl.Description
			o.NoCache = decl.NoCache
			o.Handler = decl.Handler
			o.ExtraFields = decl.ExtraFields
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RegisterLocalHandler binds h to the bot's UUID in the private handler side
// table. The table is owned by the Merger; nothing is ever attached to the
// handler value itself.
func (m *Merger) RegisterLocalHandler(bot *core.Bot, h core.Handler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers[bot.UUID] = h
}

func (m *Merger) localHandler(botUUID uuid.UUID) (core.Handler, bool) {
	m.handlersMu.RLock()
	defer m.handlersMu.RUnlock()
	h, ok := m.handlers[botUUID]
	return h, ok
}

// FindBot fetches a bot by its alias.
func (m *Merger) FindBot(ctx context.Context, alias string) (*core.Bot, error) {
	bot, err := m.getBot(ctx, alias)
	if err != nil {
		return nil, err
	}
	if bot == nil {
		return nil, fmt.Errorf("bot with alias %q: %w", alias, core.ErrBotNotFound)
	}
	return bot, nil
}

func (m *Merger) getBot(ctx context.Context, alias string) (*core.Bot, error) {
	key := core.BotByAliasKey(alias)
	value, err := m.store.GetImmutable(ctx, key)
	if err != nil {
		return nil, err
	}
	return core.CheckType[*core.Bot](key, value)
}

// FindMessage is an identity lookup with a type assertion.
func (m *Merger) FindMessage(ctx context.Context, id uuid.UUID) (*core.Message, error) {
	value, err := m.store.GetImmutable(ctx, id)
	if err != nil {
		return nil, err
	}
	msg, err := core.CheckType[*core.Message](id, value)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", id, core.ErrMessageNotFound)
	}
	return msg, nil
}

// FindOrCreateUserChannel looks up a channel root message by its composite
// key, creating the owning User and root Message on first use. The operation
// is idempotent regardless of userDisplayName: the first writer wins.
func (m *Merger) FindOrCreateUserChannel(ctx context.Context, channelType string, channelID any, userDisplayName string) (*core.Message, error) {
	key := core.ChannelByTypeAndIDKey(channelType, channelID)

	m.channelsMu.Lock()
	defer m.channelsMu.Unlock()

	value, err := m.store.GetImmutable(ctx, key)
	if err != nil {
		return nil, err
	}
	channel, err := core.CheckType[*core.Message](key, value)
	if err != nil {
		return nil, err
	}
	if channel != nil {
		return channel, nil
	}

	owner := &core.User{Object: core.NewObject(m, nil), Name: userDisplayName}
	if err := m.store.RegisterImmutable(ctx, owner.UUID, owner); err != nil {
		return nil, err
	}

	channel = &core.Message{
		Object: core.NewObject(m, map[string]any{
			"channel_type": channelType,
			"channel_id":   channelID,
		}),
		Sender:   owner,
		Receiver: owner,
		Payload: core.DataPayload{Data: map[string]any{
			"channel_type": channelType,
			"channel_id":   channelID,
		}},
	}
	if err := m.store.RegisterImmutable(ctx, channel.UUID, channel); err != nil {
		return nil, err
	}
	if err := m.store.RegisterImmutable(ctx, key, channel); err != nil {
		return nil, err
	}

	m.logger.Debug("merger created channel type=%s id=%v owner=%s", channelType, channelID, owner.UUID)
	return channel, nil
}

// CreateNextMessage is the general message-construction entry point. The new
// message is chained onto the latest message of its (parent context,
// participant pair) sub-thread via the mutable latest-message pointer;
// read-then-update of that pointer happens under latestMu, so ordering is
// guaranteed per sub-thread (and only per sub-thread).
func (m *Merger) CreateNextMessage(ctx context.Context, p core.NextMessage) (*core.Message, error) {
	if p.Receiver == nil {
		return nil, fmt.Errorf("create next message: receiver is required")
	}

	sender := p.Sender
	if sender == nil {
		user, err := m.getDefaultUser(ctx)
		if err != nil {
			return nil, err
		}
		sender = user
	}

	parent := p.ParentContext
	if parent == nil {
		defaultCtx, err := m.getDefaultContext(ctx)
		if err != nil {
			return nil, err
		}
		parent = defaultCtx
	}

	payload, stillThinking, err := m.resolvePayload(ctx, p)
	if err != nil {
		return nil, err
	}

	respondsTo := uuid.Nil
	if p.RespondsTo != nil {
		respondsTo = p.RespondsTo.UUID
	}

	latestKey := core.LatestMessageKey(parent.UUID, sender.ID(), p.Receiver.ID())

	m.latestMu.Lock()
	defer m.latestMu.Unlock()

	value, err := m.store.GetMutable(ctx, latestKey)
	if err != nil {
		return nil, err
	}
	previous, err := core.CheckType[*core.Message](latestKey, value)
	if err != nil {
		return nil, err
	}
	goesAfter := uuid.Nil
	if previous != nil {
		goesAfter = previous.UUID
	}

	msg := &core.Message{
		Object:          core.NewObject(m, p.ExtraFields),
		Sender:          sender,
		Receiver:        p.Receiver,
		StillThinking:   stillThinking,
		InvisibleToBots: p.InvisibleToBots,
		ParentContext:   parent.UUID,
		RespondsTo:      respondsTo,
		GoesAfter:       goesAfter,
		Payload:         payload,
	}
	if err := m.store.RegisterImmutable(ctx, msg.UUID, msg); err != nil {
		return nil, err
	}
	if err := m.store.SetMutable(ctx, latestKey, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// resolvePayload normalizes the duck-typed content union into the tagged
// Payload variant exactly once. Forwarding flattens through any existing
// forward so the payload always references the ultimate original.
func (m *Merger) resolvePayload(ctx context.Context, p core.NextMessage) (core.Payload, bool, error) {
	stillThinking := p.StillThinking != nil && *p.StillThinking

	switch content := p.Content.(type) {
	case *core.Message:
		original, err := content.Original(ctx)
		if err != nil {
			return nil, false, err
		}
		return core.ForwardedPayload{Original: original.UUID}, stillThinking, nil

	case core.ForwardedPayload:
		referenced, err := m.FindMessage(ctx, content.Original)
		if err != nil {
			return nil, false, err
		}
		original, err := referenced.Original(ctx)
		if err != nil {
			return nil, false, err
		}
		return core.ForwardedPayload{Original: original.UUID}, stillThinking, nil
	}

	// New original content: StillThinking must be supplied explicitly, it
	// cannot be inferred.
	if p.StillThinking == nil {
		return nil, false, core.ErrStillThinkingRequired
	}

	switch content := p.Content.(type) {
	case core.TextPayload:
		return content, stillThinking, nil
	case core.DataPayload:
		return content, stillThinking, nil
	case string:
		return core.TextPayload{Text: content}, stillThinking, nil
	case map[string]any:
		return core.DataPayload{Data: content}, stillThinking, nil
	default:
		data, err := util.NormalizeToMap(p.Content)
		if err != nil {
			return nil, false, fmt.Errorf("create next message: %w", err)
		}
		return core.DataPayload{Data: data}, stillThinking, nil
	}
}

// triggerRecord captures a dispatched invocation so it can be replayed.
type triggerRecord struct {
	bot      *core.Bot
	requests []*core.Message
}

// TriggerBot dispatches request(s) to the bot's handler. See the trigger
// protocol described on core.Merger.
func (m *Merger) TriggerBot(ctx context.Context, bot *core.Bot, optFns ...func(o *core.TriggerOptions)) (*core.ResponseStream, error) {
	opts := core.TriggerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if _, ok := m.localHandler(bot.UUID); !ok {
		return nil, fmt.Errorf("bot %q: %w", bot.Alias, core.ErrNoLocalHandler)
	}

	if opts.Request != nil && len(opts.Requests) > 0 {
		return nil, core.ErrConflictingRequests
	}
	raws := opts.Requests
	if opts.Request != nil {
		raws = []any{opts.Request}
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("trigger bot %q: no request supplied", bot.Alias)
	}

	// Triggers fired from inside another handler's turn implicitly mean
	// "me, talking to my current conversation" unless overridden.
	sender := opts.OverrideSender
	parent := opts.OverrideParentCtx
	if turn, ok := core.CurrentTurn(ctx); ok {
		if sender == nil {
			sender = turn.Bot()
		}
		if parent == nil {
			ambient, err := turn.ConcludingRequest().Context(ctx)
			if err != nil {
				return nil, err
			}
			parent = ambient
		}
	}

	stillThinking := false
	prepared := make([]*core.Message, 0, len(raws))
	for _, raw := range raws {
		request, err := m.CreateNextMessage(ctx, core.NextMessage{
			Content:       raw,
			StillThinking: &stillThinking,
			Sender:        sender,
			Receiver:      bot,
			ParentContext: parent,
			ExtraFields:   opts.ExtraFields,
		})
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, request)
	}

	return m.dispatch(ctx, bot, prepared, opts.RewriteCache)
}

// dispatch runs the cache check / handler launch half of the trigger
// protocol against already prepared request messages. Shared by TriggerBot
// and Replay so both construct the cache key identically.
func (m *Merger) dispatch(ctx context.Context, bot *core.Bot, prepared []*core.Message, rewriteCache bool) (*core.ResponseStream, error) {
	handler, ok := m.localHandler(bot.UUID)
	if !ok {
		return nil, fmt.Errorf("bot %q: %w", bot.Alias, core.ErrNoLocalHandler)
	}

	concluding := prepared[len(prepared)-1]
	if err := m.store.SetMutable(ctx, core.TriggerByRequestKey(concluding.UUID), &triggerRecord{bot: bot, requests: prepared}); err != nil {
		return nil, err
	}

	stream := core.NewResponseStream()

	if !bot.NoCache {
		fingerprint, err := m.fingerprint(ctx, prepared)
		if err != nil {
			return nil, err
		}
		cacheKey := core.ResponseCacheKey(bot.Alias, fingerprint)

		// Check-and-insert must be atomic: the unpopulated stream is
		// recorded before the handler starts so a concurrent identical
		// trigger relays from the in-flight stream instead of starting a
		// duplicate run.
		m.cacheMu.Lock()
		if !rewriteCache {
			value, err := m.store.GetMutable(ctx, cacheKey)
			if err != nil {
				m.cacheMu.Unlock()
				return nil, err
			}
			cached, err := core.CheckType[*core.ResponseStream](cacheKey, value)
			if err != nil {
				m.cacheMu.Unlock()
				return nil, err
			}
			if cached != nil {
				m.cacheMu.Unlock()
				m.logger.Debug("merger trigger cache hit bot=%s", bot.Alias)
				return core.NewRelayStream(cached), nil
			}
		}
		if err := m.store.SetMutable(ctx, cacheKey, stream); err != nil {
			m.cacheMu.Unlock()
			return nil, err
		}
		m.cacheMu.Unlock()
	}

	turn := core.NewTurnContext(m, bot, prepared, stream)

	// Invocations run to completion: cancellation of the trigger caller's
	// context must not tear down the handler, but ambient values (the
	// enclosing turn among them) stay visible for nested triggers.
	go m.runTurn(context.WithoutCancel(ctx), bot.Alias, handler, turn, stream)

	return stream, nil
}

func (m *Merger) runTurn(ctx context.Context, alias string, handler core.Handler, turn *core.TurnContext, stream *core.ResponseStream) {
	if m.sem != nil {
		m.sem <- struct{}{}
		defer func() { <-m.sem }()
	}

	// The end-of-responses close must happen on every exit path, panics
	// included, so consumers reliably terminate iteration.
	defer func() {
		if r := recover(); r != nil {
			stream.Close(&core.HandlerError{Alias: alias, Err: fmt.Errorf("handler panic: %v", r)})
		}
	}()

	start := time.Now()
	err := handler(core.WithCurrentTurn(ctx, turn), turn)
	if err != nil {
		m.logger.Debug("merger handler failed bot=%s duration=%s error=%v", alias, time.Since(start), err)
		stream.Close(&core.HandlerError{Alias: alias, Err: err})
		return
	}
	m.logger.Debug("merger handler completed bot=%s duration=%s", alias, time.Since(start))
	stream.Close(nil)
}

// fingerprint derives the stable request-set half of a cache key: for each
// prepared request, the ultimate-original-message UUID paired with a
// canonical JSON serialization of the prepared request's extra fields.
func (m *Merger) fingerprint(ctx context.Context, prepared []*core.Message) (string, error) {
	parts := make([]string, 0, len(prepared))
	for _, request := range prepared {
		original, err := request.Original(ctx)
		if err != nil {
			return "", err
		}
		extra, err := util.CanonicalJSON(request.ExtraFields)
		if err != nil {
			return "", err
		}
		parts = append(parts, original.UUID.String()+":"+extra)
	}
	return strings.Join(parts, "|"), nil
}

// Replay re-invokes a bot against a previously recorded request. The trigger
// record preserves the prepared request set, so the reconstructed cache key
// is identical to the original invocation's and a still-cached stream is
// relayed instead of re-running the handler.
func (m *Merger) Replay(ctx context.Context, requestID uuid.UUID) (*core.ResponseStream, error) {
	key := core.TriggerByRequestKey(requestID)
	value, err := m.store.GetMutable(ctx, key)
	if err != nil {
		return nil, err
	}
	record, err := core.CheckType[*triggerRecord](key, value)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("request %s: %w", requestID, core.ErrTriggerNotFound)
	}
	return m.dispatch(ctx, record.bot, record.requests, false)
}

func (m *Merger) getDefaultUser(ctx context.Context) (*core.User, error) {
	m.defaultsMu.Lock()
	defer m.defaultsMu.Unlock()
	if m.defaultUser != nil {
		return m.defaultUser, nil
	}

	user := &core.User{Object: core.NewObjectWithUUID(m, DefaultUserUUID, nil), Name: "Anonymous"}
	if err := m.registerSingleton(ctx, user.UUID, user); err != nil {
		return nil, err
	}
	m.defaultUser = user
	return user, nil
}

func (m *Merger) getDefaultContext(ctx context.Context) (*core.Message, error) {
	user, err := m.getDefaultUser(ctx)
	if err != nil {
		return nil, err
	}

	m.defaultsMu.Lock()
	defer m.defaultsMu.Unlock()
	if m.defaultContext != nil {
		return m.defaultContext, nil
	}

	defaultCtx := &core.Message{
		Object:   core.NewObjectWithUUID(m, DefaultContextUUID, nil),
		Sender:   user,
		Receiver: user,
		Payload:  core.TextPayload{Text: "default message context"},
	}
	if err := m.registerSingleton(ctx, defaultCtx.UUID, defaultCtx); err != nil {
		return nil, err
	}
	m.defaultContext = defaultCtx
	return defaultCtx, nil
}

// registerSingleton registers a well-known object, tolerating a key already
// occupied by a replayed log record: the singletons have fixed identifiers
// and identical content on every node, so the collision carries no
// information.
func (m *Merger) registerSingleton(ctx context.Context, id uuid.UUID, value any) error {
	err := m.store.RegisterImmutable(ctx, id, value)
	if err == nil {
		return nil
	}
	existing, getErr := m.store.GetImmutable(ctx, id)
	if getErr == nil && existing != nil {
		m.logger.Debug("merger singleton %s already present in store", id)
		return nil
	}
	return err
}
