package core

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Handler is a single-turn handler: the executable logic of a bot. It is
// called once per trigger with the per-invocation TurnContext, communicates
// results purely through turn.Yield* calls, and reports failure by returning
// an error (or panicking). The error never reaches the trigger caller
// directly; it becomes the terminal *HandlerError of the turn's
// ResponseStream.
type Handler func(ctx context.Context, turn *TurnContext) error

// turnContextKey carries the ambient current turn on a context.Context.
type turnContextKey struct{}

// WithCurrentTurn installs turn as the ambient current turn. The dispatcher
// installs the turn for the duration of a handler invocation; nested
// installs unwind naturally with the context chain.
func WithCurrentTurn(ctx context.Context, turn *TurnContext) context.Context {
	return context.WithValue(ctx, turnContextKey{}, turn)
}

// CurrentTurn reports the ambient turn installed on ctx, if any. TriggerBot
// uses it to attribute nested triggers to "me, talking to my current
// conversation" without the caller re-threading sender and parent context by
// hand.
func CurrentTurn(ctx context.Context) (*TurnContext, bool) {
	turn, ok := ctx.Value(turnContextKey{}).(*TurnContext)
	return turn, ok
}

// ConversationOptions bounds TurnContext.FullConversation.
type ConversationOptions struct {
	// MaxLength caps the number of collected messages. 0 means unlimited.
	MaxLength int
	// IncludeInvisible also collects messages marked InvisibleToBots.
	IncludeInvisible bool
}

// TurnContext is the facade handed to a single-turn handler. It exposes the
// inbound request(s) of the turn, emits responses onto the turn's
// ResponseStream and lets the handler trigger other bots recursively.
type TurnContext struct {
	merger   Merger
	bot      *Bot
	requests []*Message
	stream   *ResponseStream
}

// NewTurnContext binds a turn to its bot, prepared requests and response
// stream. Intended for Merger implementations only.
func NewTurnContext(m Merger, bot *Bot, requests []*Message, stream *ResponseStream) *TurnContext {
	return &TurnContext{merger: m, bot: bot, requests: requests, stream: stream}
}

// Merger returns the dispatcher that spawned this turn.
func (t *TurnContext) Merger() Merger { return t.merger }

// Bot returns the bot whose handler is running this turn.
func (t *TurnContext) Bot() *Bot { return t.bot }

// Requests returns the prepared inbound requests of the turn. Bundled
// multi-message turns carry more than one.
func (t *TurnContext) Requests() []*Message { return t.requests }

// ConcludingRequest returns the last request of the turn, the primary one
// replies attach to.
func (t *TurnContext) ConcludingRequest() *Message {
	return t.requests[len(t.requests)-1]
}

// FullConversation walks GoesAfter backwards from the concluding request,
// collecting a bounded history, and returns it in chronological order.
// Messages marked InvisibleToBots are skipped unless requested.
func (t *TurnContext) FullConversation(ctx context.Context, optFns ...func(o *ConversationOptions)) ([]*Message, error) {
	opts := ConversationOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var history []*Message
	for m := t.ConcludingRequest(); m != nil; {
		if !m.InvisibleToBots || opts.IncludeInvisible {
			history = append(history, m)
			if opts.MaxLength > 0 && len(history) == opts.MaxLength {
				break
			}
		}
		prev, err := m.Previous(ctx)
		if err != nil {
			return nil, err
		}
		m = prev
	}

	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// YieldResponse constructs the next reply of this turn, addressed back to
// the concluding request's sender within the same parent context, and pushes
// it onto the turn's ResponseStream. It returns the created message so
// handlers can chain off it.
func (t *TurnContext) YieldResponse(ctx context.Context, content any, stillThinking bool) (*Message, error) {
	request := t.ConcludingRequest()
	parentContext, err := request.Context(ctx)
	if err != nil {
		return nil, err
	}

	response, err := t.merger.CreateNextMessage(ctx, NextMessage{
		Content:       content,
		StillThinking: &stillThinking,
		Sender:        t.bot,
		Receiver:      request.Sender,
		ParentContext: parentContext,
		RespondsTo:    request,
	})
	if err != nil {
		return nil, err
	}

	t.stream.Push(response)
	return response, nil
}

// YieldInterimResponse yields a response with StillThinking set: more
// responses from this turn are expected (adapters keep the "typing"
// indicator on).
func (t *TurnContext) YieldInterimResponse(ctx context.Context, content any) (*Message, error) {
	return t.YieldResponse(ctx, content, true)
}

// YieldFinalResponse yields a response with StillThinking cleared: the turn
// is done talking.
func (t *TurnContext) YieldFinalResponse(ctx context.Context, content any) (*Message, error) {
	return t.YieldResponse(ctx, content, false)
}

// YieldFrom relays every response of another stream through this turn,
// preserving each message's own StillThinking flag. Typical use: delegate a
// request to another bot and forward its answers as your own.
func (t *TurnContext) YieldFrom(ctx context.Context, responses *ResponseStream) error {
	cursor := responses.Cursor()
	for {
		m, err := cursor.Next(ctx)
		if errors.Is(err, ErrEndOfResponses) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := t.YieldResponse(ctx, m, m.StillThinking); err != nil {
			return err
		}
	}
}

// YieldAll yields a fixed sequence of contents, marking every response
// interim except the last.
func (t *TurnContext) YieldAll(ctx context.Context, contents ...any) error {
	for i, content := range contents {
		if _, err := t.YieldResponse(ctx, content, i < len(contents)-1); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBot triggers another bot from inside this turn. The ambient turn on
// ctx makes the nested request default to "this bot, in this conversation";
// resolve by alias with Merger().FindBot first when only the alias is known.
func (t *TurnContext) TriggerBot(ctx context.Context, bot *Bot, optFns ...func(o *TriggerOptions)) (*ResponseStream, error) {
	return t.merger.TriggerBot(ctx, bot, optFns...)
}

// FindMessage is a convenience passthrough to the owning Merger.
func (t *TurnContext) FindMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	return t.merger.FindMessage(ctx, id)
}
