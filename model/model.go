package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/botmesh/core"
)

// Role identifies which side of a chat conversation a message belongs to.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one rendered conversation turn handed to a provider.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request captures the normalized model input produced by bot handlers.
type Request struct {
	// Instructions is the system prompt, if any.
	Instructions string `json:"instructions,omitempty"`
	// Messages is the rendered conversation, oldest first.
	Messages []ChatMessage `json:"messages"`
	// Stream requests incremental partial responses where the provider
	// supports them.
	Stream bool `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	// Partial marks an incremental delta; the final response carries the
	// complete text.
	Partial bool   `json:"partial"`
	Text    string `json:"text"`
	// FinishReason is the provider's stop reason ("stop", "length", ...) on
	// the final response.
	FinishReason string `json:"finish_reason,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required to back a bot with a language
// model.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// HandlerOptions configures BotHandler.
type HandlerOptions struct {
	// Instructions is the system prompt passed with every request.
	Instructions string
	// MaxHistory caps how many conversation messages are rendered into the
	// request. 0 means unlimited.
	MaxHistory int
	// Stream yields each partial chunk as an interim response before the
	// final one. Off by default; chatty for providers with small deltas.
	Stream bool
}

// BotHandler builds a single-turn handler that renders the turn's full
// conversation into chat messages, asks the model for a completion and yields
// the result. Messages sent by the handling bot render as assistant turns,
// everything else as user turns.
func BotHandler(m Model, optFns ...func(o *HandlerOptions)) core.Handler {
	opts := HandlerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return func(ctx context.Context, turn *core.TurnContext) error {
		history, err := turn.FullConversation(ctx, func(o *core.ConversationOptions) {
			o.MaxLength = opts.MaxHistory
		})
		if err != nil {
			return err
		}

		messages := make([]ChatMessage, 0, len(history))
		for _, msg := range history {
			text, err := msg.Text(ctx)
			if err != nil {
				return err
			}
			if text == "" {
				continue
			}
			role := RoleUser
			if sender, err := msg.OriginalSender(ctx); err != nil {
				return err
			} else if turn.Bot().Equal(sender) {
				role = RoleAssistant
			}
			messages = append(messages, ChatMessage{Role: role, Text: text})
		}

		responses, errs := m.Generate(ctx, Request{
			Instructions: opts.Instructions,
			Messages:     messages,
			Stream:       opts.Stream,
		})

		var final string
		for responses != nil || errs != nil {
			select {
			case resp, ok := <-responses:
				if !ok {
					responses = nil
					continue
				}
				if resp.Partial {
					if opts.Stream {
						if _, err := turn.YieldInterimResponse(ctx, resp.Text); err != nil {
							return err
						}
					}
					continue
				}
				final = resp.Text
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				if err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		_, err = turn.YieldFinalResponse(ctx, final)
		return err
	}
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input
// prompt (matched against the last message's text).
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Model; emits optional streaming char chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		input := req.Messages[len(req.Messages)-1].Text
		full := m.responses[input]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", input)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		respCh <- Response{Partial: false, Text: full, FinishReason: "stop"}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
