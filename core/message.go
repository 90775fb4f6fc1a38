package core

import (
	"context"

	"github.com/google/uuid"
)

// Payload represents the tagged content variant of a message. The variant is
// resolved exactly once, at message construction time; downstream code
// switches on the concrete type instead of inspecting raw values ad hoc.
// Concrete payload types implement the unexported isPayload marker enabling a
// closed set.
type Payload interface{ isPayload() }

// TextPayload is plain text content.
type TextPayload struct {
	Text string `json:"text" yaml:"text"`
}

func (TextPayload) isPayload() {}

// DataPayload is structured content normalized to a plain map at creation.
type DataPayload struct {
	Data map[string]any `json:"data" yaml:"data"`
}

func (DataPayload) isPayload() {}

// ForwardedPayload borrows the content of an existing original message
// instead of duplicating it. Original always references the ultimate
// original message, never another forwarded one: forwarding is flattened at
// construction so forward chains cannot form.
type ForwardedPayload struct {
	Original uuid.UUID `json:"original" yaml:"original"`
}

func (ForwardedPayload) isPayload() {}

// Message is one unit of communication between participants. Like every
// Object it is immutable after construction; conversation ordering is
// maintained externally through the Merger's mutable latest-message pointer,
// not by mutating messages.
//
// The three back-references form the conversation graph. Each is a UUID
// (uuid.Nil when absent) resolved on demand through the owning Merger, so a
// message does not pin its whole history in memory.
type Message struct {
	Object

	Sender   Participant `json:"-" yaml:"-"`
	Receiver Participant `json:"-" yaml:"-"`

	// StillThinking signals that more responses from the same turn are
	// expected. Channel adapters map it to a "typing" indicator.
	StillThinking bool `json:"still_thinking,omitempty" yaml:"still_thinking,omitempty"`

	// InvisibleToBots excludes the message from conversation histories
	// assembled for handlers unless explicitly requested.
	InvisibleToBots bool `json:"invisible_to_bots,omitempty" yaml:"invisible_to_bots,omitempty"`

	// ParentContext is the message that defines the enclosing
	// conversation/thread (e.g. a channel's root message).
	ParentContext uuid.UUID `json:"parent_context,omitempty" yaml:"parent_context,omitempty"`

	// RespondsTo is the request this message answers. uuid.Nil for root or
	// initiating messages.
	RespondsTo uuid.UUID `json:"responds_to,omitempty" yaml:"responds_to,omitempty"`

	// GoesAfter is the immediately preceding message between the same
	// participant pair within the same parent context. uuid.Nil for the
	// first message in a sub-thread.
	GoesAfter uuid.UUID `json:"goes_after,omitempty" yaml:"goes_after,omitempty"`

	// Payload is the tagged content variant.
	Payload Payload `json:"payload" yaml:"payload"`
}

// IsForwarded reports whether the message borrows its content from another
// message.
func (m *Message) IsForwarded() bool {
	_, ok := m.Payload.(ForwardedPayload)
	return ok
}

// Original resolves the ultimate original message. For an original message
// that is the message itself; for a forwarded message it is a single store
// lookup thanks to the flattening invariant.
func (m *Message) Original(ctx context.Context) (*Message, error) {
	fp, ok := m.Payload.(ForwardedPayload)
	if !ok {
		return m, nil
	}
	return m.merger.FindMessage(ctx, fp.Original)
}

// Content returns the displayed payload of the message, delegating to the
// original message when forwarded. The result is always a TextPayload or a
// DataPayload.
func (m *Message) Content(ctx context.Context) (Payload, error) {
	original, err := m.Original(ctx)
	if err != nil {
		return nil, err
	}
	return original.Payload, nil
}

// Text returns the textual content of the message, or "" for structured
// content. Convenience for the overwhelmingly common text case.
func (m *Message) Text(ctx context.Context) (string, error) {
	content, err := m.Content(ctx)
	if err != nil {
		return "", err
	}
	if tp, ok := content.(TextPayload); ok {
		return tp.Text, nil
	}
	return "", nil
}

// OriginalSender returns the sender of the ultimate original message.
func (m *Message) OriginalSender(ctx context.Context) (Participant, error) {
	original, err := m.Original(ctx)
	if err != nil {
		return nil, err
	}
	return original.Sender, nil
}

// Previous resolves the GoesAfter back-reference, or nil when this is the
// first message of its sub-thread.
func (m *Message) Previous(ctx context.Context) (*Message, error) {
	if m.GoesAfter == uuid.Nil {
		return nil, nil
	}
	return m.merger.FindMessage(ctx, m.GoesAfter)
}

// Request resolves the RespondsTo back-reference, or nil for initiating
// messages.
func (m *Message) Request(ctx context.Context) (*Message, error) {
	if m.RespondsTo == uuid.Nil {
		return nil, nil
	}
	return m.merger.FindMessage(ctx, m.RespondsTo)
}

// Context resolves the ParentContext back-reference, or nil for root
// messages.
func (m *Message) Context(ctx context.Context) (*Message, error) {
	if m.ParentContext == uuid.Nil {
		return nil, nil
	}
	return m.merger.FindMessage(ctx, m.ParentContext)
}
