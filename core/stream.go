package core

import (
	"context"
	"errors"
	"sync"
)

// ResponseStream is an ordered, replayable buffer of the messages produced by
// one bot invocation. Producers (the dispatcher) append with Push and finish
// with Close; consumers iterate through independent Cursors.
//
// Every Cursor replays from the start of the internally retained message
// list before waiting for new pushes, so draining the stream twice is safe
// and yields the same sequence without re-running the handler. A stream that
// was closed with an error keeps reporting that same error to every cursor,
// including cursors created after the failure was first observed.
//
// A stream created by NewRelayStream transparently delegates to the stream it
// relays (the cache-hit case): consumers receive the recorded messages, not
// re-computed ones.
type ResponseStream struct {
	mu        sync.Mutex
	responses []*Message
	err       error
	done      bool
	wakeup    chan struct{}

	relay *ResponseStream
}

// NewResponseStream constructs an empty open stream.
func NewResponseStream() *ResponseStream {
	return &ResponseStream{wakeup: make(chan struct{})}
}

// NewRelayStream constructs a stream whose cursors read from src. Relays are
// flattened one level: relaying a relay delegates straight to its source.
func NewRelayStream(src *ResponseStream) *ResponseStream {
	if src.relay != nil {
		src = src.relay
	}
	return &ResponseStream{relay: src}
}

// Push appends a response. Pushes after Close are ignored.
func (s *ResponseStream) Push(m *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.responses = append(s.responses, m)
	s.broadcastLocked()
}

// Close permanently closes the stream. A non-nil err makes the stream
// terminate with that error instead of a clean end. The first Close wins;
// later calls are no-ops.
func (s *ResponseStream) Close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.err = err
	s.broadcastLocked()
}

// broadcastLocked wakes every waiting cursor by closing and replacing the
// wakeup channel. Callers must hold mu.
func (s *ResponseStream) broadcastLocked() {
	close(s.wakeup)
	s.wakeup = make(chan struct{})
}

// Err returns the terminal error of the stream, if any.
func (s *ResponseStream) Err() error {
	if s.relay != nil {
		return s.relay.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cursor returns a fresh cursor positioned at the first response.
func (s *ResponseStream) Cursor() *Cursor {
	if s.relay != nil {
		return s.relay.Cursor()
	}
	return &Cursor{stream: s}
}

// GetAllResponses blocks until the stream completes and returns every
// response in order. It is idempotent: repeated calls return the same
// sequence without blocking. When the stream terminated with an error, the
// responses produced before the failure are returned together with it.
func (s *ResponseStream) GetAllResponses(ctx context.Context) ([]*Message, error) {
	var all []*Message
	cursor := s.Cursor()
	for {
		m, err := cursor.Next(ctx)
		if errors.Is(err, ErrEndOfResponses) {
			return all, nil
		}
		if err != nil {
			return all, err
		}
		all = append(all, m)
	}
}

// GetFinalResponse blocks until the stream completes and returns the last
// response, or nil if the bot produced none.
func (s *ResponseStream) GetFinalResponse(ctx context.Context) (*Message, error) {
	all, err := s.GetAllResponses(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

// Cursor is an independent read position over a ResponseStream. Cursors are
// not safe for concurrent use; create one per consumer.
type Cursor struct {
	stream *ResponseStream
	next   int
}

// Next returns the next response, blocking until one is available or the
// stream terminates. It returns ErrEndOfResponses once a cleanly closed
// stream is exhausted, the stream's terminal *HandlerError after the
// retained responses of a failed stream, or ctx.Err() on cancellation of the
// wait.
func (c *Cursor) Next(ctx context.Context) (*Message, error) {
	s := c.stream
	for {
		s.mu.Lock()
		if c.next < len(s.responses) {
			m := s.responses[c.next]
			c.next++
			s.mu.Unlock()
			return m, nil
		}
		if s.done {
			err := s.err
			s.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, ErrEndOfResponses
		}
		wakeup := s.wakeup
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wakeup:
		}
	}
}
