package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAliasTaken is returned when a bot with the same alias is already
	// registered.
	ErrAliasTaken = errors.New("bot alias already taken")

	// ErrBotNotFound is returned when no bot is registered under an alias.
	ErrBotNotFound = errors.New("bot not found")

	// ErrNoLocalHandler is returned by TriggerBot when no handler is
	// registered for the bot's UUID on this node. Raised synchronously, not
	// streamed: it means the local node cannot service the bot at all.
	ErrNoLocalHandler = errors.New("no local handler registered for bot")

	// ErrKeyExists is returned by the immutable half of an ObjectStore on a
	// duplicate-key registration. Objects never change their
	// identity-to-content binding, so overwriting is always a defect.
	ErrKeyExists = errors.New("immutable object key already exists")

	// ErrStillThinkingRequired is returned when a new original message is
	// created without an explicit StillThinking value.
	ErrStillThinkingRequired = errors.New("still_thinking must be supplied for new message content")

	// ErrConflictingRequests is returned when a trigger supplies both
	// Request and Requests.
	ErrConflictingRequests = errors.New("request and requests are mutually exclusive")

	// ErrMessageNotFound is returned by FindMessage for an unknown UUID.
	ErrMessageNotFound = errors.New("message not found")

	// ErrTriggerNotFound is returned by Replay when no trigger was recorded
	// for the given request UUID.
	ErrTriggerNotFound = errors.New("no trigger recorded for request")

	// ErrEndOfResponses is returned by Cursor.Next once every response of a
	// completed stream has been consumed.
	ErrEndOfResponses = errors.New("end of responses")
)

// TypeMismatchError reports that a store lookup returned a value of an
// unexpected type for its key. It signals a mismatched secondary index (a
// programming error), never a condition to coerce or ignore.
type TypeMismatchError struct {
	Key  ObjectKey
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("wrong type of object by key %v: expected %s, got %s", e.Key, e.Want, e.Got)
}

// HandlerError wraps an error that escaped a single-turn handler. It is
// delivered as the terminal value of the handler's ResponseStream and is
// reported identically to every consumer of that stream, including relays
// sourced from a cached reference to it.
type HandlerError struct {
	// Alias of the bot whose handler failed.
	Alias string
	// Err is the original error (or wrapped panic value).
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler of bot %q failed: %v", e.Alias, e.Err)
}

// Unwrap exposes the inner error to errors.Is / errors.As.
func (e *HandlerError) Unwrap() error { return e.Err }
