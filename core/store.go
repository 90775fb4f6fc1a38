package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ObjectKey addresses a value in an ObjectStore. It is either a bare
// uuid.UUID (object identity lookup) or one of the comparable composite keys
// built by the constructors below (secondary indexes). Keys are opaque to
// callers; implementations may rely on Go map comparability.
type ObjectKey any

type botByAliasKey struct {
	alias string
}

type channelByTypeAndIDKey struct {
	channelType string
	channelID   any
}

type latestMessageKey struct {
	context uuid.UUID
	first   uuid.UUID
	second  uuid.UUID
}

type responseCacheKey struct {
	alias       string
	fingerprint string
}

type triggerByRequestKey struct {
	request uuid.UUID
}

// BotByAliasKey indexes a bot under its globally unique alias.
func BotByAliasKey(alias string) ObjectKey { return botByAliasKey{alias: alias} }

// ChannelByTypeAndIDKey indexes a channel root message under its platform
// type and platform-specific identifier.
func ChannelByTypeAndIDKey(channelType string, channelID any) ObjectKey {
	return channelByTypeAndIDKey{channelType: channelType, channelID: channelID}
}

// LatestMessageKey addresses the mutable latest-message pointer for a
// participant pair within a parent context. The pair is sorted so both
// directions of a conversation share one chain.
func LatestMessageKey(parentContext, a, b uuid.UUID) ObjectKey {
	if b.String() < a.String() {
		a, b = b, a
	}
	return latestMessageKey{context: parentContext, first: a, second: b}
}

// ResponseCacheKey addresses the recorded ResponseStream for a
// (bot, request-set) combination.
func ResponseCacheKey(alias, fingerprint string) ObjectKey {
	return responseCacheKey{alias: alias, fingerprint: fingerprint}
}

// TriggerByRequestKey addresses the trigger record for a request message so
// the invocation can be replayed later.
func TriggerByRequestKey(request uuid.UUID) ObjectKey {
	return triggerByRequestKey{request: request}
}

// ObjectStore is the narrow key/value contract every BotMesh backend must
// satisfy. It has two flavors:
//
//   - The immutable half holds write-once values (participants, messages,
//     bots): RegisterImmutable fails with ErrKeyExists on duplicates and a
//     registered value never changes.
//   - The mutable half holds bookkeeping that changes over time
//     (latest-message pointers, response caches, trigger records):
//     SetMutable always overwrites.
//
// Get operations return (nil, nil) for absent keys. Implementations must be
// safe for concurrent use; the Merger is the only writer but reads can come
// from any goroutine.
type ObjectStore interface {
	RegisterImmutable(ctx context.Context, key ObjectKey, value any) error
	GetImmutable(ctx context.Context, key ObjectKey) (any, error)
	SetMutable(ctx context.Context, key ObjectKey, value any) error
	GetMutable(ctx context.Context, key ObjectKey) (any, error)
}

// CheckType asserts that a value fetched by a key typed for T is either nil
// or a T. A mismatch is a defect signal (mismatched secondary index) and
// fails loudly with *TypeMismatchError.
func CheckType[T any](key ObjectKey, value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key, Want: fmt.Sprintf("%T", zero), Got: fmt.Sprintf("%T", value)}
	}
	return typed, nil
}
