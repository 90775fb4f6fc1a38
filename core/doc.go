// Package core provides the foundational domain types, interfaces and
// execution contexts used by BotMesh. It defines the core abstractions for:
//
//   - Participants (bots and users) and Messages (immutable provenance records)
//   - The Merger contract (factory + dispatch surface everything else delegates to)
//   - ResponseStream (replayable, multi-consumer stream of responses)
//   - TurnContext (scoped facade handed to single-turn handlers)
//   - The pluggable ObjectStore key/value contract
//
// The package intentionally keeps implementation concerns (persistence,
// dispatcher orchestration, channel adapters) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
