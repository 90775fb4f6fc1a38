// Package merger contains the in-process implementation of core.Merger: the
// dispatcher that owns bot lifecycle, message construction, conversation
// threading and bot invocation.
//
// The Merger is the only writer of the ObjectStore and the only component
// that spawns handler goroutines. Everything else in the library (Bot
// convenience methods, TurnContext, channel adapters) is a facade over it.
package merger
