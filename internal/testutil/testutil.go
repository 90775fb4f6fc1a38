// Package testutil provides shared helpers for BotMesh tests.
package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/merger"
)

// NewMerger constructs a Merger backed by the given store (nil for the
// default in-memory one).
func NewMerger(tb testing.TB, s core.ObjectStore) *merger.Merger {
	tb.Helper()
	return merger.New(func(o *merger.Options) {
		if s != nil {
			o.Store = s
		}
	})
}

// EchoBot registers an upper-casing echo bot under the given alias.
func EchoBot(tb testing.TB, m *merger.Merger, alias string) *core.Bot {
	tb.Helper()
	bot, err := m.CreateBot(context.Background(), alias, func(o *core.BotOptions) {
		o.Handler = func(ctx context.Context, turn *core.TurnContext) error {
			text, err := turn.ConcludingRequest().Text(ctx)
			if err != nil {
				return err
			}
			_, err = turn.YieldFinalResponse(ctx, strings.ToUpper(text))
			return err
		}
	})
	require.NoError(tb, err)
	return bot
}

// Drain collects every response of the stream, failing the test on error.
func Drain(tb testing.TB, ctx context.Context, stream *core.ResponseStream) []*core.Message {
	tb.Helper()
	all, err := stream.GetAllResponses(ctx)
	require.NoError(tb, err)
	return all
}

// Texts resolves the textual content of each message.
func Texts(tb testing.TB, ctx context.Context, messages []*core.Message) []string {
	tb.Helper()
	texts := make([]string, len(messages))
	for i, m := range messages {
		text, err := m.Text(ctx)
		require.NoError(tb, err)
		texts[i] = text
	}
	return texts
}
