package yamllog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/botmesh/internal/testutil"
	"github.com/hupe1980/botmesh/store"
)

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.yaml")
	s, err := Open(path)
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "the log is only created on first write")
}

func TestLogAppendsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log.yaml")

	s, err := Open(path)
	require.NoError(t, err)

	m := testutil.NewMerger(t, s)
	bot := testutil.EchoBot(t, m, "echo")

	stream, err := bot.Trigger(ctx, "hello")
	require.NoError(t, err)
	responses := testutil.Drain(t, ctx, stream)
	require.Len(t, responses, 1)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "_type: Bot")
	assert.Contains(t, content, "alias: echo")
	assert.Contains(t, content, "_type: OriginalMessage")
	assert.Contains(t, content, "HELLO")
	assert.Contains(t, content, "\n---\n", "documents are separated")
	assert.NotContains(t, content, "botByAliasKey", "secondary index keys are not logged")
}

func TestReplayOnReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log.yaml")

	s, err := Open(path)
	require.NoError(t, err)

	m := testutil.NewMerger(t, s)
	bot := testutil.EchoBot(t, m, "echo")
	stream, err := bot.Trigger(ctx, "remember")
	require.NoError(t, err)
	responses := testutil.Drain(t, ctx, stream)
	require.Len(t, responses, 1)
	responseID := responses[0].UUID

	reopened, err := Open(path)
	require.NoError(t, err)

	value, err := reopened.GetImmutable(ctx, responseID)
	require.NoError(t, err)
	record, ok := value.(store.Record)
	require.True(t, ok, "replayed objects come back as generic records")
	assert.Equal(t, "OriginalMessage", record["_type"])
	assert.Equal(t, "REMEMBER", record["content"])

	t.Run("appending after replay keeps documents separated", func(t *testing.T) {
		m2 := testutil.NewMerger(t, reopened)
		testutil.EchoBot(t, m2, "second")

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, strings.Count(string(raw), "alias: second"), 1)
	})
}

func TestCorruptLogFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not a mapping\n"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
}
