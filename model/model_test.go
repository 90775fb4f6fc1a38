package model_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/merger"
	"github.com/hupe1980/botmesh/model"
)

func TestMockModelGenerate(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMockModel("test-model")
	mock.AddResponse("ping", "pong")

	responses, errs := mock.Generate(ctx, model.Request{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Text: "ping"}},
	})

	var final model.Response
	for resp := range responses {
		final = resp
	}
	require.NoError(t, <-errs)
	assert.Equal(t, "pong", final.Text)
	assert.False(t, final.Partial)
	assert.Equal(t, "stop", final.FinishReason)
}

func TestMockModelStreaming(t *testing.T) {
	ctx := context.Background()
	mock := model.NewMockModel("test-model")
	mock.AddResponse("hi", "ok")

	responses, errs := mock.Generate(ctx, model.Request{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Text: "hi"}},
		Stream:   true,
	})

	var partials []string
	var final model.Response
	for resp := range responses {
		if resp.Partial {
			partials = append(partials, resp.Text)
			continue
		}
		final = resp
	}
	require.NoError(t, <-errs)
	assert.Equal(t, []string{"o", "k"}, partials)
	assert.Equal(t, "ok", final.Text)
}

func TestBotHandler(t *testing.T) {
	ctx := context.Background()
	m := merger.New()

	mock := model.NewMockModel("test-model")
	mock.AddResponse("what is the answer", "forty-two")

	bot, err := m.CreateBot(ctx, "oracle", func(o *core.BotOptions) {
		o.Handler = model.BotHandler(mock, func(o *model.HandlerOptions) {
			o.Instructions = "answer briefly"
		})
	})
	require.NoError(t, err)

	final, err := bot.FinalResponse(ctx, "what is the answer")
	require.NoError(t, err)
	require.NotNil(t, final)

	text, err := final.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "forty-two", text)
	assert.False(t, final.StillThinking)
}

func TestBotHandlerConversationRoles(t *testing.T) {
	ctx := context.Background()
	m := merger.New()

	// recordingModel captures the rendered request for inspection.
	recorder := &recordingModel{inner: model.NewMockModel("recorder")}

	bot, err := m.CreateBot(ctx, "chatty", func(o *core.BotOptions) {
		o.NoCache = true
		o.Handler = model.BotHandler(recorder)
	})
	require.NoError(t, err)

	channel, err := m.FindOrCreateUserChannel(ctx, "test", 1, "alice")
	require.NoError(t, err)

	trigger := func(text string) {
		stream, err := bot.Trigger(ctx, text, func(o *core.TriggerOptions) {
			o.OverrideSender = channel.Sender
			o.OverrideParentCtx = channel
		})
		require.NoError(t, err)
		_, err = stream.GetAllResponses(ctx)
		require.NoError(t, err)
	}

	trigger("first question")
	trigger("second question")

	rendered := recorder.last.Messages
	require.Len(t, rendered, 3, "history renders request, response and follow-up")
	assert.Equal(t, model.RoleUser, rendered[0].Role)
	assert.Equal(t, model.RoleAssistant, rendered[1].Role, "own responses render as assistant turns")
	assert.Equal(t, model.RoleUser, rendered[2].Role)
	assert.Equal(t, "second question", rendered[2].Text)
}

type recordingModel struct {
	inner *model.MockModel
	last  model.Request
}

func (r *recordingModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	r.last = req
	return r.inner.Generate(ctx, req)
}

func (r *recordingModel) Info() model.Info { return r.inner.Info() }
