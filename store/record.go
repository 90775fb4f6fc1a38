package store

import (
	"context"
	"fmt"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/internal/util"
)

// previewLength bounds the denormalized content previews embedded in
// persisted records.
const previewLength = 70

// Record is the flat, human-reconstructable form of a registered object as
// persisted by the log-backed stores. Each record carries a "_type"
// discriminator plus enough denormalized identifying fields (participant
// aliases/names, short content previews, referenced UUIDs) that the log can
// be read without the live object graph.
type Record map[string]any

// EncodeRecord flattens a registered object into its Record form. Only the
// model types created through Merger factories are encodable.
func EncodeRecord(ctx context.Context, obj any) (Record, error) {
	switch v := obj.(type) {
	case *core.Bot:
		r := Record{
			"_type": "Bot",
			"uuid":  v.UUID.String(),
			"alias": v.Alias,
			"name":  v.Name,
		}
		if v.Description != "" {
			r["description"] = v.Description
		}
		if v.NoCache {
			r["no_cache"] = true
		}
		addExtraFields(r, v.ExtraFields)
		return r, nil

	case *core.User:
		r := Record{
			"_type": "User",
			"uuid":  v.UUID.String(),
			"name":  v.Name,
		}
		addExtraFields(r, v.ExtraFields)
		return r, nil

	case *core.Message:
		return encodeMessage(ctx, v)

	default:
		return nil, fmt.Errorf("cannot encode object of type %T", obj)
	}
}

func encodeMessage(ctx context.Context, m *core.Message) (Record, error) {
	r := Record{"uuid": m.UUID.String()}
	if m.StillThinking {
		r["still_thinking"] = true
	}
	if m.InvisibleToBots {
		r["invisible_to_bots"] = true
	}
	addExtraFields(r, m.ExtraFields)

	r["sender"] = participantStub(m.Sender)
	r["receiver"] = participantStub(m.Receiver)

	switch payload := m.Payload.(type) {
	case core.TextPayload:
		r["_type"] = "OriginalMessage"
		r["content"] = payload.Text
	case core.DataPayload:
		r["_type"] = "OriginalMessage"
		r["content"] = payload.Data
	case core.ForwardedPayload:
		r["_type"] = "ForwardedMessage"
		original, err := m.Original(ctx)
		if err != nil {
			return nil, err
		}
		stub, err := messageStub(ctx, original)
		if err != nil {
			return nil, err
		}
		r["original_message"] = stub
	default:
		return nil, fmt.Errorf("cannot encode message payload of type %T", m.Payload)
	}

	related := []struct {
		field   string
		resolve func(context.Context) (*core.Message, error)
	}{
		{"previous_message", m.Previous},
		{"requesting_message", m.Request},
		{"parent_context", m.Context},
	}
	for _, rel := range related {
		msg, err := rel.resolve(ctx)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		stub, err := messageStub(ctx, msg)
		if err != nil {
			return nil, err
		}
		r[rel.field] = stub
	}

	return r, nil
}

func participantStub(p core.Participant) map[string]any {
	stub := map[string]any{"uuid": p.ID().String()}
	if bot, ok := p.(*core.Bot); ok {
		stub["bot_alias"] = bot.Alias
	} else {
		stub["human_name"] = p.DisplayName()
	}
	return stub
}

func messageStub(ctx context.Context, m *core.Message) (map[string]any, error) {
	content, err := m.Content(ctx)
	if err != nil {
		return nil, err
	}
	var preview string
	switch payload := content.(type) {
	case core.TextPayload:
		preview = util.Shorten(payload.Text, previewLength)
	case core.DataPayload:
		preview = util.Shorten(payload.Data, previewLength)
	}
	return map[string]any{"uuid": m.UUID.String(), "preview": preview}, nil
}

func addExtraFields(r Record, extra map[string]any) {
	if len(extra) > 0 {
		r["extra_fields"] = extra
	}
}
