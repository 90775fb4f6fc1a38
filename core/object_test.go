package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestObjectEquality(t *testing.T) {
	id := uuid.New()

	bot := &Bot{Object: Object{UUID: id}, Alias: "a", Name: "A"}
	sameIdentity := &Bot{Object: Object{UUID: id}, Alias: "renamed", Name: "totally different"}
	other := &Bot{Object: Object{UUID: uuid.New()}, Alias: "a", Name: "A"}

	assert.True(t, bot.Equal(sameIdentity), "equality is identifier-only")
	assert.False(t, bot.Equal(other), "equal content does not imply equality")
	assert.False(t, bot.Equal(nil))

	t.Run("across variants", func(t *testing.T) {
		user := &User{Object: Object{UUID: id}, Name: "someone"}
		assert.True(t, bot.Equal(user), "identity comparison ignores the concrete type")
	})
}

func TestParticipants(t *testing.T) {
	bot := &Bot{Object: Object{UUID: uuid.New()}, Alias: "echo", Name: "Echo"}
	assert.Equal(t, "Echo", bot.DisplayName())
	assert.False(t, bot.IsHuman())

	user := &User{Object: Object{UUID: uuid.New()}, Name: "alice"}
	assert.Equal(t, "alice", user.DisplayName())
	assert.True(t, user.IsHuman())
}
