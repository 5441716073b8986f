package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePair(t *testing.T) {
	assert.Equal(t, NormalizePair("b", "a"), NormalizePair("a", "b"))
	assert.Equal(t, [2]string{"a", "b"}, NormalizePair("b", "a"))
}

func TestConversationParticipants(t *testing.T) {
	c := Conversation{Participants: []string{"a", "b"}, UnreadCounts: map[string]int{"b": 3}}

	assert.True(t, c.HasParticipant("a"))
	assert.False(t, c.HasParticipant("c"))
	assert.Equal(t, "b", c.OtherParticipant("a"))
	assert.Equal(t, "a", c.OtherParticipant("b"))
	assert.Equal(t, 3, c.UnreadFor("b"))
	assert.Equal(t, 0, c.UnreadFor("a"))

	var empty Conversation
	assert.Equal(t, 0, empty.UnreadFor("a"))
}
