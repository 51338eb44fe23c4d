package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeParticipants(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{name: "nil_defaults_to_creator", ids: nil, want: []string{"me"}},
		{name: "creator_added_when_missing", ids: []string{"a", "b"}, want: []string{"me", "a", "b"}},
		{name: "creator_not_duplicated", ids: []string{"a", "me"}, want: []string{"me", "a"}},
		{name: "blanks_and_repeats_dropped", ids: []string{"a", " ", "a", "b"}, want: []string{"me", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeParticipants("me", tt.ids))
		})
	}
}

func TestNewFromCreateRequest_DirectLimit(t *testing.T) {
	_, err := NewFromCreateRequest("me", CreateRequest{Type: TypeDirect, ParticipantIDs: []string{"a", "b"}})
	assert.True(t, errors.Is(err, ErrTooManyParticipants))

	c, err := NewFromCreateRequest("me", CreateRequest{Type: TypeDirect, ParticipantIDs: []string{"a"}})
	require.NoError(t, err)
	assert.True(t, c.HasParticipant("me"))
	assert.Equal(t, []string{"a"}, c.Recipients("me"))
}
