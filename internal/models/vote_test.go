package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func vt(v VoteType) *VoteType { return &v }

func TestApplyVote_TransitionTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		current   *VoteType
		requested *VoteType
		next      *VoteType
		delta     int
	}{
		{"none to upvote", nil, vt(Upvote), vt(Upvote), 1},
		{"none to downvote", nil, vt(Downvote), vt(Downvote), -1},
		{"upvote toggled off", vt(Upvote), vt(Upvote), nil, -1},
		{"upvote switched to downvote", vt(Upvote), vt(Downvote), vt(Downvote), -2},
		{"downvote toggled off", vt(Downvote), vt(Downvote), nil, 1},
		{"downvote switched to upvote", vt(Downvote), vt(Upvote), vt(Upvote), 2},
		{"remove with no vote", nil, nil, nil, 0},
		{"remove upvote", vt(Upvote), nil, nil, -1},
		{"remove downvote", vt(Downvote), nil, nil, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			next, delta := ApplyVote(tt.current, tt.requested)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.delta, delta)
		})
	}
}

func TestApplyVote_DoesNotAliasRequest(t *testing.T) {
	requested := vt(Upvote)
	next, _ := ApplyVote(nil, requested)
	*requested = Downvote
	assert.Equal(t, Upvote, *next)
}

func TestVoteType_Valid(t *testing.T) {
	assert.True(t, Upvote.Valid())
	assert.True(t, Downvote.Valid())
	assert.False(t, VoteType("sideways").Valid())
	assert.False(t, VoteType("").Valid())
}
