package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"recipeexchange/internal/models"
	"recipeexchange/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteService_TransitionTable(t *testing.T) {
	up := models.Upvote
	down := models.Downvote

	// Scores are relative to a fresh recipe (score 1 from the author's vote).
	tests := []struct {
		name          string
		initial       *models.VoteType
		requested     *models.VoteType
		expectedVote  *models.VoteType
		expectedDelta int
	}{
		{"none to upvote", nil, &up, &up, 1},
		{"none to downvote", nil, &down, &down, -1},
		{"upvote toggles off", &up, &up, nil, -1},
		{"upvote switches to downvote", &up, &down, &down, -2},
		{"downvote toggles off", &down, &down, nil, 1},
		{"downvote switches to upvote", &down, &up, &up, 2},
		{"remove with no vote", nil, nil, nil, 0},
		{"remove upvote", &up, nil, nil, -1},
		{"remove downvote", &down, nil, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newContentStack(t)
			ctx := context.Background()
			author := createUser(t, s.db, "author")
			voter := createUser(t, s.db, "voter")

			recipe, err := s.recipes.Create(ctx, sampleRecipeInput("Tart"), author.ID)
			require.NoError(t, err)

			before := recipe.VoteScore
			if tt.initial != nil {
				res, err := s.votes.Vote(ctx, recipe.ID, voter.ID, tt.initial)
				require.NoError(t, err)
				before = res.VoteScore
			}

			result, err := s.votes.Vote(ctx, recipe.ID, voter.ID, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedVote, result.VoteType)
			assert.Equal(t, before+tt.expectedDelta, result.VoteScore)

			var rows []models.Vote
			require.NoError(t, s.db.Where("user_id = ? AND recipe_id = ?", voter.ID, recipe.ID).Find(&rows).Error)
			if tt.expectedVote == nil {
				assert.Empty(t, rows)
			} else {
				require.Len(t, rows, 1)
				assert.Equal(t, *tt.expectedVote, rows[0].VoteType)
			}
		})
	}
}

func TestVoteService_ScoreEqualsSumOfVotes(t *testing.T) {
	s := newContentStack(t)
	ctx := context.Background()
	author := createUser(t, s.db, "author")
	recipe, err := s.recipes.Create(ctx, sampleRecipeInput("Curry"), author.ID)
	require.NoError(t, err)

	voters := make([]*models.User, 4)
	for i := range voters {
		voters[i] = createUser(t, s.db, fmt.Sprintf("voter%d", i))
	}

	sequence := []struct {
		voter int
		vote  *models.VoteType
	}{
		{0, voteOf(models.Upvote)},
		{1, voteOf(models.Downvote)},
		{0, voteOf(models.Downvote)},
		{2, voteOf(models.Upvote)},
		{1, voteOf(models.Downvote)},
		{3, nil},
		{2, voteOf(models.Upvote)},
		{3, voteOf(models.Downvote)},
	}
	for _, step := range sequence {
		_, err := s.votes.Vote(ctx, recipe.ID, voters[step.voter].ID, step.vote)
		require.NoError(t, err)
	}

	var votes []models.Vote
	require.NoError(t, s.db.Where("recipe_id = ?", recipe.ID).Find(&votes).Error)
	sum := 0
	perUser := map[string]int{}
	for _, v := range votes {
		perUser[v.UserID]++
		if v.VoteType == models.Upvote {
			sum++
		} else {
			sum--
		}
	}
	for user, n := range perUser {
		assert.Equal(t, 1, n, "user %s has more than one vote row", user)
	}

	var stored models.Recipe
	require.NoError(t, s.db.First(&stored, "id = ?", recipe.ID).Error)
	assert.Equal(t, sum, stored.VoteScore)
	assert.Equal(t, -1, stored.VoteScore, "author +1, voter0 -1, voter3 -1")
}

func TestVoteService_ConcurrentVotes(t *testing.T) {
	s := newContentStack(t)
	ctx := context.Background()
	author := createUser(t, s.db, "author")
	recipe, err := s.recipes.Create(ctx, sampleRecipeInput("Bread"), author.ID)
	require.NoError(t, err)

	const voters = 8
	users := make([]*models.User, voters)
	for i := range users {
		users[i] = createUser(t, s.db, fmt.Sprintf("fan%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := s.votes.Vote(ctx, recipe.ID, userID, voteOf(models.Upvote))
			errs <- err
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := s.recipes.GetByID(ctx, recipe.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1+voters, view.VoteScore)
}

func TestVoteService_Errors(t *testing.T) {
	s := newContentStack(t)
	ctx := context.Background()
	author := createUser(t, s.db, "author")
	recipe, err := s.recipes.Create(ctx, sampleRecipeInput("Salad"), author.ID)
	require.NoError(t, err)

	_, err = s.votes.Vote(ctx, "missing", author.ID, voteOf(models.Upvote))
	assert.ErrorIs(t, err, models.ErrNotFound)

	bogus := models.VoteType("sideways")
	_, err = s.votes.Vote(ctx, recipe.ID, author.ID, &bogus)
	assertValidationError(t, err)
}

func TestVoteService_PublishesScore(t *testing.T) {
	s := newContentStack(t)
	ctx := context.Background()
	author := createUser(t, s.db, "author")
	recipe, err := s.recipes.Create(ctx, sampleRecipeInput("Salad"), author.ID)
	require.NoError(t, err)

	s.events.err = fmt.Errorf("redis down")
	result, err := s.votes.Vote(ctx, recipe.ID, author.ID, voteOf(models.Upvote))
	require.NoError(t, err, "publish failures do not fail the vote")
	assert.Equal(t, 0, result.VoteScore)

	last := s.events.events[len(s.events.events)-1]
	assert.Equal(t, notifications.EventVote, last.Type)
	require.NotNil(t, last.VoteScore)
	assert.Equal(t, 0, *last.VoteScore)
}
