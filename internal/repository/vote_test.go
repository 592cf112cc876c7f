package repository

import (
	"context"
	"regexp"
	"testing"

	"recipeexchange/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteRepository_Get(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		mockBehavior func()
		expected     *models.VoteType
	}{
		{
			name: "Existing vote",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "user_id", "recipe_id", "vote_type"}).
					AddRow(7, "u-1", "abc1234", "downvote")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "votes" WHERE user_id = $1 AND recipe_id = $2 ORDER BY "votes"."id" LIMIT $3`)).
					WithArgs("u-1", "abc1234", 1).
					WillReturnRows(rows)
			},
			expected: func() *models.VoteType { v := models.Downvote; return &v }(),
		},
		{
			name: "No vote",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "votes" WHERE user_id = $1 AND recipe_id = $2`)).
					WithArgs("u-1", "abc1234", 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			vote, err := repo.Get(ctx, "u-1", "abc1234")
			require.NoError(t, err)
			if tt.expected == nil {
				assert.Nil(t, vote)
			} else if assert.NotNil(t, vote) {
				assert.Equal(t, *tt.expected, vote.VoteType)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVoteRepository_ForUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVoteRepository(db)

	rows := sqlmock.NewRows([]string{"recipe_id", "vote_type"}).
		AddRow("r1", "upvote").
		AddRow("r3", "downvote")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "recipe_id","vote_type" FROM "votes" WHERE user_id = $1 AND recipe_id IN ($2,$3,$4)`)).
		WithArgs("u-1", "r1", "r2", "r3").
		WillReturnRows(rows)

	votes, err := repo.ForUser(context.Background(), "u-1", []string{"r1", "r2", "r3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]models.VoteType{"r1": models.Upvote, "r3": models.Downvote}, votes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_ForUser_AnonymousSkipsQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVoteRepository(db)

	votes, err := repo.ForUser(context.Background(), "", []string{"r1"})
	require.NoError(t, err)
	assert.Empty(t, votes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_OneVotePerPair(t *testing.T) {
	db := setupSQLite(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u-1", "alice")
	seedRecipe(t, db, "abc1234", "u-1")

	require.NoError(t, repo.Create(ctx, &models.Vote{UserID: "u-1", RecipeID: "abc1234", VoteType: models.Upvote}))
	err := repo.Create(ctx, &models.Vote{UserID: "u-1", RecipeID: "abc1234", VoteType: models.Downvote})
	assert.ErrorIs(t, err, models.ErrConflict)

	vote, err := repo.Get(ctx, "u-1", "abc1234")
	require.NoError(t, err)
	require.NotNil(t, vote)
	require.NoError(t, repo.UpdateType(ctx, vote.ID, models.Downvote))

	vote, err = repo.Get(ctx, "u-1", "abc1234")
	require.NoError(t, err)
	assert.Equal(t, models.Downvote, vote.VoteType)

	require.NoError(t, repo.DeleteByRecipe(ctx, "abc1234"))
	vote, err = repo.Get(ctx, "u-1", "abc1234")
	require.NoError(t, err)
	assert.Nil(t, vote)
}
