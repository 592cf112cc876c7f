package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"recipeexchange/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeRepository_GetForUpdate_LocksRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecipeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "author_id", "vote_score"}).
		AddRow("abc1234", "Soup", "u-1", 3)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "recipes" WHERE id = $1 ORDER BY "recipes"."id" LIMIT $2 FOR UPDATE`)).
		WithArgs("abc1234", 1).
		WillReturnRows(rows)

	recipe, err := repo.GetForUpdate(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.Equal(t, 3, recipe.VoteScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeRepository_AdjustScore(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecipeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "recipes" SET "vote_score"=vote_score + $1 WHERE id = $2`)).
		WithArgs(-2, "abc1234").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "vote_score" FROM "recipes" WHERE id = $1`)).
		WithArgs("abc1234").
		WillReturnRows(sqlmock.NewRows([]string{"vote_score"}).AddRow(-1))

	score, err := repo.AdjustScore(context.Background(), "abc1234", -2)
	require.NoError(t, err)
	assert.Equal(t, -1, score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeRepository_AdjustScore_Missing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecipeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "recipes" SET "vote_score"=vote_score + $1 WHERE id = $2`)).
		WithArgs(1, "nope123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	_, err := repo.AdjustScore(context.Background(), "nope123", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeRepository_CreateAssignsID(t *testing.T) {
	db := setupSQLite(t)
	repo := NewRecipeRepository(db)
	seedUser(t, db, "u-1", "alice")

	recipe := &models.Recipe{
		Title:        "Toast",
		Ingredients:  []models.Ingredient{{Name: "bread", Amount: "2", Unit: "slices"}},
		Instructions: []string{"toast"},
		Servings:     1,
		Difficulty:   models.DifficultyEasy,
		Category:     models.CategoryBreakfast,
		Tags:         []string{"quick"},
		AuthorID:     "u-1",
	}
	require.NoError(t, repo.Create(context.Background(), recipe))
	assert.Len(t, recipe.ID, 7)

	loaded, err := repo.GetByID(context.Background(), recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.Ingredients, loaded.Ingredients)
	assert.Equal(t, []string{"quick"}, loaded.Tags)
}

func TestRecipeRepository_ListOrderingAndFilter(t *testing.T) {
	db := setupSQLite(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u-1", "alice")
	seedUser(t, db, "u-2", "bob")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, row := range []struct{ id, author string }{{"old0001", "u-1"}, {"mid0001", "u-2"}, {"new0001", "u-1"}} {
		r := seedRecipe(t, db, row.id, row.author)
		require.NoError(t, db.Model(r).UpdateColumn("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new0001", "mid0001", "old0001"}, []string{all[0].ID, all[1].ID, all[2].ID})

	mine, err := repo.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "new0001", mine[0].ID)
}

func TestRecipeRepository_ListSavedBy(t *testing.T) {
	db := setupSQLite(t)
	repo := NewRecipeRepository(db)
	saves := NewSavedRecipeRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u-1", "alice")
	seedRecipe(t, db, "first01", "u-1")
	seedRecipe(t, db, "second1", "u-1")

	require.NoError(t, saves.Create(ctx, "u-1", "first01"))
	require.NoError(t, saves.Create(ctx, "u-1", "second1"))

	saved, err := repo.ListSavedBy(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "second1", saved[0].ID)
	assert.Equal(t, "first01", saved[1].ID)
}

func TestRecipeRepository_AuthorStats(t *testing.T) {
	db := setupSQLite(t)
	repo := NewRecipeRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u-1", "alice")
	seedRecipe(t, db, "aaaaaa1", "u-1")
	seedRecipe(t, db, "aaaaaa2", "u-1")

	_, err := repo.AdjustScore(ctx, "aaaaaa1", 3)
	require.NoError(t, err)
	_, err = repo.AdjustScore(ctx, "aaaaaa2", -1)
	require.NoError(t, err)

	stats, err := repo.AuthorStats(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.RecipeCount)
	assert.Equal(t, int64(2), stats.TotalVoteScore)

	empty, err := repo.AuthorStats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, AuthorStats{}, empty)
}

func TestRecipeRepository_DeleteMissing(t *testing.T) {
	db := setupSQLite(t)
	repo := NewRecipeRepository(db)

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
