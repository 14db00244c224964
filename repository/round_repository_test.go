package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo/models"
	"wingo/repository/testutil"
)

func TestRoundRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()

	round := &models.Round{ID: "0192f0a1-color-1", GameKind: models.GameKindColor, Phase: models.PhaseBetting}
	require.NoError(t, repo.Create(ctx, round))
	assert.False(t, round.CreatedAt.IsZero())

	require.NoError(t, repo.UpdatePhase(ctx, round.ID, models.PhaseResolving))
	require.NoError(t, repo.Resolve(ctx, round.ID, "green"))

	// a second resolve never overwrites the first result
	require.NoError(t, repo.Resolve(ctx, round.ID, "red"))

	stored, err := repo.GetByID(ctx, round.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.PhaseResolving, stored.Phase)
	require.NotNil(t, stored.Result)
	assert.Equal(t, "green", *stored.Result)
	assert.NotNil(t, stored.ResolvedAt)

	missing, err := repo.GetByID(ctx, "no-such-round")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRoundRepository_ListResolved(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewRoundRepository(testDB.DB)
	ctx := context.Background()

	for _, id := range []string{"color-a", "color-b", "color-c"} {
		testutil.CreateTestRound(t, testDB.DB, id, models.GameKindColor)
		require.NoError(t, repo.Resolve(ctx, id, "red"))
		time.Sleep(5 * time.Millisecond)
	}
	testutil.CreateTestRound(t, testDB.DB, "color-open", models.GameKindColor)
	testutil.CreateTestRound(t, testDB.DB, "crash-a", models.GameKindCrash)
	require.NoError(t, repo.Resolve(ctx, "crash-a", "1.00"))

	rounds, err := repo.ListResolved(ctx, models.GameKindColor, 2)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, "color-c", rounds[0].ID)
	assert.Equal(t, "color-b", rounds[1].ID)

	rounds, err = repo.ListResolved(ctx, models.GameKindCrash, 10)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, "1.00", *rounds[0].Result)
}
