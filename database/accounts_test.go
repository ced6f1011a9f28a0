package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/diffuser/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountsNewAccountsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewAccountsDBHandler", func(t *testing.T) {
		accountsDbHandler, err := NewAccountsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewAccountsDBHandler to not return an error")
		require.NotNil(t, accountsDbHandler, "Expected NewAccountsDBHandler to return a non-nil instance")
	})

	t.Run("Invalid call NewAccountsDBHandler with nil database", func(t *testing.T) {
		_, err := NewAccountsDBHandler(nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestAccountsUpsertAndSelect(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	accountsDbHandler, err := NewAccountsDBHandler(database, true)
	require.NoError(t, err)

	accountID := uuid.NewString()
	aggregate := model.NewAccountAggregate(accountID)
	aggregate.Original.PostIDs.Add("p1")
	aggregate.Original.Timestamps = append(aggregate.Original.Timestamps, time.Date(2022, 1, 2, 9, 0, 0, 0, time.UTC))
	aggregate.MentionedBy["u2"] = 3
	aggregate.PeriodRatiosPosted[2] = 1
	aggregate.AttentionVector = [model.AttentionBins]float64{0, 0, 1, 0, 0, 0}

	t.Run("Upsert new account", func(t *testing.T) {
		replaced, err := accountsDbHandler.UpsertAccount(ctx, aggregate)
		assert.NoError(t, err)
		assert.False(t, replaced)
	})

	t.Run("Upsert existing account replaces it", func(t *testing.T) {
		replaced, err := accountsDbHandler.UpsertAccount(ctx, aggregate)
		assert.NoError(t, err)
		assert.True(t, replaced)
	})

	t.Run("Select account", func(t *testing.T) {
		selected, err := accountsDbHandler.SelectAccount(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, accountID, selected.AccountID)
		assert.True(t, selected.Original.PostIDs.Has("p1"))
		assert.Equal(t, 3, selected.MentionedBy["u2"])
		assert.Equal(t, 1.0, selected.PeriodRatiosPosted.Get(2))
		assert.Equal(t, aggregate.AttentionVector, selected.AttentionVector)
	})

	t.Run("Select missing account", func(t *testing.T) {
		_, err := accountsDbHandler.SelectAccount(ctx, uuid.NewString())
		assert.Error(t, err)
	})

	t.Run("Select all accounts", func(t *testing.T) {
		accounts, err := accountsDbHandler.SelectAccounts(ctx)
		require.NoError(t, err)
		assert.True(t, accounts.Has(accountID))
	})
}

func TestAccountsSelectByAttention(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	accountsDbHandler, err := NewAccountsDBHandler(database, true)
	require.NoError(t, err)
	require.NoError(t, accountsDbHandler.DeleteAllAccounts(ctx))

	morning := model.NewAccountAggregate("morning")
	morning.Original.PostIDs.Add("p1")
	morning.AttentionVector = [model.AttentionBins]float64{0, 0, 1, 0, 0, 0}

	evening := model.NewAccountAggregate("evening")
	evening.Original.PostIDs.Add("p2")
	evening.AttentionVector = [model.AttentionBins]float64{0, 0, 0, 0, 1, 0}

	silent := model.NewAccountAggregate("silent")

	for _, a := range []*model.AccountAggregate{morning, evening, silent} {
		_, err := accountsDbHandler.UpsertAccount(ctx, a)
		require.NoError(t, err)
	}

	t.Run("Nearest account first", func(t *testing.T) {
		matches, err := accountsDbHandler.SelectAccountsByAttention(ctx, [model.AttentionBins]float64{0, 0, 0.9, 0, 0.1, 0}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 2, "Expected accounts without posts to be excluded")
		assert.Equal(t, "morning", matches[0].AccountID)
		assert.Equal(t, "evening", matches[1].AccountID)
		assert.Less(t, matches[0].Distance, matches[1].Distance)
	})

	t.Run("Limit is applied", func(t *testing.T) {
		matches, err := accountsDbHandler.SelectAccountsByAttention(ctx, [model.AttentionBins]float64{}, 1)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})
}
