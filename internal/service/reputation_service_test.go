package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/auth"
)

func newReputationService(accounts *fakeAccountRepo, events *capturedEvents) ReputationService {
	return NewReputationService(accounts, events, testLogger(), testEconomyConfig(), 42)
}

func TestReputationService_Award(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresOracleRole", func(t *testing.T) {
		events := &capturedEvents{}
		svc := newReputationService(newFakeAccountRepo(), events)

		_, err := svc.Award(ctx, auth.NewCaller("0xabc"), "0xdef", models.DifficultyEasy,
			false, false, "manual review")
		require.ErrorIs(t, err, errs.ErrAccessDenied)
		assert.True(t, events.has(pubsub.KindOpRejected))
	})

	t.Run("PublishesTheAwardedAmount", func(t *testing.T) {
		events := &capturedEvents{}
		accounts := newFakeAccountRepo()
		accounts.award = &repository.ReputationAward{Amount: 85, NewBalance: 185, NewStreak: 2}
		svc := newReputationService(accounts, events)

		award, err := svc.Award(ctx, auth.NewCaller("0xabc", auth.RoleOracle), "0xdef",
			models.DifficultyEasy, false, false, "manual review")
		require.NoError(t, err)
		assert.Equal(t, int64(85), award.Amount)
		require.True(t, events.has(pubsub.KindAward))
		assert.Equal(t, int64(85), events.events[0].Amount)
	})
}

func TestReputationService_ApplyDecay(t *testing.T) {
	ctx := context.Background()

	t.Run("ReportsTheReputationRemoved", func(t *testing.T) {
		events := &capturedEvents{}
		accounts := newFakeAccountRepo(&models.Account{
			Address:           "0xdef",
			ReputationBalance: 1000,
		})
		// two elapsed windows: 1000 -> 900 -> 810
		accounts.decayRemoved = 190
		svc := newReputationService(accounts, events)

		account, removed, err := svc.ApplyDecay(ctx, "0xdef")
		require.NoError(t, err)
		assert.Equal(t, int64(190), removed)
		assert.Equal(t, int64(810), account.ReputationBalance)

		require.True(t, events.has(pubsub.KindDecay))
		assert.Equal(t, int64(190), events.events[0].Amount)
	})

	t.Run("NoEventInsideTheSameWindow", func(t *testing.T) {
		events := &capturedEvents{}
		accounts := newFakeAccountRepo(&models.Account{
			Address:           "0xdef",
			ReputationBalance: 810,
		})
		svc := newReputationService(accounts, events)

		_, removed, err := svc.ApplyDecay(ctx, "0xdef")
		require.NoError(t, err)
		assert.Equal(t, int64(0), removed)
		assert.Empty(t, events.events)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		events := &capturedEvents{}
		svc := newReputationService(newFakeAccountRepo(), events)

		_, _, err := svc.ApplyDecay(ctx, "0xmissing")
		require.ErrorIs(t, err, errs.ErrNotFound)
		assert.True(t, events.has(pubsub.KindOpRejected))
	})
}
