package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhdanov/membership-service/internal/domain"
)

func TestCreateSubscriptionUnknownPlan(t *testing.T) {
	f := newFixture(t)
	account := f.newAccount(t, "member@example.com", domain.RegistrationStatusApproved)

	_, err := f.subs.Create(context.Background(), account.ID, &domain.SubscriptionRequest{
		PlanID: "platinum_weekly",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateSubscriptionPeriodByInterval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("monthly", func(t *testing.T) {
		account := f.newAccount(t, "monthly@example.com", domain.RegistrationStatusApproved)
		sub, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{
			PlanID: "premium_monthly",
		})
		require.NoError(t, err)
		assert.Equal(t, f.clock, sub.CurrentPeriodStart)
		assert.Equal(t, f.clock.AddDate(0, 1, 0), sub.CurrentPeriodEnd)
		assert.Equal(t, 9.99, sub.Amount)
		assert.Equal(t, domain.SubscriptionIntervalMonth, sub.Interval)
	})

	t.Run("yearly", func(t *testing.T) {
		account := f.newAccount(t, "yearly@example.com", domain.RegistrationStatusApproved)
		sub, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{
			PlanID: "enterprise_yearly",
		})
		require.NoError(t, err)
		assert.Equal(t, f.clock.AddDate(1, 0, 0), sub.CurrentPeriodEnd)
	})
}

func TestCreateSubscriptionUpdatesProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "projected@example.com", domain.RegistrationStatusApproved)

	_, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{
		PlanID: "enterprise_monthly",
	})
	require.NoError(t, err)

	reloaded := f.reloadAccount(t, account.ID)
	assert.Equal(t, domain.TierEnterprise, reloaded.SubscriptionTier)
	assert.Equal(t, domain.AccountSubscriptionActive, reloaded.SubscriptionStatus)
}

func TestCreateSubscriptionSingleActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "greedy@example.com", domain.RegistrationStatusApproved)

	_, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)

	_, err = f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_yearly"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateSubscriptionUnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.subs.Create(context.Background(),
		f.newAccount(t, "x@example.com", domain.RegistrationStatusApproved).ID,
		&domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)

	_, err = f.subs.Create(context.Background(),
		uuid.New(), &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "quitter@example.com", domain.RegistrationStatusApproved)

	sub, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)

	t.Run("stranger cannot cancel", func(t *testing.T) {
		stranger := f.newAccount(t, "stranger@example.com", domain.RegistrationStatusApproved)
		_, err := f.subs.Cancel(ctx, stranger.ID, sub.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("owner cancels", func(t *testing.T) {
		cancelled, err := f.subs.Cancel(ctx, account.ID, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CanceledAt)
		assert.Equal(t, f.clock, *cancelled.CanceledAt)
		assert.True(t, cancelled.CancelAtPeriodEnd)

		reloaded := f.reloadAccount(t, account.ID)
		assert.Equal(t, domain.AccountSubscriptionInactive, reloaded.SubscriptionStatus)
		assert.Equal(t, domain.TierFree, reloaded.SubscriptionTier)
	})

	t.Run("cancelled subscription cannot be cancelled again", func(t *testing.T) {
		_, err := f.subs.Cancel(ctx, account.ID, sub.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("resubscription restores access", func(t *testing.T) {
		_, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_yearly"})
		require.NoError(t, err)

		reloaded := f.reloadAccount(t, account.ID)
		assert.Equal(t, domain.AccountSubscriptionActive, reloaded.SubscriptionStatus)
		assert.Equal(t, domain.TierPremium, reloaded.SubscriptionTier)
	})
}

func TestProjectionResetsToFreeInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionSubscriptionManagement)
	account := f.newAccount(t, "lapsed@example.com", domain.RegistrationStatusApproved)

	sub, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)

	cancelled := domain.SubscriptionStatusCancelled
	_, err = f.subs.AdminUpdate(ctx, adminID, sub.ID, &domain.SubscriptionAdminUpdate{
		Status: &cancelled,
	})
	require.NoError(t, err)

	reloaded := f.reloadAccount(t, account.ID)
	assert.Equal(t, domain.TierFree, reloaded.SubscriptionTier)
	assert.Equal(t, domain.AccountSubscriptionInactive, reloaded.SubscriptionStatus)
}

func TestSubscriptionLifecycleAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "audited@example.com", domain.RegistrationStatusApproved)

	sub, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)

	created := f.auditEntries(t, "subscription.create")
	require.Len(t, created, 1)
	assert.Equal(t, account.ID, created[0].ActorID)
	assert.Equal(t, "subscription", created[0].ResourceType)
	assert.Equal(t, sub.ID.String(), created[0].ResourceID)
	assert.Equal(t, "premium_monthly", created[0].Details["plan_id"])

	_, err = f.subs.Cancel(ctx, account.ID, sub.ID)
	require.NoError(t, err)

	cancelled := f.auditEntries(t, "subscription.cancel")
	require.Len(t, cancelled, 1)
	assert.Equal(t, account.ID, cancelled[0].ActorID)
	assert.Equal(t, sub.ID.String(), cancelled[0].ResourceID)
}

func TestAdminUpdateSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionSubscriptionManagement)
	account := f.newAccount(t, "managed@example.com", domain.RegistrationStatusApproved)

	sub, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)

	t.Run("requires permission", func(t *testing.T) {
		expired := domain.SubscriptionStatusExpired
		_, err := f.subs.AdminUpdate(ctx, account.ID, sub.ID, &domain.SubscriptionAdminUpdate{
			Status: &expired,
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("extend period", func(t *testing.T) {
		newEnd := f.clock.AddDate(0, 3, 0)
		updated, err := f.subs.AdminUpdate(ctx, adminID, sub.ID, &domain.SubscriptionAdminUpdate{
			CurrentPeriodEnd: &newEnd,
		})
		require.NoError(t, err)
		assert.Equal(t, newEnd, updated.CurrentPeriodEnd)
	})

	t.Run("expire recomputes projection", func(t *testing.T) {
		expired := domain.SubscriptionStatusExpired
		updated, err := f.subs.AdminUpdate(ctx, adminID, sub.ID, &domain.SubscriptionAdminUpdate{
			Status: &expired,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusExpired, updated.Status)

		reloaded := f.reloadAccount(t, account.ID)
		assert.Equal(t, domain.AccountSubscriptionInactive, reloaded.SubscriptionStatus)
		assert.Equal(t, domain.TierFree, reloaded.SubscriptionTier)

		entries := f.auditEntries(t, "subscription.admin_update")
		require.NotEmpty(t, entries)
		last := entries[len(entries)-1]
		assert.Equal(t, domain.AuditSeverityHigh, last.Severity)
	})

	t.Run("unknown status", func(t *testing.T) {
		bogus := domain.SubscriptionStatus("suspended")
		_, err := f.subs.AdminUpdate(ctx, adminID, sub.ID, &domain.SubscriptionAdminUpdate{
			Status: &bogus,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestGetSubscriptionVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "owner@example.com", domain.RegistrationStatusApproved)

	sub, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)

	got, err := f.subs.Get(ctx, account.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	stranger := f.newAccount(t, "peeker@example.com", domain.RegistrationStatusApproved)
	_, err = f.subs.Get(ctx, stranger.ID, sub.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	adminID := f.newAdmin(t, domain.PermissionSubscriptionManagement)
	_, err = f.subs.Get(ctx, adminID, sub.ID)
	assert.NoError(t, err)
}

func TestProjectionNeverLagsSubscriptionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "invariant@example.com", domain.RegistrationStatusApproved)

	check := func() {
		active, err := f.store.Subscriptions().HasActiveByAccountID(ctx, account.ID)
		require.NoError(t, err)
		reloaded := f.reloadAccount(t, account.ID)
		assert.Equal(t, active,
			reloaded.SubscriptionStatus == domain.AccountSubscriptionActive,
			"denormalized status must agree with the subscription table")
	}

	sub, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)
	check()

	_, err = f.subs.Cancel(ctx, account.ID, sub.ID)
	require.NoError(t, err)
	check()

	sub2, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "enterprise_monthly"})
	require.NoError(t, err)
	check()

	adminID := f.newAdmin(t, domain.PermissionSubscriptionManagement)
	expired := domain.SubscriptionStatusExpired
	_, err = f.subs.AdminUpdate(ctx, adminID, sub2.ID, &domain.SubscriptionAdminUpdate{Status: &expired})
	require.NoError(t, err)
	check()

	f.advance(30 * time.Minute)
	check()
}
