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

func TestCheckAccessUnknownAccount(t *testing.T) {
	f := newFixture(t)

	// несуществующий аккаунт получает отказ, а не ошибку
	granted, err := f.access.CheckAccess(context.Background(), uuid.New(), "course", "101")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestCheckAccessPaidTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "premium@example.com", domain.RegistrationStatusApproved)

	_, err := f.subs.Create(ctx, account.ID, &domain.SubscriptionRequest{PlanID: "premium_monthly"})
	require.NoError(t, err)

	// платная подписка открывает любой контент без точечных грантов
	for _, contentID := range []string{"101", "202", "303"} {
		granted, err := f.access.CheckAccess(ctx, account.ID, "course", contentID)
		require.NoError(t, err)
		assert.True(t, granted)
	}
}

func TestCheckAccessWithoutGrant(t *testing.T) {
	f := newFixture(t)
	account := f.newAccount(t, "free@example.com", domain.RegistrationStatusApproved)

	granted, err := f.access.CheckAccess(context.Background(), account.ID, "course", "101")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestGrantAndRevokeAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionContentManagement)
	account := f.newAccount(t, "student@example.com", domain.RegistrationStatusApproved)

	grantReq := &domain.GrantAccessRequest{
		AccountID:   account.ID.String(),
		ContentType: "course",
		ContentID:   "101",
	}

	_, err := f.access.Grant(ctx, adminID, grantReq)
	require.NoError(t, err)

	granted, err := f.access.CheckAccess(ctx, account.ID, "course", "101")
	require.NoError(t, err)
	assert.True(t, granted)

	// грант точечный: другой контент остается закрыт
	granted, err = f.access.CheckAccess(ctx, account.ID, "course", "102")
	require.NoError(t, err)
	assert.False(t, granted)

	// повторная выдача не создает дубликата
	_, err = f.access.Grant(ctx, adminID, grantReq)
	require.NoError(t, err)

	revokeReq := &domain.RevokeAccessRequest{
		AccountID:   account.ID.String(),
		ContentType: "course",
		ContentID:   "101",
	}
	require.NoError(t, f.access.Revoke(ctx, adminID, revokeReq))

	granted, err = f.access.CheckAccess(ctx, account.ID, "course", "101")
	require.NoError(t, err)
	assert.False(t, granted)

	// повторный отзыв не является ошибкой
	require.NoError(t, f.access.Revoke(ctx, adminID, revokeReq))

	// отзыв никогда не существовавшего гранта тоже проходит
	require.NoError(t, f.access.Revoke(ctx, adminID, &domain.RevokeAccessRequest{
		AccountID:   account.ID.String(),
		ContentType: "course",
		ContentID:   "999",
	}))
}

func TestGrantExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionContentManagement)
	account := f.newAccount(t, "temp@example.com", domain.RegistrationStatusApproved)

	expiresAt := f.clock.Add(time.Hour)
	_, err := f.access.Grant(ctx, adminID, &domain.GrantAccessRequest{
		AccountID:   account.ID.String(),
		ContentType: "video",
		ContentID:   "7",
		ExpiresAt:   &expiresAt,
	})
	require.NoError(t, err)

	granted, err := f.access.CheckAccess(ctx, account.ID, "video", "7")
	require.NoError(t, err)
	assert.True(t, granted)

	// за мгновение до истечения доступ еще есть
	f.clock = expiresAt.Add(-time.Millisecond)
	granted, err = f.access.CheckAccess(ctx, account.ID, "video", "7")
	require.NoError(t, err)
	assert.True(t, granted)

	// ровно в момент истечения доступа уже нет
	f.clock = expiresAt
	granted, err = f.access.CheckAccess(ctx, account.ID, "video", "7")
	require.NoError(t, err)
	assert.False(t, granted)

	// и дальше отказ не меняется со временем
	for i := 0; i < 3; i++ {
		f.advance(24 * time.Hour)
		granted, err = f.access.CheckAccess(ctx, account.ID, "video", "7")
		require.NoError(t, err)
		assert.False(t, granted)
	}
}

func TestGrantAccessValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionContentManagement)
	account := f.newAccount(t, "valid@example.com", domain.RegistrationStatusApproved)

	t.Run("requires permission", func(t *testing.T) {
		_, err := f.access.Grant(ctx, account.ID, &domain.GrantAccessRequest{
			AccountID:   account.ID.String(),
			ContentType: "course",
			ContentID:   "101",
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("unknown reason", func(t *testing.T) {
		_, err := f.access.Grant(ctx, adminID, &domain.GrantAccessRequest{
			AccountID:    account.ID.String(),
			ContentType:  "course",
			ContentID:    "101",
			AccessReason: "bribe",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.access.Grant(ctx, adminID, &domain.GrantAccessRequest{
			AccountID:   uuid.NewString(),
			ContentType: "course",
			ContentID:   "101",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed account id", func(t *testing.T) {
		_, err := f.access.Grant(ctx, adminID, &domain.GrantAccessRequest{
			AccountID:   "not-a-uuid",
			ContentType: "course",
			ContentID:   "101",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestAccessAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionContentManagement)
	account := f.newAccount(t, "audited@example.com", domain.RegistrationStatusApproved)

	_, err := f.access.Grant(ctx, adminID, &domain.GrantAccessRequest{
		AccountID:    account.ID.String(),
		ContentType:  "course",
		ContentID:    "101",
		AccessReason: string(domain.AccessReasonPromotion),
	})
	require.NoError(t, err)
	require.NoError(t, f.access.Revoke(ctx, adminID, &domain.RevokeAccessRequest{
		AccountID:   account.ID.String(),
		ContentType: "course",
		ContentID:   "101",
	}))

	grants := f.auditEntries(t, "access.grant")
	require.Len(t, grants, 1)
	assert.Equal(t, adminID, grants[0].ActorID)
	assert.Equal(t, "course/101", grants[0].ResourceID)

	revokes := f.auditEntries(t, "access.revoke")
	require.Len(t, revokes, 1)
}
