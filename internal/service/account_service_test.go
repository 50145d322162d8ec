package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhdanov/membership-service/internal/domain"
)

func TestRegisterInitialStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("without payment proof", func(t *testing.T) {
		account, err := f.accounts.Register(ctx, &domain.RegisterRequest{
			Email:    "Plain@Example.COM",
			Password: testPassword,
		})
		require.NoError(t, err)
		assert.Equal(t, "plain@example.com", account.Email)
		assert.Equal(t, domain.RegistrationStatusPendingPayment, account.RegistrationStatus)
		assert.Equal(t, domain.PaymentStatusPending, account.PaymentStatus)
		assert.Equal(t, domain.TierFree, account.SubscriptionTier)
		assert.Equal(t, domain.AccountSubscriptionInactive, account.SubscriptionStatus)
	})

	t.Run("with payment proof", func(t *testing.T) {
		account, err := f.accounts.Register(ctx, &domain.RegisterRequest{
			Email:           "prepaid@example.com",
			Password:        testPassword,
			PaymentProofRef: "receipt-001",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RegistrationStatusPaymentSubmitted, account.RegistrationStatus)
		assert.Equal(t, "receipt-001", account.PaymentProofRef)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.accounts.Register(ctx, &domain.RegisterRequest{
			Email:    "plain@example.com",
			Password: testPassword,
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestSubmitPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account := f.newAccount(t, "payer@example.com", domain.RegistrationStatusPendingPayment)

	updated, err := f.accounts.SubmitPayment(ctx, account.ID, &domain.SubmitPaymentRequest{
		PaymentProofRef: "receipt-100",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusPaymentSubmitted, updated.RegistrationStatus)
	assert.Equal(t, "receipt-100", updated.PaymentProofRef)

	// повторная отправка заменяет подтверждение
	updated, err = f.accounts.SubmitPayment(ctx, account.ID, &domain.SubmitPaymentRequest{
		PaymentProofRef: "receipt-101",
	})
	require.NoError(t, err)
	assert.Equal(t, "receipt-101", updated.PaymentProofRef)

	approved := f.newAccount(t, "done@example.com", domain.RegistrationStatusApproved)
	_, err = f.accounts.SubmitPayment(ctx, approved.ID, &domain.SubmitPaymentRequest{
		PaymentProofRef: "receipt-102",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestAccountTimestampsUseServiceClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.accounts.Register(ctx, &domain.RegisterRequest{
		Email:    "clocked@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)

	reloaded := f.reloadAccount(t, account.ID)
	assert.Equal(t, f.clock, reloaded.CreatedAt)
	assert.Equal(t, f.clock, reloaded.UpdatedAt)

	createdAt := reloaded.CreatedAt
	f.advance(2 * time.Hour)

	_, err = f.accounts.SubmitPayment(ctx, account.ID, &domain.SubmitPaymentRequest{
		PaymentProofRef: "receipt-7",
	})
	require.NoError(t, err)

	reloaded = f.reloadAccount(t, account.ID)
	assert.Equal(t, createdAt, reloaded.CreatedAt)
	assert.Equal(t, f.clock, reloaded.UpdatedAt)
}

func TestApproveEnablesPremiumAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionUserManagement)

	account := f.newAccount(t, "candidate@example.com", domain.RegistrationStatusPaymentSubmitted)

	approved, err := f.accounts.Approve(ctx, adminID, account.ID, &domain.ReviewRequest{Note: "receipt checked"})
	require.NoError(t, err)

	assert.Equal(t, domain.RegistrationStatusApproved, approved.RegistrationStatus)
	assert.Equal(t, domain.PaymentStatusVerified, approved.PaymentStatus)
	assert.True(t, approved.EmailVerified)
	require.NotNil(t, approved.VerifiedAt)
	assert.Equal(t, f.clock, *approved.VerifiedAt)
	assert.Equal(t, domain.TierPremium, approved.SubscriptionTier)
	assert.Equal(t, domain.AccountSubscriptionActive, approved.SubscriptionStatus)
	assert.Equal(t, "receipt checked", approved.AdminNote)

	entries := f.auditEntries(t, "account.approve")
	require.Len(t, entries, 1)
	assert.Equal(t, adminID, entries[0].ActorID)
	assert.Equal(t, domain.AuditSeverityHigh, entries[0].Severity)
	assert.Contains(t, entries[0].Details, "before")
	assert.Contains(t, entries[0].Details, "after")
}

func TestApproveIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionUserManagement)
	account := f.newAccount(t, "twice@example.com", domain.RegistrationStatusPaymentSubmitted)

	_, err := f.accounts.Approve(ctx, adminID, account.ID, nil)
	require.NoError(t, err)
	_, err = f.accounts.Approve(ctx, adminID, account.ID, nil)
	require.NoError(t, err)

	assert.Len(t, f.auditEntries(t, "account.approve"), 1)
}

func TestRejectionIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionUserManagement)

	account := f.newAccount(t, "rejected@example.com", domain.RegistrationStatusPaymentSubmitted)

	rejected, err := f.accounts.Reject(ctx, adminID, account.ID, &domain.ReviewRequest{Note: "forged receipt"})
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusRejected, rejected.RegistrationStatus)
	assert.Equal(t, domain.PaymentStatusRejected, rejected.PaymentStatus)

	// отклоненный аккаунт нельзя одобрить
	_, err = f.accounts.Approve(ctx, adminID, account.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// повторное отклонение ничего не меняет
	_, err = f.accounts.Reject(ctx, adminID, account.ID, nil)
	require.NoError(t, err)

	entries := f.auditEntries(t, "account.reject")
	require.Len(t, entries, 1)

	// запись аудита фиксирует до и после по всем четырем полям
	before, ok := entries[0].Details["before"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.RegistrationStatusPaymentSubmitted, before["registration_status"])
	assert.Equal(t, domain.PaymentStatusPending, before["payment_status"])
	assert.Equal(t, domain.TierFree, before["subscription_tier"])
	assert.Equal(t, domain.AccountSubscriptionInactive, before["subscription_status"])

	after, ok := entries[0].Details["after"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.RegistrationStatusRejected, after["registration_status"])
	assert.Equal(t, domain.PaymentStatusRejected, after["payment_status"])
	assert.Equal(t, domain.TierFree, after["subscription_tier"])
	assert.Equal(t, domain.AccountSubscriptionInactive, after["subscription_status"])
	assert.Equal(t, "forged receipt", entries[0].Details["note"])
}

func TestRejectApprovedAccount(t *testing.T) {
	f := newFixture(t)
	adminID := f.newAdmin(t, domain.PermissionUserManagement)
	account := f.newAccount(t, "member@example.com", domain.RegistrationStatusApproved)

	_, err := f.accounts.Reject(context.Background(), adminID, account.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReviewRequiresPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "pending@example.com", domain.RegistrationStatusPaymentSubmitted)

	t.Run("no grant", func(t *testing.T) {
		outsider := f.newAccount(t, "outsider@example.com", domain.RegistrationStatusApproved)
		_, err := f.accounts.Approve(ctx, outsider.ID, account.ID, nil)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("wrong permission", func(t *testing.T) {
		analyst := f.newAdmin(t, domain.PermissionAnalyticsView)
		_, err := f.accounts.Approve(ctx, analyst, account.ID, nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestLoginLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.accounts.Login(ctx, &domain.LoginRequest{
			Email:    "ghost@example.com",
			Password: testPassword,
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("pending account cannot login", func(t *testing.T) {
		f.newAccount(t, "waiting@example.com", domain.RegistrationStatusPaymentSubmitted)
		_, err := f.accounts.Login(ctx, &domain.LoginRequest{
			Email:    "waiting@example.com",
			Password: testPassword,
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("approved account logs in", func(t *testing.T) {
		f.newAccount(t, "member@example.com", domain.RegistrationStatusApproved)
		account, err := f.accounts.Login(ctx, &domain.LoginRequest{
			Email:    "Member@Example.com",
			Password: testPassword,
		})
		require.NoError(t, err)
		assert.Equal(t, "member@example.com", account.Email)
	})
}

func TestLoginLockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "victim@example.com", domain.RegistrationStatusApproved)

	badLogin := &domain.LoginRequest{Email: "victim@example.com", Password: "wrong"}
	goodLogin := &domain.LoginRequest{Email: "victim@example.com", Password: testPassword}

	for i := 0; i < 4; i++ {
		_, err := f.accounts.Login(ctx, badLogin)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}

	// пятая неудача включает блокировку
	_, err := f.accounts.Login(ctx, badLogin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, f.reloadAccount(t, account.ID).IsLocked(f.clock))

	// во время блокировки не проходит даже верный пароль
	_, err = f.accounts.Login(ctx, goodLogin)
	assert.ErrorIs(t, err, domain.ErrAccountLocked)

	entries := f.auditEntries(t, "account.locked")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditOutcomeWarning, entries[0].Outcome)

	// по истечении окна блокировки вход восстанавливается
	f.advance(15*time.Minute + time.Second)
	_, err = f.accounts.Login(ctx, goodLogin)
	require.NoError(t, err)

	reloaded := f.reloadAccount(t, account.ID)
	assert.Zero(t, reloaded.FailedLoginAttempts)
	assert.Nil(t, reloaded.LockedUntil)
}

func TestLoginFailureAfterExpiredLockRestartsCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.newAccount(t, "slow@example.com", domain.RegistrationStatusApproved)

	badLogin := &domain.LoginRequest{Email: "slow@example.com", Password: "wrong"}
	for i := 0; i < 5; i++ {
		_, err := f.accounts.Login(ctx, badLogin)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}
	require.True(t, f.reloadAccount(t, account.ID).IsLocked(f.clock))

	f.advance(16 * time.Minute)

	_, err := f.accounts.Login(ctx, badLogin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	reloaded := f.reloadAccount(t, account.ID)
	assert.Equal(t, 1, reloaded.FailedLoginAttempts)
	assert.False(t, reloaded.IsLocked(f.clock))
}

func TestApproveAllPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionUserManagement)

	pending := f.newAccount(t, "a@example.com", domain.RegistrationStatusPendingPayment)
	submitted := f.newAccount(t, "b@example.com", domain.RegistrationStatusPaymentSubmitted)
	rejected := f.newAccount(t, "c@example.com", domain.RegistrationStatusRejected)
	f.newAccount(t, "d@example.com", domain.RegistrationStatusApproved)

	affected, err := f.accounts.ApproveAllPending(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	for _, id := range []*domain.Account{pending, submitted} {
		reloaded := f.reloadAccount(t, id.ID)
		assert.Equal(t, domain.RegistrationStatusApproved, reloaded.RegistrationStatus)
		assert.Equal(t, domain.TierPremium, reloaded.SubscriptionTier)
	}

	// отклоненные аккаунты массовым одобрением не затрагиваются
	assert.Equal(t, domain.RegistrationStatusRejected,
		f.reloadAccount(t, rejected.ID).RegistrationStatus)

	entries := f.auditEntries(t, "account.approve_all_pending")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditSeverityCritical, entries[0].Severity)
	assert.EqualValues(t, 2, entries[0].Details["affected"])
}

func TestApprovePaymentSubmittedActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionUserManagement)

	eligible := f.newAccount(t, "paid@example.com", domain.RegistrationStatusPaymentSubmitted)
	eligible.SubscriptionStatus = domain.AccountSubscriptionActive
	eligible.SubscriptionTier = domain.TierPremium
	require.NoError(t, f.store.Accounts().Update(ctx, eligible))

	f.newAccount(t, "unpaid@example.com", domain.RegistrationStatusPaymentSubmitted)

	affected, err := f.accounts.ApprovePaymentSubmittedActive(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, domain.RegistrationStatusApproved,
		f.reloadAccount(t, eligible.ID).RegistrationStatus)
}

func TestRegistrationApprovalFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.newAdmin(t, domain.PermissionUserManagement)

	account, err := f.accounts.Register(ctx, &domain.RegisterRequest{
		Email:    "journey@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)

	_, err = f.accounts.Login(ctx, &domain.LoginRequest{
		Email:    "journey@example.com",
		Password: testPassword,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.accounts.SubmitPayment(ctx, account.ID, &domain.SubmitPaymentRequest{
		PaymentProofRef: "wire-555",
	})
	require.NoError(t, err)

	_, err = f.accounts.Approve(ctx, adminID, account.ID, nil)
	require.NoError(t, err)

	logged, err := f.accounts.Login(ctx, &domain.LoginRequest{
		Email:    "journey@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.True(t, logged.HasPaidTier())
}
