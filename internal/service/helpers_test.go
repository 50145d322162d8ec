package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/metrics"
	"github.com/mzhdanov/membership-service/internal/repository/memory"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

const testPassword = "correct-horse-battery"

// fixture собирает сервисы поверх хранилища в памяти с управляемыми часами.
type fixture struct {
	store    *memory.Store
	clock    time.Time
	audit    AuditService
	admins   AdminService
	accounts AccountService
	subs     SubscriptionService
	access   AccessService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	m := metrics.NewMembershipMetrics(prometheus.NewRegistry(), log)

	f := &fixture{
		store: store,
		clock: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }

	auditSvc := NewAuditService(store.Audit(), m, log).(*auditService)
	auditSvc.now = now

	adminSvc := NewAdminService(store.Admins(), store.Accounts(), auditSvc, log).(*adminService)
	adminSvc.now = now

	accountSvc := NewAccountService(store.Accounts(), adminSvc, auditSvc, nil, m, log).(*accountService)
	accountSvc.now = now

	subSvc := NewSubscriptionService(store.Subscriptions(), store.Accounts(), store.Tx(), adminSvc, auditSvc, nil, m, log).(*subscriptionService)
	subSvc.now = now

	accessSvc := NewAccessService(store.Access(), store.Accounts(), adminSvc, auditSvc, m, log).(*accessService)
	accessSvc.now = now

	f.audit = auditSvc
	f.admins = adminSvc
	f.accounts = accountSvc
	f.subs = subSvc
	f.access = accessSvc

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// newAdmin заводит аккаунт с активным грантом и перечисленными правами.
func (f *fixture) newAdmin(t *testing.T, permissions ...string) uuid.UUID {
	t.Helper()

	account := f.newAccount(t, uuid.NewString()+"@admin.test", domain.RegistrationStatusApproved)
	grant := &domain.AdminGrant{
		ID:          uuid.New(),
		AccountID:   account.ID,
		GrantedBy:   account.ID,
		Role:        domain.RoleAdmin,
		Permissions: permissions,
		Active:      true,
	}
	require.NoError(t, f.store.Admins().Create(context.Background(), grant))
	return account.ID
}

// newAccount заводит аккаунт в заданном статусе регистрации напрямую в
// хранилище, минуя регистрацию.
func (f *fixture) newAccount(t *testing.T, email string, status domain.RegistrationStatus) *domain.Account {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	account := &domain.Account{
		ID:                 uuid.New(),
		Email:              domain.NormalizeEmail(email),
		PasswordHash:       string(hash),
		RegistrationStatus: status,
		PaymentStatus:      domain.PaymentStatusPending,
		SubscriptionTier:   domain.TierFree,
		SubscriptionStatus: domain.AccountSubscriptionInactive,
	}
	if status == domain.RegistrationStatusApproved {
		account.PaymentStatus = domain.PaymentStatusVerified
		account.EmailVerified = true
		v := f.clock
		account.VerifiedAt = &v
	}
	require.NoError(t, f.store.Accounts().Create(context.Background(), account))
	return account
}

// auditEntries возвращает записи журнала с указанным действием.
func (f *fixture) auditEntries(t *testing.T, action string) []domain.AuditEntry {
	t.Helper()

	entries, _, err := f.store.Audit().Query(context.Background(),
		domain.AuditFilter{Action: action}, domain.AuditPage{Limit: 500})
	require.NoError(t, err)
	return entries
}

func (f *fixture) reloadAccount(t *testing.T, id uuid.UUID) *domain.Account {
	t.Helper()

	account, err := f.store.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return account
}
