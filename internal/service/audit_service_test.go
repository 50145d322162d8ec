package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/metrics"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// failingAuditRepo имитирует недоступный приемник журнала.
type failingAuditRepo struct{}

func (r *failingAuditRepo) Create(context.Context, *domain.AuditEntry) error {
	return errors.New("sink unavailable")
}

func (r *failingAuditRepo) Query(context.Context, domain.AuditFilter, domain.AuditPage) ([]domain.AuditEntry, int64, error) {
	return nil, 0, nil
}

func TestAuditLogFillsDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      uuid.New(),
		Action:       "account.approve",
		ResourceType: "account",
		ResourceID:   "some-id",
	})

	entries := f.auditEntries(t, "account.approve")
	require.Len(t, entries, 1)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)
	assert.Equal(t, domain.AuditSeverityLow, entries[0].Severity)
	assert.Equal(t, domain.AuditOutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, f.clock, entries[0].CreatedAt)
}

func TestAuditLogAttachesRequestMeta(t *testing.T) {
	f := newFixture(t)

	ctx := WithRequestMeta(context.Background(), RequestMeta{
		IPAddress: "203.0.113.7",
		UserAgent: "integration-test/1.0",
	})

	f.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      uuid.New(),
		Action:       "access.grant",
		ResourceType: "content_access",
		ResourceID:   "course/42",
	})

	entries := f.auditEntries(t, "access.grant")
	require.Len(t, entries, 1)
	assert.Equal(t, "203.0.113.7", entries[0].IPAddress)
	assert.Equal(t, "integration-test/1.0", entries[0].UserAgent)
}

func TestAuditLogSwallowsSinkFailure(t *testing.T) {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	m := metrics.NewMembershipMetrics(prometheus.NewRegistry(), log)

	svc := NewAuditService(&failingAuditRepo{}, m, log)

	// не должно ни паниковать, ни возвращать ошибку вызывающему
	svc.Log(context.Background(), &domain.AuditEntry{
		ActorID: uuid.New(),
		Action:  "account.approve",
	})
}

func TestAuditQueryFilterAndPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	actions := []string{
		"account.approve", "account.approve", "account.reject",
		"access.grant", "access.revoke",
	}
	for _, action := range actions {
		f.audit.Log(ctx, &domain.AuditEntry{
			ActorID:      uuid.New(),
			Action:       action,
			ResourceType: "account",
			ResourceID:   uuid.NewString(),
		})
	}

	entries, total, err := f.audit.Query(ctx,
		domain.AuditFilter{Action: "account"},
		domain.AuditPage{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 2)

	entries, total, err = f.audit.Query(ctx,
		domain.AuditFilter{Action: "account"},
		domain.AuditPage{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 1)

	// страница за пределами выборки возвращает пустой срез и тот же итог
	entries, total, err = f.audit.Query(ctx,
		domain.AuditFilter{Action: "account"},
		domain.AuditPage{Page: 5, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, entries)
}

func TestAuditQueryDescKeepsInsertionOrderOnTies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// часы фиксированы: все записи получают один created_at
	ids := make([]string, 4)
	for i := range ids {
		ids[i] = uuid.NewString()
		f.audit.Log(ctx, &domain.AuditEntry{
			ActorID:      uuid.New(),
			Action:       "access.grant",
			ResourceType: "content_access",
			ResourceID:   ids[i],
		})
	}

	entries, _, err := f.audit.Query(ctx,
		domain.AuditFilter{Action: "access.grant"},
		domain.AuditPage{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, entries, len(ids))
	for i, e := range entries {
		assert.Equal(t, ids[i], e.ResourceID)
	}
}
