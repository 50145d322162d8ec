// Package memory содержит реализации репозиториев в памяти.
// Используется сервисными тестами вместо PostgreSQL; семантика ошибок
// совпадает с реализациями из пакета postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/repository"
)

// Store хранит все коллекции в памяти под одним мьютексом.
type Store struct {
	mu sync.Mutex

	accounts      map[uuid.UUID]domain.Account
	subscriptions map[uuid.UUID]domain.Subscription
	grants        map[string]domain.ContentAccessGrant
	adminGrants   map[uuid.UUID]domain.AdminGrant
	auditEntries  []domain.AuditEntry
}

// NewStore создает новое хранилище в памяти
func NewStore() *Store {
	return &Store{
		accounts:      make(map[uuid.UUID]domain.Account),
		subscriptions: make(map[uuid.UUID]domain.Subscription),
		grants:        make(map[string]domain.ContentAccessGrant),
		adminGrants:   make(map[uuid.UUID]domain.AdminGrant),
	}
}

func grantKey(accountID uuid.UUID, contentType, contentID string) string {
	return accountID.String() + "|" + contentType + "|" + contentID
}

// Tx возвращает транзакционный менеджер хранилища. Мьютекс уже
// сериализует операции, поэтому Within выполняет функцию без отката,
// но отложенные через OnCommit функции запускает так же, как
// postgres-реализация после фиксации.
func (s *Store) Tx() repository.Tx {
	return &memoryTx{}
}

type memoryTx struct{}

func (t *memoryTx) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	if repository.InTx(ctx) {
		return fn(ctx)
	}

	txCtx, hooks := repository.WithAfterCommit(ctx)
	if err := fn(txCtx); err != nil {
		return err
	}

	hooks.Run(ctx)
	return nil
}

// Accounts возвращает репозиторий аккаунтов
func (s *Store) Accounts() repository.AccountRepository {
	return &accountRepo{store: s}
}

// Subscriptions возвращает репозиторий подписок
func (s *Store) Subscriptions() repository.SubscriptionRepository {
	return &subscriptionRepo{store: s}
}

// Access возвращает репозиторий грантов доступа
func (s *Store) Access() repository.AccessRepository {
	return &accessRepo{store: s}
}

// Admins возвращает репозиторий административных грантов
func (s *Store) Admins() repository.AdminRepository {
	return &adminRepo{store: s}
}

// Audit возвращает репозиторий журнала аудита
func (s *Store) Audit() repository.AuditRepository {
	return &auditRepo{store: s}
}

type accountRepo struct {
	store *Store
}

func (r *accountRepo) Create(_ context.Context, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, a := range r.store.accounts {
		if a.Email == account.Email {
			return repository.ErrDuplicate
		}
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	r.store.accounts[account.ID] = *account
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, a := range r.store.accounts {
		if a.Email == email {
			out := a
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) Update(_ context.Context, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = time.Now()
	}
	r.store.accounts[account.ID] = *account
	return nil
}

func (r *accountRepo) ApproveAllPending(_ context.Context, verifiedAt time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var affected int64
	for id, a := range r.store.accounts {
		if a.RegistrationStatus == domain.RegistrationStatusApproved ||
			a.RegistrationStatus == domain.RegistrationStatusRejected {
			continue
		}
		a.RegistrationStatus = domain.RegistrationStatusApproved
		a.PaymentStatus = domain.PaymentStatusVerified
		a.EmailVerified = true
		v := verifiedAt
		a.VerifiedAt = &v
		a.SubscriptionStatus = domain.AccountSubscriptionActive
		a.SubscriptionTier = domain.TierPremium
		a.UpdatedAt = verifiedAt
		r.store.accounts[id] = a
		affected++
	}
	return affected, nil
}

func (r *accountRepo) ApprovePaymentSubmittedActive(_ context.Context, verifiedAt time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var affected int64
	for id, a := range r.store.accounts {
		if a.RegistrationStatus != domain.RegistrationStatusPaymentSubmitted ||
			a.SubscriptionStatus != domain.AccountSubscriptionActive {
			continue
		}
		a.RegistrationStatus = domain.RegistrationStatusApproved
		a.PaymentStatus = domain.PaymentStatusVerified
		a.EmailVerified = true
		v := verifiedAt
		a.VerifiedAt = &v
		a.UpdatedAt = verifiedAt
		r.store.accounts[id] = a
		affected++
	}
	return affected, nil
}

type subscriptionRepo struct {
	store *Store
}

func (r *subscriptionRepo) Create(_ context.Context, sub *domain.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = sub.CreatedAt
	}
	r.store.subscriptions[sub.ID] = *sub
	return nil
}

func (r *subscriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.subscriptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *subscriptionRepo) GetByAccountID(_ context.Context, accountID uuid.UUID) ([]domain.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var subs []domain.Subscription
	for _, s := range r.store.subscriptions {
		if s.AccountID == accountID {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	return subs, nil
}

func (r *subscriptionRepo) Update(_ context.Context, sub *domain.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.subscriptions[sub.ID]; !ok {
		return repository.ErrNotFound
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now()
	}
	r.store.subscriptions[sub.ID] = *sub
	return nil
}

func (r *subscriptionRepo) HasActiveByAccountID(_ context.Context, accountID uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, s := range r.store.subscriptions {
		if s.AccountID == accountID && s.Status == domain.SubscriptionStatusActive {
			return true, nil
		}
	}
	return false, nil
}

type accessRepo struct {
	store *Store
}

func (r *accessRepo) Get(_ context.Context, accountID uuid.UUID, contentType, contentID string) (*domain.ContentAccessGrant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	g, ok := r.store.grants[grantKey(accountID, contentType, contentID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (r *accessRepo) Upsert(_ context.Context, grant *domain.ContentAccessGrant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := grantKey(grant.AccountID, grant.ContentType, grant.ContentID)
	if existing, ok := r.store.grants[key]; ok {
		grant.ID = existing.ID
		grant.CreatedAt = existing.CreatedAt
	} else if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now()
	}
	if grant.UpdatedAt.IsZero() {
		grant.UpdatedAt = time.Now()
	}
	r.store.grants[key] = *grant
	return nil
}

type adminRepo struct {
	store *Store
}

func (r *adminRepo) Create(_ context.Context, grant *domain.AdminGrant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.adminGrants[grant.AccountID]; ok {
		return repository.ErrDuplicate
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now()
	}
	if grant.UpdatedAt.IsZero() {
		grant.UpdatedAt = grant.CreatedAt
	}
	r.store.adminGrants[grant.AccountID] = *grant
	return nil
}

func (r *adminRepo) GetByAccountID(_ context.Context, accountID uuid.UUID) (*domain.AdminGrant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	g, ok := r.store.adminGrants[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (r *adminRepo) Update(_ context.Context, grant *domain.AdminGrant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.adminGrants[grant.AccountID]; !ok {
		return repository.ErrNotFound
	}
	if grant.UpdatedAt.IsZero() {
		grant.UpdatedAt = time.Now()
	}
	r.store.adminGrants[grant.AccountID] = *grant
	return nil
}

type auditRepo struct {
	store *Store
}

func (r *auditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.auditEntries = append(r.store.auditEntries, *entry)
	return nil
}

func (r *auditRepo) Query(_ context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	page = page.Normalize()

	var matched []domain.AuditEntry
	for _, e := range r.store.auditEntries {
		if filter.Action != "" && !strings.Contains(e.Action, filter.Action) {
			continue
		}
		if filter.ResourceType != "" && e.ResourceType != filter.ResourceType {
			continue
		}
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, e)
	}

	// убывающий порядок переставляет операнды; равные ключи сохраняют
	// порядок вставки
	less := func(i, j int) bool {
		a, b := matched[i], matched[j]
		if page.SortOrder == "desc" {
			a, b = b, a
		}
		switch page.SortBy {
		case "action":
			return a.Action < b.Action
		case "severity":
			return a.Severity < b.Severity
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, less)

	total := int64(len(matched))
	start := (page.Page - 1) * page.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}
