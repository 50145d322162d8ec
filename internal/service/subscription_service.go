package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/kafka/producer"
	"github.com/mzhdanov/membership-service/internal/metrics"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// SubscriptionService сервис жизненного цикла подписок. Каждая мутация
// подписки и пересчет денормализованной проекции на аккаунте выполняются
// в одной транзакции хранилища.
type SubscriptionService interface {
	Create(ctx context.Context, accountID uuid.UUID, req *domain.SubscriptionRequest) (*domain.Subscription, error)
	Get(ctx context.Context, actorID, id uuid.UUID) (*domain.Subscription, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error)

	// Cancel отменяет подписку. Доступна только владельцу и только для
	// активной подписки.
	Cancel(ctx context.Context, actorID, id uuid.UUID) (*domain.Subscription, error)

	// AdminUpdate административное изменение статуса или границы периода.
	AdminUpdate(ctx context.Context, actorID, id uuid.UUID, upd *domain.SubscriptionAdminUpdate) (*domain.Subscription, error)
}

type subscriptionService struct {
	subRepo     repository.SubscriptionRepository
	accountRepo repository.AccountRepository
	tx          repository.Tx
	authz       Authorizer
	audit       AuditLogger
	producer    producer.LifecycleProducer
	metrics     metrics.MembershipMetrics
	log         *logger.Logger
	now         func() time.Time
}

// NewSubscriptionService создает новый сервис подписок
func NewSubscriptionService(
	subRepo repository.SubscriptionRepository,
	accountRepo repository.AccountRepository,
	tx repository.Tx,
	authz Authorizer,
	audit AuditLogger,
	lifecycleProducer producer.LifecycleProducer,
	m metrics.MembershipMetrics,
	log *logger.Logger,
) SubscriptionService {
	return &subscriptionService{
		subRepo:     subRepo,
		accountRepo: accountRepo,
		tx:          tx,
		authz:       authz,
		audit:       audit,
		producer:    lifecycleProducer,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// Create оформляет аккаунту подписку по известному плану
func (s *subscriptionService) Create(ctx context.Context, accountID uuid.UUID, req *domain.SubscriptionRequest) (*domain.Subscription, error) {
	plan, ok := domain.PlanByID(req.PlanID)
	if !ok {
		return nil, domain.NewInvalidInputError("plan_id", "unknown plan "+req.PlanID)
	}

	nowTime := s.now()
	periodEnd := nowTime.AddDate(0, 1, 0)
	if plan.Interval == domain.SubscriptionIntervalYear {
		periodEnd = nowTime.AddDate(1, 0, 0)
	}

	sub := &domain.Subscription{
		ID:                 uuid.New(),
		AccountID:          accountID,
		PlanID:             plan.ID,
		Status:             domain.SubscriptionStatusActive,
		CurrentPeriodStart: nowTime,
		CurrentPeriodEnd:   periodEnd,
		Amount:             plan.Amount,
		Currency:           plan.Currency,
		Interval:           plan.Interval,
		PaymentMethodRef:   req.PaymentMethodRef,
		CreatedAt:          nowTime,
		UpdatedAt:          nowTime,
	}

	// проверка единственной активной подписки и вставка идут в одной
	// транзакции, чтобы два конкурентных запроса не прошли оба
	err := s.tx.Within(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.GetByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewNotFoundError("account", accountID.String())
			}
			return err
		}

		active, err := s.subRepo.HasActiveByAccountID(ctx, accountID)
		if err != nil {
			return err
		}
		if active {
			return domain.NewConflictError("subscription", "account already has an active subscription")
		}

		if err := s.subRepo.Create(ctx, sub); err != nil {
			return err
		}

		account.SubscriptionTier = plan.Tier
		account.SubscriptionStatus = domain.AccountSubscriptionActive
		account.UpdatedAt = nowTime
		return s.accountRepo.Update(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      accountID,
		Action:       "subscription.create",
		ResourceType: "subscription",
		ResourceID:   sub.ID.String(),
		Details: map[string]any{
			"plan_id":            plan.ID,
			"tier":               plan.Tier,
			"current_period_end": periodEnd,
		},
		Severity: domain.AuditSeverityMedium,
	})

	if s.producer != nil {
		if err := s.producer.PublishSubscriptionCreated(ctx, *sub); err != nil {
			s.log.Errorw("Failed to publish subscription event", "subscriptionID", sub.ID, "error", err)
		}
	}

	s.metrics.IncSubscription("create")
	s.log.Infow("Subscription created",
		"subscriptionID", sub.ID,
		"accountID", accountID,
		"planID", plan.ID,
	)

	return sub, nil
}

// Get возвращает подписку владельцу или администратору подписок
func (s *subscriptionService) Get(ctx context.Context, actorID, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("subscription", id.String())
		}
		return nil, err
	}

	if sub.AccountID != actorID {
		allowed, err := s.authz.HasPermission(ctx, actorID, domain.PermissionSubscriptionManagement)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, domain.ErrForbidden
		}
	}

	return sub, nil
}

// ListByAccount возвращает все подписки аккаунта
func (s *subscriptionService) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error) {
	return s.subRepo.GetByAccountID(ctx, accountID)
}

// Cancel отменяет активную подписку владельца
func (s *subscriptionService) Cancel(ctx context.Context, actorID, id uuid.UUID) (*domain.Subscription, error) {
	var sub *domain.Subscription

	err := s.tx.Within(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.subRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewNotFoundError("subscription", id.String())
			}
			return err
		}

		if sub.AccountID != actorID {
			return domain.ErrForbidden
		}
		if sub.Status != domain.SubscriptionStatusActive {
			return domain.NewStateError("subscription", string(sub.Status), "cancellation")
		}

		nowTime := s.now()
		sub.Status = domain.SubscriptionStatusCancelled
		sub.CanceledAt = &nowTime
		sub.CancelAtPeriodEnd = true
		sub.UpdatedAt = nowTime

		if err := s.subRepo.Update(ctx, sub); err != nil {
			return err
		}

		return s.recomputeProjection(ctx, sub.AccountID)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "subscription.cancel",
		ResourceType: "subscription",
		ResourceID:   sub.ID.String(),
		Details: map[string]any{
			"plan_id":              sub.PlanID,
			"cancel_at_period_end": sub.CancelAtPeriodEnd,
		},
		Severity: domain.AuditSeverityMedium,
	})

	if s.producer != nil {
		if err := s.producer.PublishSubscriptionCancelled(ctx, *sub); err != nil {
			s.log.Errorw("Failed to publish subscription event", "subscriptionID", sub.ID, "error", err)
		}
	}

	s.metrics.IncSubscription("cancel")
	s.log.Infow("Subscription cancelled", "subscriptionID", sub.ID, "accountID", sub.AccountID)

	return sub, nil
}

// AdminUpdate изменяет статус подписки или границу оплаченного периода
func (s *subscriptionService) AdminUpdate(ctx context.Context, actorID, id uuid.UUID, upd *domain.SubscriptionAdminUpdate) (*domain.Subscription, error) {
	if err := s.authz.RequirePermission(ctx, actorID, domain.PermissionSubscriptionManagement); err != nil {
		return nil, err
	}

	var sub *domain.Subscription
	details := map[string]any{}

	err := s.tx.Within(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.subRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewNotFoundError("subscription", id.String())
			}
			return err
		}

		nowTime := s.now()
		changed := false

		if upd.Status != nil && *upd.Status != sub.Status {
			switch *upd.Status {
			case domain.SubscriptionStatusActive, domain.SubscriptionStatusCancelled,
				domain.SubscriptionStatusExpired, domain.SubscriptionStatusPastDue:
			default:
				return domain.NewInvalidInputError("status", "unknown status "+string(*upd.Status))
			}
			details["status_before"] = sub.Status
			details["status_after"] = *upd.Status
			sub.Status = *upd.Status
			if sub.Status == domain.SubscriptionStatusCancelled && sub.CanceledAt == nil {
				sub.CanceledAt = &nowTime
			}
			changed = true
		}

		if upd.CurrentPeriodEnd != nil {
			details["current_period_end"] = *upd.CurrentPeriodEnd
			sub.CurrentPeriodEnd = *upd.CurrentPeriodEnd
			changed = true
		}

		if !changed {
			return nil
		}

		sub.UpdatedAt = nowTime
		if err := s.subRepo.Update(ctx, sub); err != nil {
			return err
		}

		return s.recomputeProjection(ctx, sub.AccountID)
	})
	if err != nil {
		return nil, err
	}

	if len(details) > 0 {
		s.audit.Log(ctx, &domain.AuditEntry{
			ActorID:      actorID,
			Action:       "subscription.admin_update",
			ResourceType: "subscription",
			ResourceID:   sub.ID.String(),
			Details:      details,
			Severity:     domain.AuditSeverityHigh,
		})

		if s.producer != nil {
			if err := s.producer.PublishSubscriptionUpdated(ctx, *sub); err != nil {
				s.log.Errorw("Failed to publish subscription event", "subscriptionID", sub.ID, "error", err)
			}
		}

		s.metrics.IncSubscription("admin_update")
	}

	return sub, nil
}

// recomputeProjection пересчитывает денормализованные поля подписки на
// аккаунте по всем его подпискам. Вызывается внутри транзакции мутации,
// поэтому читатели никогда не видят проекцию, отставшую от таблицы
// подписок.
func (s *subscriptionService) recomputeProjection(ctx context.Context, accountID uuid.UUID) error {
	subs, err := s.subRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return err
	}

	// без активной подписки аккаунт возвращается к free/inactive
	tier := domain.TierFree
	status := domain.AccountSubscriptionInactive

	for i := range subs {
		if subs[i].Status != domain.SubscriptionStatusActive {
			continue
		}
		status = domain.AccountSubscriptionActive
		if plan, ok := domain.PlanByID(subs[i].PlanID); ok {
			tier = plan.Tier
		}
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	account.SubscriptionTier = tier
	account.SubscriptionStatus = status
	account.UpdatedAt = s.now()

	return s.accountRepo.Update(ctx, account)
}
