package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/metrics"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// AccessService сервис доступа к контенту: разрешение вопроса "виден ли
// этому аккаунту этот элемент контента" и управление точечными грантами.
type AccessService interface {
	// CheckAccess отвечает, доступен ли аккаунту элемент контента.
	// Несуществующий аккаунт получает отказ, а не ошибку.
	CheckAccess(ctx context.Context, accountID uuid.UUID, contentType, contentID string) (bool, error)

	// Grant выдает точечный доступ к элементу контента. Повторная выдача
	// перезаписывает существующий грант.
	Grant(ctx context.Context, actorID uuid.UUID, req *domain.GrantAccessRequest) (*domain.ContentAccessGrant, error)

	// Revoke отзывает точечный доступ. Отзыв несуществующего гранта
	// записывает запрет и не является ошибкой.
	Revoke(ctx context.Context, actorID uuid.UUID, req *domain.RevokeAccessRequest) error
}

type accessService struct {
	accessRepo  repository.AccessRepository
	accountRepo repository.AccountRepository
	authz       Authorizer
	audit       AuditLogger
	metrics     metrics.MembershipMetrics
	log         *logger.Logger
	now         func() time.Time
}

// NewAccessService создает новый сервис доступа к контенту
func NewAccessService(
	accessRepo repository.AccessRepository,
	accountRepo repository.AccountRepository,
	authz Authorizer,
	audit AuditLogger,
	m metrics.MembershipMetrics,
	log *logger.Logger,
) AccessService {
	return &accessService{
		accessRepo:  accessRepo,
		accountRepo: accountRepo,
		authz:       authz,
		audit:       audit,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// CheckAccess проверяет доступ аккаунта к элементу контента. Активная
// платная подписка дает доступ ко всему контенту; иначе решает точечный
// грант на эту тройку.
func (s *accessService) CheckAccess(ctx context.Context, accountID uuid.UUID, contentType, contentID string) (bool, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncAccessCheck(false)
			return false, nil
		}
		return false, err
	}

	if account.HasPaidTier() {
		s.metrics.IncAccessCheck(true)
		return true, nil
	}

	grant, err := s.accessRepo.Get(ctx, accountID, contentType, contentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncAccessCheck(false)
			return false, nil
		}
		return false, err
	}

	granted := grant.IsValidAt(s.now())
	s.metrics.IncAccessCheck(granted)

	return granted, nil
}

// Grant выдает точечный доступ к элементу контента
func (s *accessService) Grant(ctx context.Context, actorID uuid.UUID, req *domain.GrantAccessRequest) (*domain.ContentAccessGrant, error) {
	if err := s.authz.RequirePermission(ctx, actorID, domain.PermissionContentManagement); err != nil {
		return nil, err
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return nil, domain.NewInvalidInputError("account_id", "must be a valid UUID")
	}

	reason := domain.AccessReasonManualGrant
	if req.AccessReason != "" {
		switch domain.AccessReason(req.AccessReason) {
		case domain.AccessReasonSubscription, domain.AccessReasonManualGrant,
			domain.AccessReasonTrial, domain.AccessReasonPromotion:
			reason = domain.AccessReason(req.AccessReason)
		default:
			return nil, domain.NewInvalidInputError("access_reason", "unknown reason "+req.AccessReason)
		}
	}

	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("account", accountID.String())
		}
		return nil, err
	}

	nowTime := s.now()
	grant := &domain.ContentAccessGrant{
		ID:            uuid.New(),
		AccountID:     accountID,
		ContentType:   req.ContentType,
		ContentID:     req.ContentID,
		AccessGranted: true,
		ExpiresAt:     req.ExpiresAt,
		GrantedBy:     actorID,
		AccessReason:  reason,
		CreatedAt:     nowTime,
		UpdatedAt:     nowTime,
	}

	if err := s.accessRepo.Upsert(ctx, grant); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "access.grant",
		ResourceType: "content_access",
		ResourceID:   req.ContentType + "/" + req.ContentID,
		Details: map[string]any{
			"account_id":    accountID.String(),
			"access_reason": reason,
			"expires_at":    req.ExpiresAt,
		},
		Severity: domain.AuditSeverityMedium,
	})

	s.log.Infow("Content access granted",
		"accountID", accountID,
		"contentType", req.ContentType,
		"contentID", req.ContentID,
		"grantedBy", actorID,
	)

	return grant, nil
}

// Revoke отзывает точечный доступ к элементу контента
func (s *accessService) Revoke(ctx context.Context, actorID uuid.UUID, req *domain.RevokeAccessRequest) error {
	if err := s.authz.RequirePermission(ctx, actorID, domain.PermissionContentManagement); err != nil {
		return err
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return domain.NewInvalidInputError("account_id", "must be a valid UUID")
	}

	nowTime := s.now()
	grant := &domain.ContentAccessGrant{
		ID:            uuid.New(),
		AccountID:     accountID,
		ContentType:   req.ContentType,
		ContentID:     req.ContentID,
		AccessGranted: false,
		GrantedBy:     actorID,
		AccessReason:  domain.AccessReasonManualGrant,
		CreatedAt:     nowTime,
		UpdatedAt:     nowTime,
	}

	if err := s.accessRepo.Upsert(ctx, grant); err != nil {
		return err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "access.revoke",
		ResourceType: "content_access",
		ResourceID:   req.ContentType + "/" + req.ContentID,
		Details:      map[string]any{"account_id": accountID.String()},
		Severity:     domain.AuditSeverityMedium,
	})

	s.log.Infow("Content access revoked",
		"accountID", accountID,
		"contentType", req.ContentType,
		"contentID", req.ContentID,
		"revokedBy", actorID,
	)

	return nil
}
