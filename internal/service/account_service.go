package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/kafka/producer"
	"github.com/mzhdanov/membership-service/internal/metrics"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

const (
	// maxFailedLogins число неудачных попыток входа до временной блокировки
	maxFailedLogins = 5

	// loginLockDuration длительность блокировки входа
	loginLockDuration = 15 * time.Minute
)

// AccountService сервис аккаунтов: регистрация, проверка оплаты,
// одобрение и вход.
type AccountService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.Account, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	SubmitPayment(ctx context.Context, accountID uuid.UUID, req *domain.SubmitPaymentRequest) (*domain.Account, error)

	// Approve одобряет регистрацию. Одобрение подразумевает проверенную
	// оплату и включает аккаунту премиальный доступ.
	Approve(ctx context.Context, actorID, accountID uuid.UUID, req *domain.ReviewRequest) (*domain.Account, error)

	// Reject отклоняет регистрацию. Отклонение терминально: отклоненный
	// аккаунт нельзя одобрить позже.
	Reject(ctx context.Context, actorID, accountID uuid.UUID, req *domain.ReviewRequest) (*domain.Account, error)

	// ApproveAllPending массово одобряет все еще не рассмотренные
	// регистрации. Возвращает число затронутых аккаунтов.
	ApproveAllPending(ctx context.Context, actorID uuid.UUID) (int64, error)

	// ApprovePaymentSubmittedActive массово одобряет аккаунты с
	// подтвержденной оплатой и уже активной проекцией подписки.
	ApprovePaymentSubmittedActive(ctx context.Context, actorID uuid.UUID) (int64, error)
}

type accountService struct {
	repo     repository.AccountRepository
	authz    Authorizer
	audit    AuditLogger
	producer producer.LifecycleProducer
	metrics  metrics.MembershipMetrics
	log      *logger.Logger
	now      func() time.Time
}

// NewAccountService создает новый сервис аккаунтов
func NewAccountService(
	repo repository.AccountRepository,
	authz Authorizer,
	audit AuditLogger,
	lifecycleProducer producer.LifecycleProducer,
	m metrics.MembershipMetrics,
	log *logger.Logger,
) AccountService {
	return &accountService{
		repo:     repo,
		authz:    authz,
		audit:    audit,
		producer: lifecycleProducer,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Register регистрирует новый аккаунт. Регистрация с приложенным
// подтверждением оплаты сразу попадает на рассмотрение.
func (s *accountService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.Account, error) {
	email := domain.NormalizeEmail(req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Errorw("Failed to hash password", "error", err)
		return nil, domain.ErrInternal
	}

	status := domain.RegistrationStatusPendingPayment
	if req.PaymentProofRef != "" {
		status = domain.RegistrationStatusPaymentSubmitted
	}

	nowTime := s.now()
	account := &domain.Account{
		ID:                 uuid.New(),
		Email:              email,
		PasswordHash:       string(hash),
		RegistrationStatus: status,
		PaymentStatus:      domain.PaymentStatusPending,
		PaymentProofRef:    req.PaymentProofRef,
		SubscriptionTier:   domain.TierFree,
		SubscriptionStatus: domain.AccountSubscriptionInactive,
		CreatedAt:          nowTime,
		UpdatedAt:          nowTime,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("account", "email already registered")
		}
		return nil, err
	}

	s.metrics.IncRegistration(string(status))
	s.log.Infow("Account registered", "accountID", account.ID, "status", status)

	return account, nil
}

// Login аутентифицирует аккаунт по email и паролю
func (s *accountService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.Account, error) {
	email := domain.NormalizeEmail(req.Email)
	nowTime := s.now()

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncLogin("failed")
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	if account.IsLocked(nowTime) {
		s.metrics.IncLogin("locked")
		s.audit.Log(ctx, &domain.AuditEntry{
			ActorID:      account.ID,
			Action:       "account.login",
			ResourceType: "account",
			ResourceID:   account.ID.String(),
			Details:      map[string]any{"reason": "locked"},
			Severity:     domain.AuditSeverityMedium,
			Outcome:      domain.AuditOutcomeFailure,
		})
		return nil, domain.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		s.registerFailedLogin(ctx, account, nowTime)
		s.metrics.IncLogin("failed")
		return nil, domain.ErrUnauthorized
	}

	if !account.IsLoginable() {
		s.metrics.IncLogin("not_approved")
		return nil, domain.ErrForbidden
	}

	if account.FailedLoginAttempts > 0 || account.LockedUntil != nil {
		account.FailedLoginAttempts = 0
		account.LockedUntil = nil
		account.UpdatedAt = nowTime
		if err := s.repo.Update(ctx, account); err != nil {
			s.log.Errorw("Failed to reset login counters", "accountID", account.ID, "error", err)
		}
	}

	s.metrics.IncLogin("success")

	return account, nil
}

// registerFailedLogin учитывает неудачную попытку входа и блокирует
// аккаунт после серии неудач. Истекшая блокировка начинает счет заново.
func (s *accountService) registerFailedLogin(ctx context.Context, account *domain.Account, nowTime time.Time) {
	if account.LockedUntil != nil && !account.IsLocked(nowTime) {
		account.FailedLoginAttempts = 0
		account.LockedUntil = nil
	}

	account.FailedLoginAttempts++
	if account.FailedLoginAttempts >= maxFailedLogins {
		lockedUntil := nowTime.Add(loginLockDuration)
		account.LockedUntil = &lockedUntil

		s.audit.Log(ctx, &domain.AuditEntry{
			ActorID:      account.ID,
			Action:       "account.locked",
			ResourceType: "account",
			ResourceID:   account.ID.String(),
			Details:      map[string]any{"failed_attempts": account.FailedLoginAttempts},
			Severity:     domain.AuditSeverityMedium,
			Outcome:      domain.AuditOutcomeWarning,
		})
		s.log.Warnw("Account locked after failed logins",
			"accountID", account.ID,
			"lockedUntil", lockedUntil,
		)
	}

	account.UpdatedAt = nowTime
	if err := s.repo.Update(ctx, account); err != nil {
		s.log.Errorw("Failed to record failed login", "accountID", account.ID, "error", err)
	}
}

// GetByID возвращает аккаунт по ID
func (s *accountService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("account", id.String())
		}
		return nil, err
	}
	return account, nil
}

// SubmitPayment прикладывает подтверждение оплаты и переводит
// регистрацию на рассмотрение. Повторная отправка заменяет подтверждение.
func (s *accountService) SubmitPayment(ctx context.Context, accountID uuid.UUID, req *domain.SubmitPaymentRequest) (*domain.Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("account", accountID.String())
		}
		return nil, err
	}

	switch account.RegistrationStatus {
	case domain.RegistrationStatusPendingPayment, domain.RegistrationStatusPaymentSubmitted:
	default:
		return nil, domain.NewStateError("account", string(account.RegistrationStatus), "payment submission")
	}

	account.RegistrationStatus = domain.RegistrationStatusPaymentSubmitted
	account.PaymentStatus = domain.PaymentStatusPending
	account.PaymentProofRef = req.PaymentProofRef
	account.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	s.log.Infow("Payment proof submitted", "accountID", account.ID)

	return account, nil
}

// Approve одобряет регистрацию аккаунта
func (s *accountService) Approve(ctx context.Context, actorID, accountID uuid.UUID, req *domain.ReviewRequest) (*domain.Account, error) {
	if err := s.authz.RequirePermission(ctx, actorID, domain.PermissionUserManagement); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("account", accountID.String())
		}
		return nil, err
	}

	if account.RegistrationStatus == domain.RegistrationStatusRejected {
		s.metrics.IncReview("approve", "invalid_state")
		return nil, domain.NewStateError("account", string(account.RegistrationStatus), "approval")
	}
	if account.RegistrationStatus == domain.RegistrationStatusApproved {
		return account, nil
	}

	before := map[string]any{
		"registration_status": account.RegistrationStatus,
		"payment_status":      account.PaymentStatus,
		"subscription_tier":   account.SubscriptionTier,
		"subscription_status": account.SubscriptionStatus,
	}

	nowTime := s.now()
	account.RegistrationStatus = domain.RegistrationStatusApproved
	account.PaymentStatus = domain.PaymentStatusVerified
	account.EmailVerified = true
	account.VerifiedAt = &nowTime
	// одобрение включает премиальный доступ без создания подписки;
	// проекция будет пересчитана при первой операции с подписками
	account.SubscriptionTier = domain.TierPremium
	account.SubscriptionStatus = domain.AccountSubscriptionActive
	if req != nil && req.Note != "" {
		account.AdminNote = req.Note
	}
	account.UpdatedAt = nowTime

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "account.approve",
		ResourceType: "account",
		ResourceID:   account.ID.String(),
		Details: map[string]any{
			"before": before,
			"after": map[string]any{
				"registration_status": account.RegistrationStatus,
				"payment_status":      account.PaymentStatus,
				"subscription_tier":   account.SubscriptionTier,
				"subscription_status": account.SubscriptionStatus,
			},
		},
		Severity: domain.AuditSeverityHigh,
	})

	if s.producer != nil {
		if err := s.producer.PublishAccountApproved(ctx, *account); err != nil {
			s.log.Errorw("Failed to publish approval event", "accountID", account.ID, "error", err)
		}
	}

	s.metrics.IncReview("approve", "success")
	s.log.Infow("Account approved", "accountID", account.ID, "approvedBy", actorID)

	return account, nil
}

// Reject отклоняет регистрацию аккаунта
func (s *accountService) Reject(ctx context.Context, actorID, accountID uuid.UUID, req *domain.ReviewRequest) (*domain.Account, error) {
	if err := s.authz.RequirePermission(ctx, actorID, domain.PermissionUserManagement); err != nil {
		return nil, err
	}

	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("account", accountID.String())
		}
		return nil, err
	}

	if account.RegistrationStatus == domain.RegistrationStatusApproved {
		s.metrics.IncReview("reject", "invalid_state")
		return nil, domain.NewStateError("account", string(account.RegistrationStatus), "rejection")
	}
	if account.RegistrationStatus == domain.RegistrationStatusRejected {
		return account, nil
	}

	before := map[string]any{
		"registration_status": account.RegistrationStatus,
		"payment_status":      account.PaymentStatus,
		"subscription_tier":   account.SubscriptionTier,
		"subscription_status": account.SubscriptionStatus,
	}

	account.RegistrationStatus = domain.RegistrationStatusRejected
	account.PaymentStatus = domain.PaymentStatusRejected
	if req != nil && req.Note != "" {
		account.AdminNote = req.Note
	}
	account.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "account.reject",
		ResourceType: "account",
		ResourceID:   account.ID.String(),
		Details: map[string]any{
			"before": before,
			"after": map[string]any{
				"registration_status": account.RegistrationStatus,
				"payment_status":      account.PaymentStatus,
				"subscription_tier":   account.SubscriptionTier,
				"subscription_status": account.SubscriptionStatus,
			},
			"note": account.AdminNote,
		},
		Severity: domain.AuditSeverityHigh,
	})

	if s.producer != nil {
		if err := s.producer.PublishAccountRejected(ctx, *account); err != nil {
			s.log.Errorw("Failed to publish rejection event", "accountID", account.ID, "error", err)
		}
	}

	s.metrics.IncReview("reject", "success")
	s.log.Infow("Account rejected", "accountID", account.ID, "rejectedBy", actorID)

	return account, nil
}

// ApproveAllPending массово одобряет нерассмотренные регистрации
func (s *accountService) ApproveAllPending(ctx context.Context, actorID uuid.UUID) (int64, error) {
	if err := s.authz.RequirePermission(ctx, actorID, domain.PermissionUserManagement); err != nil {
		return 0, err
	}

	affected, err := s.repo.ApproveAllPending(ctx, s.now())
	if err != nil {
		return 0, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "account.approve_all_pending",
		ResourceType: "account",
		ResourceID:   "*",
		Details:      map[string]any{"affected": affected},
		Severity:     domain.AuditSeverityCritical,
	})

	s.metrics.IncReview("approve_all_pending", "success")
	s.log.Infow("Bulk approval of pending registrations", "affected", affected, "approvedBy", actorID)

	return affected, nil
}

// ApprovePaymentSubmittedActive массово одобряет аккаунты с оплатой на
// рассмотрении и активной проекцией подписки
func (s *accountService) ApprovePaymentSubmittedActive(ctx context.Context, actorID uuid.UUID) (int64, error) {
	if err := s.authz.RequirePermission(ctx, actorID, domain.PermissionUserManagement); err != nil {
		return 0, err
	}

	affected, err := s.repo.ApprovePaymentSubmittedActive(ctx, s.now())
	if err != nil {
		return 0, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "account.approve_payment_submitted",
		ResourceType: "account",
		ResourceID:   "*",
		Details:      map[string]any{"affected": affected},
		Severity:     domain.AuditSeverityCritical,
	})

	s.metrics.IncReview("approve_payment_submitted", "success")

	return affected, nil
}
