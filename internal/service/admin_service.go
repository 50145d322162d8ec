package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// Authorizer отвечает на вопрос, разрешено ли аккаунту привилегированное
// действие. Реализуется административным сервисом и внедряется в
// остальные сервисы.
type Authorizer interface {
	// IsAdmin проверяет наличие активного административного гранта.
	IsAdmin(ctx context.Context, accountID uuid.UUID) (bool, error)

	// HasPermission проверяет наличие конкретного права в активном гранте.
	HasPermission(ctx context.Context, accountID uuid.UUID, permission string) (bool, error)

	// RequirePermission возвращает ErrUnauthorized, если у аккаунта нет
	// активного гранта, и ErrForbidden, если грант есть, но права в нем нет.
	RequirePermission(ctx context.Context, accountID uuid.UUID, permission string) error
}

// AdminService сервис административных грантов
type AdminService interface {
	Authorizer

	CreateGrant(ctx context.Context, actorID uuid.UUID, req *domain.AdminGrantRequest) (*domain.AdminGrant, error)
	UpdateGrant(ctx context.Context, actorID, accountID uuid.UUID, upd *domain.AdminGrantUpdate) (*domain.AdminGrant, error)
	Deactivate(ctx context.Context, actorID, accountID uuid.UUID) error
	GetGrant(ctx context.Context, actorID, accountID uuid.UUID) (*domain.AdminGrant, error)

	// Bootstrap создает суперадминистратора из конфигурации при старте.
	// Повторный запуск с теми же данными ничего не меняет.
	Bootstrap(ctx context.Context, email, password string) error
}

type adminService struct {
	adminRepo   repository.AdminRepository
	accountRepo repository.AccountRepository
	audit       AuditLogger
	log         *logger.Logger
	now         func() time.Time
}

// NewAdminService создает новый сервис административных грантов
func NewAdminService(
	adminRepo repository.AdminRepository,
	accountRepo repository.AccountRepository,
	audit AuditLogger,
	log *logger.Logger,
) AdminService {
	return &adminService{
		adminRepo:   adminRepo,
		accountRepo: accountRepo,
		audit:       audit,
		log:         log,
		now:         time.Now,
	}
}

// IsAdmin проверяет наличие активного административного гранта
func (s *adminService) IsAdmin(ctx context.Context, accountID uuid.UUID) (bool, error) {
	grant, err := s.adminRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return grant.Active, nil
}

// HasPermission проверяет наличие права в активном гранте аккаунта
func (s *adminService) HasPermission(ctx context.Context, accountID uuid.UUID, permission string) (bool, error) {
	grant, err := s.adminRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return grant.HasPermission(permission), nil
}

// RequirePermission защита привилегированных операций
func (s *adminService) RequirePermission(ctx context.Context, accountID uuid.UUID, permission string) error {
	grant, err := s.adminRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	if !grant.Active {
		return domain.ErrUnauthorized
	}
	if !grant.HasPermission(permission) {
		return domain.ErrForbidden
	}
	return nil
}

// CreateGrant выдает аккаунту административный грант
func (s *adminService) CreateGrant(ctx context.Context, actorID uuid.UUID, req *domain.AdminGrantRequest) (*domain.AdminGrant, error) {
	if err := s.RequirePermission(ctx, actorID, domain.PermissionAdminManagement); err != nil {
		return nil, err
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return nil, domain.NewInvalidInputError("account_id", "must be a valid UUID")
	}

	role := domain.AdminRole(req.Role)
	if !domain.IsValidRole(role) {
		return nil, domain.NewInvalidInputError("role", "unknown role "+req.Role)
	}

	permissions, err := resolvePermissions(role, req.Permissions)
	if err != nil {
		return nil, err
	}

	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("account", accountID.String())
		}
		return nil, err
	}

	nowTime := s.now()
	grant := &domain.AdminGrant{
		ID:          uuid.New(),
		AccountID:   accountID,
		GrantedBy:   actorID,
		Role:        role,
		Permissions: permissions,
		Active:      true,
		CreatedAt:   nowTime,
		UpdatedAt:   nowTime,
	}

	if err := s.adminRepo.Create(ctx, grant); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("admin grant", "account already has a grant")
		}
		return nil, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "admin.grant.create",
		ResourceType: "admin_grant",
		ResourceID:   accountID.String(),
		Details: map[string]any{
			"role":        string(role),
			"permissions": permissions,
		},
		Severity: domain.AuditSeverityCritical,
	})

	s.log.Infow("Admin grant created",
		"accountID", accountID,
		"role", role,
		"grantedBy", actorID,
	)

	return grant, nil
}

// UpdateGrant изменяет роль, права или активность гранта
func (s *adminService) UpdateGrant(ctx context.Context, actorID, accountID uuid.UUID, upd *domain.AdminGrantUpdate) (*domain.AdminGrant, error) {
	if err := s.RequirePermission(ctx, actorID, domain.PermissionAdminManagement); err != nil {
		return nil, err
	}

	grant, err := s.adminRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("admin grant", accountID.String())
		}
		return nil, err
	}

	details := map[string]any{}

	if upd.Role != nil {
		role := domain.AdminRole(*upd.Role)
		if !domain.IsValidRole(role) {
			return nil, domain.NewInvalidInputError("role", "unknown role "+*upd.Role)
		}
		details["role_before"] = string(grant.Role)
		details["role_after"] = string(role)
		grant.Role = role
		// смена роли сбрасывает права к набору новой роли, если запрос
		// не задал их явно
		grant.Permissions = domain.DefaultPermissionsForRole(role)
	}

	if len(upd.Permissions) > 0 {
		permissions, err := resolvePermissions(grant.Role, upd.Permissions)
		if err != nil {
			return nil, err
		}
		grant.Permissions = permissions
		details["permissions"] = permissions
	}

	if upd.Active != nil {
		if !*upd.Active && actorID == accountID {
			return nil, domain.NewConflictError("admin grant", "admins cannot deactivate their own grant")
		}
		details["active"] = *upd.Active
		grant.Active = *upd.Active
	}

	grant.UpdatedAt = s.now()

	if err := s.adminRepo.Update(ctx, grant); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "admin.grant.update",
		ResourceType: "admin_grant",
		ResourceID:   accountID.String(),
		Details:      details,
		Severity:     domain.AuditSeverityCritical,
	})

	return grant, nil
}

// Deactivate отключает административный грант аккаунта
func (s *adminService) Deactivate(ctx context.Context, actorID, accountID uuid.UUID) error {
	if err := s.RequirePermission(ctx, actorID, domain.PermissionAdminManagement); err != nil {
		return err
	}

	if actorID == accountID {
		return domain.NewConflictError("admin grant", "admins cannot deactivate their own grant")
	}

	grant, err := s.adminRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("admin grant", accountID.String())
		}
		return err
	}

	if !grant.Active {
		return nil
	}

	grant.Active = false
	grant.UpdatedAt = s.now()

	if err := s.adminRepo.Update(ctx, grant); err != nil {
		return err
	}

	s.audit.Log(ctx, &domain.AuditEntry{
		ActorID:      actorID,
		Action:       "admin.grant.deactivate",
		ResourceType: "admin_grant",
		ResourceID:   accountID.String(),
		Severity:     domain.AuditSeverityCritical,
	})

	s.log.Infow("Admin grant deactivated", "accountID", accountID, "deactivatedBy", actorID)

	return nil
}

// GetGrant возвращает грант аккаунта
func (s *adminService) GetGrant(ctx context.Context, actorID, accountID uuid.UUID) (*domain.AdminGrant, error) {
	if err := s.RequirePermission(ctx, actorID, domain.PermissionAdminManagement); err != nil {
		return nil, err
	}

	grant, err := s.adminRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("admin grant", accountID.String())
		}
		return nil, err
	}
	return grant, nil
}

// Bootstrap создает суперадминистратора из конфигурации
func (s *adminService) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	email = domain.NormalizeEmail(email)
	nowTime := s.now()

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}

		account = &domain.Account{
			ID:                 uuid.New(),
			Email:              email,
			PasswordHash:       string(hash),
			RegistrationStatus: domain.RegistrationStatusApproved,
			PaymentStatus:      domain.PaymentStatusVerified,
			EmailVerified:      true,
			VerifiedAt:         &nowTime,
			SubscriptionTier:   domain.TierFree,
			SubscriptionStatus: domain.AccountSubscriptionInactive,
			CreatedAt:          nowTime,
			UpdatedAt:          nowTime,
		}
		if err := s.accountRepo.Create(ctx, account); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	} else if err != nil {
		return err
	}

	_, err = s.adminRepo.GetByAccountID(ctx, account.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	grant := &domain.AdminGrant{
		ID:          uuid.New(),
		AccountID:   account.ID,
		GrantedBy:   account.ID,
		Role:        domain.RoleSuperAdmin,
		Permissions: domain.DefaultPermissionsForRole(domain.RoleSuperAdmin),
		Active:      true,
		CreatedAt:   nowTime,
		UpdatedAt:   nowTime,
	}
	if err := s.adminRepo.Create(ctx, grant); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return err
	}

	s.log.Infow("Bootstrap super admin ready", "email", email, "accountID", account.ID)

	return nil
}

// resolvePermissions возвращает явный набор прав, если он задан и валиден,
// иначе набор роли по умолчанию.
func resolvePermissions(role domain.AdminRole, explicit []string) ([]string, error) {
	if len(explicit) == 0 {
		return domain.DefaultPermissionsForRole(role), nil
	}
	out := make([]string, 0, len(explicit))
	for _, p := range explicit {
		if !domain.IsValidPermission(p) {
			return nil, domain.NewInvalidInputError("permissions", "unknown permission "+p)
		}
		out = append(out, p)
	}
	return out, nil
}
