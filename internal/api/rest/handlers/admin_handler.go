package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/middleware"
	"github.com/mzhdanov/membership-service/internal/service"
	"github.com/mzhdanov/membership-service/pkg/logger"
	"github.com/mzhdanov/membership-service/pkg/req"
)

// AdminHandler обработчик для административных грантов
type AdminHandler struct {
	adminSvc service.AdminService
	log      *logger.Logger
	zlog     *zap.Logger
}

// NewAdminHandler создает новый обработчик административных грантов
func NewAdminHandler(adminSvc service.AdminService, log *logger.Logger, zlog *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminSvc: adminSvc,
		log:      log,
		zlog:     zlog,
	}
}

// CreateGrant выдает аккаунту административный грант
func (h *AdminHandler) CreateGrant(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	body, err := req.HandleBody[domain.AdminGrantRequest](c, h.zlog)
	if err != nil {
		return
	}

	grant, err := h.adminSvc.CreateGrant(c.Request.Context(), actorID, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, grant)
}

// GetGrant возвращает грант аккаунта
func (h *AdminHandler) GetGrant(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		respondError(c, h.log, domain.NewInvalidInputError("account_id", "must be a valid UUID"))
		return
	}

	grant, err := h.adminSvc.GetGrant(c.Request.Context(), actorID, accountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

// UpdateGrant изменяет роль, права или активность гранта
func (h *AdminHandler) UpdateGrant(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		respondError(c, h.log, domain.NewInvalidInputError("account_id", "must be a valid UUID"))
		return
	}

	body, err := req.HandleBody[domain.AdminGrantUpdate](c, h.zlog)
	if err != nil {
		return
	}

	grant, err := h.adminSvc.UpdateGrant(c.Request.Context(), actorID, accountID, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

// DeactivateGrant отключает административный грант аккаунта
func (h *AdminHandler) DeactivateGrant(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		respondError(c, h.log, domain.NewInvalidInputError("account_id", "must be a valid UUID"))
		return
	}

	if err := h.adminSvc.Deactivate(c.Request.Context(), actorID, accountID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
