package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/middleware"
	"github.com/mzhdanov/membership-service/internal/service"
	"github.com/mzhdanov/membership-service/pkg/logger"
	"github.com/mzhdanov/membership-service/pkg/req"
)

// AccessHandler обработчик для доступа к контенту
type AccessHandler struct {
	accessSvc service.AccessService
	log       *logger.Logger
	zlog      *zap.Logger
}

// NewAccessHandler создает новый обработчик доступа к контенту
func NewAccessHandler(accessSvc service.AccessService, log *logger.Logger, zlog *zap.Logger) *AccessHandler {
	return &AccessHandler{
		accessSvc: accessSvc,
		log:       log,
		zlog:      zlog,
	}
}

// CheckAccess проверяет доступ текущего пользователя к элементу контента
func (h *AccessHandler) CheckAccess(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	contentType := c.Query("content_type")
	contentID := c.Query("content_id")
	if contentType == "" || contentID == "" {
		respondError(c, h.log,
			domain.NewInvalidInputError("query", "content_type and content_id are required"))
		return
	}

	granted, err := h.accessSvc.CheckAccess(c.Request.Context(), accountID, contentType, contentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content_type":   contentType,
		"content_id":     contentID,
		"access_granted": granted,
	})
}

// GrantAccess выдает точечный доступ к элементу контента
func (h *AccessHandler) GrantAccess(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	body, err := req.HandleBody[domain.GrantAccessRequest](c, h.zlog)
	if err != nil {
		return
	}

	grant, err := h.accessSvc.Grant(c.Request.Context(), actorID, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, grant)
}

// RevokeAccess отзывает точечный доступ к элементу контента
func (h *AccessHandler) RevokeAccess(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	body, err := req.HandleBody[domain.RevokeAccessRequest](c, h.zlog)
	if err != nil {
		return
	}

	if err := h.accessSvc.Revoke(c.Request.Context(), actorID, body); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
