package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/middleware"
	"github.com/mzhdanov/membership-service/internal/service"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// AuditHandler обработчик для журнала аудита
type AuditHandler struct {
	auditSvc service.AuditService
	authz    service.Authorizer
	log      *logger.Logger
}

// NewAuditHandler создает новый обработчик журнала аудита
func NewAuditHandler(auditSvc service.AuditService, authz service.Authorizer, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		auditSvc: auditSvc,
		authz:    authz,
		log:      log,
	}
}

// ListEntries возвращает страницу журнала аудита. Требует права
// audit_logs.
func (h *AuditHandler) ListEntries(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	if err := h.authz.RequirePermission(c.Request.Context(), actorID, domain.PermissionAuditLogs); err != nil {
		respondError(c, h.log, err)
		return
	}

	filter := domain.AuditFilter{
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		Severity:     domain.AuditSeverity(c.Query("severity")),
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			respondError(c, h.log, domain.NewInvalidInputError("from", "must be RFC3339"))
			return
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			respondError(c, h.log, domain.NewInvalidInputError("to", "must be RFC3339"))
			return
		}
		filter.To = &t
	}

	page := domain.AuditPage{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	page.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	page.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	page = page.Normalize()

	entries, total, err := h.auditSvc.Query(c.Request.Context(), filter, page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": entries,
		"total": total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}
