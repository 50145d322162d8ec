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

// SubscriptionHandler обработчик для подписок
type SubscriptionHandler struct {
	subscriptionSvc service.SubscriptionService
	log             *logger.Logger
	zlog            *zap.Logger
}

// NewSubscriptionHandler создает новый обработчик подписок
func NewSubscriptionHandler(subscriptionSvc service.SubscriptionService, log *logger.Logger, zlog *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionSvc: subscriptionSvc,
		log:             log,
		zlog:            zlog,
	}
}

// CreateSubscription оформляет подписку текущему пользователю
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	body, err := req.HandleBody[domain.SubscriptionRequest](c, h.zlog)
	if err != nil {
		return
	}

	subscription, err := h.subscriptionSvc.Create(c.Request.Context(), accountID, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Created subscription with ID: %s", subscription.ID)
	c.JSON(http.StatusCreated, subscription)
}

// GetSubscription возвращает подписку по ID
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.log, domain.NewInvalidInputError("id", "must be a valid UUID"))
		return
	}

	subscription, err := h.subscriptionSvc.Get(c.Request.Context(), actorID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, subscription)
}

// ListSubscriptions возвращает подписки текущего пользователя
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	subscriptions, err := h.subscriptionSvc.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, subscriptions)
}

// CancelSubscription отменяет подписку текущего пользователя
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.log, domain.NewInvalidInputError("id", "must be a valid UUID"))
		return
	}

	subscription, err := h.subscriptionSvc.Cancel(c.Request.Context(), actorID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Cancelled subscription with ID: %s", id)
	c.JSON(http.StatusOK, subscription)
}

// AdminUpdateSubscription административно изменяет подписку
func (h *SubscriptionHandler) AdminUpdateSubscription(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.log, domain.NewInvalidInputError("id", "must be a valid UUID"))
		return
	}

	body, err := req.HandleBody[domain.SubscriptionAdminUpdate](c, h.zlog)
	if err != nil {
		return
	}

	subscription, err := h.subscriptionSvc.AdminUpdate(c.Request.Context(), actorID, id, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, subscription)
}
