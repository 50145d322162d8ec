package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/middleware"
	"github.com/mzhdanov/membership-service/internal/service"
	"github.com/mzhdanov/membership-service/pkg/logger"
	"github.com/mzhdanov/membership-service/pkg/req"
	"github.com/mzhdanov/membership-service/pkg/res"
)

// AccountHandler обработчик для аккаунтов
type AccountHandler struct {
	accountSvc service.AccountService
	tokens     middleware.TokenIssuer
	log        *logger.Logger
	zlog       *zap.Logger
}

// NewAccountHandler создает новый обработчик аккаунтов
func NewAccountHandler(accountSvc service.AccountService, tokens middleware.TokenIssuer, log *logger.Logger, zlog *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountSvc: accountSvc,
		tokens:     tokens,
		log:        log,
		zlog:       zlog,
	}
}

// Register регистрирует новый аккаунт
func (h *AccountHandler) Register(c *gin.Context) {
	body, err := req.HandleBody[domain.RegisterRequest](c, h.zlog)
	if err != nil {
		return
	}

	account, err := h.accountSvc.Register(c.Request.Context(), body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Registered account %s", account.ID)
	c.JSON(http.StatusCreated, account)
}

// Login аутентифицирует аккаунт и выдает токен доступа
func (h *AccountHandler) Login(c *gin.Context) {
	body, err := req.HandleBody[domain.LoginRequest](c, h.zlog)
	if err != nil {
		return
	}

	account, err := h.accountSvc.Login(c.Request.Context(), body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	token, err := h.tokens.Issue(account)
	if err != nil {
		h.log.Error("Failed to issue token: %v", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{
			Error:     "Internal server error",
			ErrorCode: "internal",
		}, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"account": account,
	})
}

// Me возвращает аккаунт текущего пользователя
func (h *AccountHandler) Me(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	account, err := h.accountSvc.GetByID(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// SubmitPayment прикладывает подтверждение оплаты регистрации
func (h *AccountHandler) SubmitPayment(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	body, err := req.HandleBody[domain.SubmitPaymentRequest](c, h.zlog)
	if err != nil {
		return
	}

	account, err := h.accountSvc.SubmitPayment(c.Request.Context(), accountID, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// Approve одобряет регистрацию аккаунта
func (h *AccountHandler) Approve(c *gin.Context) {
	h.review(c, h.accountSvc.Approve)
}

// Reject отклоняет регистрацию аккаунта
func (h *AccountHandler) Reject(c *gin.Context) {
	h.review(c, h.accountSvc.Reject)
}

// review общий путь одобрения и отклонения: обе операции принимают
// опциональную заметку администратора и возвращают обновленный аккаунт.
func (h *AccountHandler) review(c *gin.Context, op func(ctx context.Context, actorID, accountID uuid.UUID, req *domain.ReviewRequest) (*domain.Account, error)) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.log, domain.NewInvalidInputError("id", "must be a valid UUID"))
		return
	}

	// тело с заметкой опционально
	var body domain.ReviewRequest
	_ = c.ShouldBindJSON(&body)

	account, err := op(c.Request.Context(), actorID, accountID, &body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// ApproveAllPending массово одобряет нерассмотренные регистрации
func (h *AccountHandler) ApproveAllPending(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	affected, err := h.accountSvc.ApproveAllPending(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

// ApprovePaymentSubmitted массово одобряет аккаунты с оплатой на
// рассмотрении и активной подпиской
func (h *AccountHandler) ApprovePaymentSubmitted(c *gin.Context) {
	actorID, ok := middleware.AccountIDFromContext(c)
	if !ok {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}

	affected, err := h.accountSvc.ApprovePaymentSubmittedActive(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"affected": affected})
}
