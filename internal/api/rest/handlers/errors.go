package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/pkg/logger"
	"github.com/mzhdanov/membership-service/pkg/res"
)

// respondError переводит доменную ошибку в HTTP-ответ. Внутренние
// ошибки не раскрываются клиенту.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrAccountLocked):
		status, code = http.StatusLocked, "account_locked"
	default:
		log.Error("Unhandled error: %v", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{
			Error:     "Internal server error",
			ErrorCode: "internal",
		}, http.StatusInternalServerError)
		return
	}

	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error:     err.Error(),
		ErrorCode: code,
	}, status)
}
