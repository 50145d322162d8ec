package req

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mzhdanov/membership-service/pkg/res"
)

// Decode декодирует JSON из io.ReadCloser в структуру типа T.
func Decode[T any](body io.ReadCloser) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid валидирует структуру типа T.
func IsValid[T any](payload T) error {
	validate := validator.New()
	err := validate.Struct(payload)
	return err
}

// HandleBody декодирует, валидирует и обрабатывает тело запроса.
// При ошибке сам пишет ответ клиенту и возвращает ошибку вызывающему.
func HandleBody[T any](c *gin.Context, log *zap.Logger) (*T, error) {
	body, err := Decode[T](c.Request.Body)
	if err != nil {
		log.Error("Ошибка декодирования тела запроса", zap.Error(err))
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Некорректный формат запроса"}, 422)
		c.Abort()
		return nil, err
	}

	err = IsValid(body)
	if err != nil {
		log.Error("Ошибка валидации тела запроса", zap.Error(err))
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Некорректные данные запроса", Details: err.Error()}, 422)
		c.Abort()
		return nil, err
	}
	return &body, nil
}
