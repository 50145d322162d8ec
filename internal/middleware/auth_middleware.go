package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/pkg/logger"
	"github.com/mzhdanov/membership-service/pkg/res"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextAccountIDKey ключ для хранения ID аккаунта в контексте запроса.
	ContextAccountIDKey ContextKey = "accountID"
	authHeaderPrefix               = "Bearer "
)

// TokenClaims полезная нагрузка токена доступа.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenValidator проверяет токен и возвращает его полезную нагрузку.
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenIssuer выпускает токен доступа для аккаунта.
type TokenIssuer interface {
	Issue(account *domain.Account) (string, error)
}

// JWTMiddleware проверяет токены на защищенных маршрутах.
type JWTMiddleware struct {
	log       *logger.Logger
	validator TokenValidator
}

// NewJWTMiddleware создает новый JWT middleware
func NewJWTMiddleware(log *logger.Logger, validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
	}
}

// RequireAuth возвращает обработчик, пропускающий только запросы с
// валидным токеном. ID аккаунта кладется в контекст запроса.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.handleAuthError(c, "Missing authorization token")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
		claims, err := m.validator.Validate(tokenString)
		if err != nil {
			m.handleAuthError(c, fmt.Sprintf("Token validation failed: %v", err))
			return
		}

		accountID, err := uuid.Parse(claims.Subject)
		if err != nil {
			m.handleAuthError(c, "Account ID (sub) missing in token")
			return
		}

		c.Set(string(ContextAccountIDKey), accountID)
		c.Set("accountEmail", claims.Email)
		m.log.Debugw("Request authenticated", "accountID", accountID)
		c.Next()
	}
}

// AccountIDFromContext извлекает ID аутентифицированного аккаунта.
func AccountIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(string(ContextAccountIDKey))
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("Authentication failed", "path", c.Request.URL.Path, "reason", message)
	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error:     message,
		ErrorCode: "unauthorized",
	}, http.StatusUnauthorized)
	c.Abort()
}

// HMACTokenService выпускает и проверяет токены, подписанные общим
// секретом (HS256).
type HMACTokenService struct {
	Secret   []byte
	TokenTTL time.Duration
}

// NewHMACTokenService создает новый сервис токенов
func NewHMACTokenService(secret string, ttl time.Duration) *HMACTokenService {
	return &HMACTokenService{
		Secret:   []byte(secret),
		TokenTTL: ttl,
	}
}

// Issue выпускает токен доступа для аккаунта
func (s *HMACTokenService) Issue(account *domain.Account) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// Validate проверяет подпись и срок действия токена
func (s *HMACTokenService) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, errors.New("malformed token")
		} else if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, errors.New("invalid token signature")
		} else if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, errors.New("token expired")
		} else {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}
