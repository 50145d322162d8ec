package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mzhdanov/membership-service/internal/api/rest/handlers"
	restmw "github.com/mzhdanov/membership-service/internal/api/rest/middleware"
	"github.com/mzhdanov/membership-service/internal/middleware"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// RouterDeps зависимости маршрутизатора: обработчики и middleware
// аутентификации.
type RouterDeps struct {
	Accounts      *handlers.AccountHandler
	Subscriptions *handlers.SubscriptionHandler
	Access        *handlers.AccessHandler
	Admin         *handlers.AdminHandler
	Audit         *handlers.AuditHandler
	Auth          *middleware.JWTMiddleware
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(deps RouterDeps, log *logger.Logger, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()

	// Подключение middleware
	r.Use(restmw.LoggerMiddleware(log))
	r.Use(restmw.RequestMetaMiddleware())
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	requireAuth := deps.Auth.RequireAuth()

	v1 := r.Group("/api/v1")
	{
		// Аккаунты
		accounts := v1.Group("/accounts")
		{
			accounts.POST("/register", deps.Accounts.Register)
			accounts.POST("/login", deps.Accounts.Login)

			accounts.GET("/me", requireAuth, deps.Accounts.Me)
			accounts.POST("/me/payment", requireAuth, deps.Accounts.SubmitPayment)

			// Рассмотрение регистраций; право проверяет сервис
			accounts.POST("/:id/approve", requireAuth, deps.Accounts.Approve)
			accounts.POST("/:id/reject", requireAuth, deps.Accounts.Reject)
			accounts.POST("/approve-all-pending", requireAuth, deps.Accounts.ApproveAllPending)
			accounts.POST("/approve-payment-submitted", requireAuth, deps.Accounts.ApprovePaymentSubmitted)
		}

		// Подписки
		subscriptions := v1.Group("/subscriptions", requireAuth)
		{
			subscriptions.POST("", deps.Subscriptions.CreateSubscription)
			subscriptions.GET("", deps.Subscriptions.ListSubscriptions)
			subscriptions.GET("/:id", deps.Subscriptions.GetSubscription)
			subscriptions.POST("/:id/cancel", deps.Subscriptions.CancelSubscription)
			subscriptions.PATCH("/:id", deps.Subscriptions.AdminUpdateSubscription)
		}

		// Доступ к контенту
		access := v1.Group("/access", requireAuth)
		{
			access.GET("/check", deps.Access.CheckAccess)
			access.POST("/grant", deps.Access.GrantAccess)
			access.POST("/revoke", deps.Access.RevokeAccess)
		}

		// Административные гранты
		adminGrants := v1.Group("/admin/grants", requireAuth)
		{
			adminGrants.POST("", deps.Admin.CreateGrant)
			adminGrants.GET("/:account_id", deps.Admin.GetGrant)
			adminGrants.PATCH("/:account_id", deps.Admin.UpdateGrant)
			adminGrants.DELETE("/:account_id", deps.Admin.DeactivateGrant)
		}

		// Журнал аудита
		v1.GET("/audit", requireAuth, deps.Audit.ListEntries)
	}

	return r
}
