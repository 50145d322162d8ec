package app

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mzhdanov/membership-service/internal/api/rest"
	"github.com/mzhdanov/membership-service/internal/api/rest/handlers"
	"github.com/mzhdanov/membership-service/internal/config"
	"github.com/mzhdanov/membership-service/internal/kafka/producer"
	"github.com/mzhdanov/membership-service/internal/metrics"
	"github.com/mzhdanov/membership-service/internal/middleware"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/internal/repository/postgres"
	"github.com/mzhdanov/membership-service/internal/service"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config              *config.Config
	Server              *rest.Server
	AccountService      service.AccountService
	SubscriptionService service.SubscriptionService
	AccessService       service.AccessService
	AdminService        service.AdminService
	AuditService        service.AuditService
	Logger              *logger.Logger
}

// New создает и инициализирует новый экземпляр приложения
func New(
	cfg *config.Config,
	pool *pgxpool.Pool,
	cache *repository.RedisCacheRepository,
	lifecycleProducer producer.LifecycleProducer,
	registry *prometheus.Registry,
	log *logger.Logger,
) *App {
	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalw("Failed to initialize request logger", "error", err)
	}

	membershipMetrics := metrics.NewMembershipMetrics(registry, log)

	// Репозитории
	var accountRepo repository.AccountRepository = postgres.NewPostgresAccountRepository(pool, log)
	if cache != nil {
		accountRepo = repository.NewCachedAccountRepository(accountRepo, cache, log)
	}
	subscriptionRepo := postgres.NewPostgresSubscriptionRepository(pool, log)
	accessRepo := postgres.NewPostgresAccessRepository(pool, log)
	adminRepo := postgres.NewPostgresAdminRepository(pool, log)
	auditRepo := postgres.NewPostgresAuditRepository(pool, log)
	txManager := postgres.NewTxManager(pool, log)

	// Сервисы
	auditSvc := service.NewAuditService(auditRepo, membershipMetrics, log)
	adminSvc := service.NewAdminService(adminRepo, accountRepo, auditSvc, log)
	accountSvc := service.NewAccountService(accountRepo, adminSvc, auditSvc, lifecycleProducer, membershipMetrics, log)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, accountRepo, txManager, adminSvc, auditSvc, lifecycleProducer, membershipMetrics, log)
	accessSvc := service.NewAccessService(accessRepo, accountRepo, adminSvc, auditSvc, membershipMetrics, log)

	// Аутентификация
	tokenService := middleware.NewHMACTokenService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Hour)
	jwtMiddleware := middleware.NewJWTMiddleware(log, tokenService)

	// Маршрутизатор и сервер
	router := rest.SetupRouter(rest.RouterDeps{
		Accounts:      handlers.NewAccountHandler(accountSvc, tokenService, log, zlog),
		Subscriptions: handlers.NewSubscriptionHandler(subscriptionSvc, log, zlog),
		Access:        handlers.NewAccessHandler(accessSvc, log, zlog),
		Admin:         handlers.NewAdminHandler(adminSvc, log, zlog),
		Audit:         handlers.NewAuditHandler(auditSvc, adminSvc, log),
		Auth:          jwtMiddleware,
	}, log, registry)

	return &App{
		Config:              cfg,
		Server:              rest.NewServer(router, cfg, log),
		AccountService:      accountSvc,
		SubscriptionService: subscriptionSvc,
		AccessService:       accessSvc,
		AdminService:        adminSvc,
		AuditService:        auditSvc,
		Logger:              log,
	}
}
