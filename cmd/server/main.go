package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mzhdanov/membership-service/internal/app"
	"github.com/mzhdanov/membership-service/internal/config"
	"github.com/mzhdanov/membership-service/internal/kafka"
	"github.com/mzhdanov/membership-service/internal/kafka/producer"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/internal/repository/postgres"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

var log *logger.Logger

func init() {
	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		// Пропускаем ошибку, если .env файл не найден
	}

	// Инициализация логгера
	logLevel := logger.INFO
	if os.Getenv("DEBUG") == "true" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация Prometheus
	promRegistry := prometheus.NewRegistry()

	// Подключение к базе данных
	dbPool, err := postgres.NewConnection(ctx, cfg.GetDSN(), log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	// Подключение к Redis; без кеша сервис продолжает работать
	cache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Warnw("Redis unavailable, account cache disabled", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// Инициализация Kafka
	var lifecycleProducer producer.LifecycleProducer
	if err := kafka.EnsureKafkaTopics(cfg.Kafka.Brokers, log); err != nil {
		log.Warnw("Kafka unavailable, lifecycle events disabled", "error", err)
	} else {
		kafkaConfig := kafka.NewConfig(cfg.Kafka.Brokers)
		kafkaProducer, err := kafka.NewSyncProducer(kafkaConfig, log)
		if err != nil {
			log.Fatal("Failed to create Kafka producer: %v", err)
		}
		lifecycleProducer = producer.NewKafkaLifecycleProducer(kafkaProducer, log)
		defer lifecycleProducer.Close()
	}

	// Установка режима Gin
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Сборка приложения
	application := app.New(cfg, dbPool, cache, lifecycleProducer, promRegistry, log)

	// Создание суперадминистратора из конфигурации
	if err := application.AdminService.Bootstrap(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		log.Fatal("Failed to bootstrap admin account: %v", err)
	}

	// Запуск сервера в горутине
	go func() {
		if err := application.Server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(cfg.App.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := application.Server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
