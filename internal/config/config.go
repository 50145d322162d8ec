package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port            string `mapstructure:"port"`
		Env             string `mapstructure:"env"`
		ReadTimeout     int    `mapstructure:"readTimeout"`
		WriteTimeout    int    `mapstructure:"writeTimeout"`
		ShutdownTimeout int    `mapstructure:"shutdownTimeout"`
	} `mapstructure:"app"`
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslMode"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
		TokenTTL  int    `mapstructure:"tokenTtl"`
	} `mapstructure:"auth"`
	Bootstrap struct {
		AdminEmail    string `mapstructure:"adminEmail"`
		AdminPassword string `mapstructure:"adminPassword"`
	} `mapstructure:"bootstrap"`
}

// GetDSN собирает строку подключения к PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Load загружает конфигурацию из файла config.yaml и переменных окружения.
// Переменные окружения имеют приоритет (APP_PORT, DATABASE_HOST и т.д.).
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// .env опционален: в контейнере переменные приходят из окружения
		_ = godotenv.Load()
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.readTimeout", 10)
	viper.SetDefault("app.writeTimeout", 10)
	viper.SetDefault("app.shutdownTimeout", 15)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.name", "membership")
	viper.SetDefault("database.sslMode", "disable")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("auth.tokenTtl", 24)
}
