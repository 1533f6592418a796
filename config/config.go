package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	HTTP          ServerConfig
	MySQL         MySQLConfig
	Redis         RedisConfig
	Log           LogConfig
	Signing       SigningConfig
	Orders        OrderConfig
	Points        PointsConfig
	Subscriptions SubscriptionConfig
	Jobs          JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

type SigningConfig struct {
	RequestSecret  string
	CallbackSecret string
}

type OrderConfig struct {
	PendingTTL time.Duration
	PayBaseURL string
}

type PointsConfig struct {
	CoinsPerMinorUnit int64
}

type SubscriptionConfig struct {
	NotifyLead time.Duration
}

type JobsConfig struct {
	OrderExpirySweepSpec        string
	SubscriptionExpirySweepSpec string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}
	requestSecret := os.Getenv("SIGNING_REQUEST_SECRET")
	if requestSecret == "" {
		return nil, errors.New("SIGNING_REQUEST_SECRET environment variable is required")
	}
	callbackSecret := os.Getenv("SIGNING_CALLBACK_SECRET")
	if callbackSecret == "" {
		return nil, errors.New("SIGNING_CALLBACK_SECRET environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "entitlements-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Log: LogConfig{Level: getEnv("LOG_LEVEL", "info")},
		Signing: SigningConfig{
			RequestSecret:  requestSecret,
			CallbackSecret: callbackSecret,
		},
		Orders: OrderConfig{
			PendingTTL: getDurationEnv("ORDER_PENDING_TTL_MINUTES", 30*time.Minute),
			PayBaseURL: getEnv("ORDER_PAY_BASE_URL", "https://pay.example.com/checkout"),
		},
		Points: PointsConfig{
			CoinsPerMinorUnit: int64(getIntEnv("POINTS_COINS_PER_MINOR_UNIT", 1)),
		},
		Subscriptions: SubscriptionConfig{
			NotifyLead: getDurationEnv("SUBSCRIPTION_NOTIFY_LEAD_MINUTES", 3*24*60*time.Minute),
		},
		Jobs: JobsConfig{
			OrderExpirySweepSpec:        getEnv("JOBS_ORDER_EXPIRY_SPEC", "@every 1m"),
			SubscriptionExpirySweepSpec: getEnv("JOBS_SUBSCRIPTION_EXPIRY_SPEC", "@every 10m"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
