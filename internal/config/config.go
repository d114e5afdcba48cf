package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Exam      ExamConfig      `mapstructure:"exam"`
	Meeting   MeetingConfig   `mapstructure:"meeting"`
	Mail      MailConfig      `mapstructure:"mail"`
	Log       LogConfig       `mapstructure:"log"`
}

// LogConfig File 为空时只输出到控制台
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql | postgres | sqlite
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	Charset      string
	ParseTime    bool `mapstructure:"parse_time"`
	MaxOpenConns int  `mapstructure:"max_open_conns"`
	LogSQL       bool `mapstructure:"log_sql"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ExamConfig 考试时间窗口巡检
type ExamConfig struct {
	SweeperEnabled       bool `mapstructure:"sweeper_enabled"`
	SweepIntervalSeconds int  `mapstructure:"sweep_interval_seconds"`
}

type MeetingConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type MailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromEmail      string `mapstructure:"from_email"`
	FromName       string `mapstructure:"from_name"`
}

func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("exam.sweep_interval_seconds", 60)
	v.SetDefault("meeting.base_url", "https://meet.google.com")
	v.SetDefault("mail.from_name", "Edu Platform")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

func LoadConfig(path string) (*Config, error) {
	// .env 可选，存在时优先注入环境变量
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("EDU")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Storage / MinIO / OSS
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Mail
	v.BindEnv("mail.sendgrid_api_key", "SENDGRID_API_KEY")
	v.BindEnv("mail.from_email", "MAIL_FROM_EMAIL")

	// Log
	v.BindEnv("log.file", "LOG_FILE")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.IsRelease() && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}
