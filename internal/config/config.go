package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Export   ExportConfig   `mapstructure:"export"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxResumes     int      `mapstructure:"max_resumes"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 描述 JWT 密钥与登录限流参数。
type AuthConfig struct {
	PrivateKeyPath        string        `mapstructure:"private_key_path"`
	PublicKeyPath         string        `mapstructure:"public_key_path"`
	AccessTokenTTL        time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL       time.Duration `mapstructure:"refresh_token_ttl"`
	LoginRateLimitPerHour int           `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int           `mapstructure:"login_lock_threshold"`
	LoginLockTTL          time.Duration `mapstructure:"login_lock_ttl"`
	CookieDomain          string        `mapstructure:"cookie_domain"`
}

// ClamdConfig 描述病毒扫描服务地址，为空时跳过扫描。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// WorkerConfig 描述 asynq 消费端参数。
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxRetry    int `mapstructure:"max_retry"`
	MetricsPort int `mapstructure:"metrics_port"`
}

// ExportConfig 描述 PDF 导出引擎的页面与测量参数，长度单位均为毫米。
type ExportConfig struct {
	PageWidth     float64       `mapstructure:"page_width"`
	PageHeight    float64       `mapstructure:"page_height"`
	Margin        float64       `mapstructure:"margin"`
	TitleSpacing  float64       `mapstructure:"title_spacing"`
	UnitSpacing   float64       `mapstructure:"unit_spacing"`
	Scale         float64       `mapstructure:"scale"`
	Backend       string        `mapstructure:"backend"`
	KeepHeadings  bool          `mapstructure:"keep_headings"`
	TemplatesPath string        `mapstructure:"templates_path"`
	ChromiumBin   string        `mapstructure:"chromium_bin"`
	Timeout       time.Duration `mapstructure:"timeout"`
	InFlightTTL   time.Duration `mapstructure:"in_flight_ttl"`
}

// LogConfig 控制 slog 输出。
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration from environment variables, after an optional .env file.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadExport 只加载导出引擎相关配置，供本地命令行使用，不要求数据库等依赖。
func LoadExport() (ExportConfig, error) {
	if err := loadDotEnv(); err != nil {
		return ExportConfig{}, err
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return ExportConfig{}, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return ExportConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validateExport(cfg.Export); err != nil {
		return ExportConfig{}, err
	}
	return cfg.Export, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func loadDotEnv() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		// .env 可选
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.max_resumes", 20)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumebuilder")
	v.SetDefault("database.user", "resumebuilder")
	v.SetDefault("database.password", "resumebuilder")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("auth.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.login_lock_threshold", 5)
	v.SetDefault("auth.login_lock_ttl", 15*time.Minute)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.max_retry", 3)
	v.SetDefault("worker.metrics_port", 9091)
	v.SetDefault("export.page_width", 210.0)
	v.SetDefault("export.page_height", 297.0)
	v.SetDefault("export.margin", 10.0)
	v.SetDefault("export.title_spacing", 6.0)
	v.SetDefault("export.unit_spacing", 2.0)
	v.SetDefault("export.scale", 2.0)
	v.SetDefault("export.backend", "canvas")
	v.SetDefault("export.keep_headings", false)
	v.SetDefault("export.timeout", 2*time.Minute)
	v.SetDefault("export.in_flight_ttl", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"api.allowed_origins":            "API_ALLOWED_ORIGINS",
		"api.max_resumes":                "API_MAX_RESUMES",
		"database.host":                  "DATABASE_HOST",
		"database.port":                  "DATABASE_PORT",
		"database.name":                  "POSTGRES_DB",
		"database.user":                  "POSTGRES_USER",
		"database.password":              "POSTGRES_PASSWORD",
		"database.sslmode":               "DATABASE_SSLMODE",
		"redis.host":                     "REDIS_HOST",
		"redis.port":                     "REDIS_PORT",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.bucket":                   "MINIO_BUCKET",
		"minio.region":                   "MINIO_REGION",
		"minio.bucket_lookup":            "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
		"auth.private_key_path":          "JWT_PRIVATE_KEY_PATH",
		"auth.public_key_path":           "JWT_PUBLIC_KEY_PATH",
		"auth.access_token_ttl":          "JWT_ACCESS_TOKEN_TTL",
		"auth.refresh_token_ttl":         "JWT_REFRESH_TOKEN_TTL",
		"auth.login_rate_limit_per_hour": "LOGIN_RATE_LIMIT_PER_HOUR",
		"auth.login_lock_threshold":      "LOGIN_LOCK_THRESHOLD",
		"auth.login_lock_ttl":            "LOGIN_LOCK_TTL",
		"auth.cookie_domain":             "AUTH_COOKIE_DOMAIN",
		"clamd.addr":                     "CLAMD_ADDR",
		"worker.concurrency":             "WORKER_CONCURRENCY",
		"worker.max_retry":               "WORKER_MAX_RETRY",
		"worker.metrics_port":            "WORKER_METRICS_PORT",
		"export.page_width":              "EXPORT_PAGE_WIDTH_MM",
		"export.page_height":             "EXPORT_PAGE_HEIGHT_MM",
		"export.margin":                  "EXPORT_MARGIN_MM",
		"export.title_spacing":           "EXPORT_TITLE_SPACING_MM",
		"export.unit_spacing":            "EXPORT_UNIT_SPACING_MM",
		"export.scale":                   "EXPORT_SCALE",
		"export.backend":                 "EXPORT_BACKEND",
		"export.keep_headings":           "EXPORT_KEEP_HEADINGS",
		"export.templates_path":          "EXPORT_TEMPLATES_PATH",
		"export.chromium_bin":            "EXPORT_CHROMIUM_BIN",
		"export.timeout":                 "EXPORT_TIMEOUT",
		"export.in_flight_ttl":           "EXPORT_IN_FLIGHT_TTL",
		"log.level":                      "LOG_LEVEL",
		"log.format":                     "LOG_FORMAT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return validateExport(cfg.Export)
}

func validateExport(cfg ExportConfig) error {
	if cfg.PageWidth <= 0 || cfg.PageHeight <= 0 {
		return errors.New("export page size must be positive")
	}
	if cfg.Margin < 0 || cfg.Margin*2 >= cfg.PageWidth || cfg.Margin*2 >= cfg.PageHeight {
		return errors.New("export margin must leave a printable area")
	}
	if cfg.TitleSpacing < 0 || cfg.UnitSpacing < 0 {
		return errors.New("export spacing must not be negative")
	}
	if cfg.Scale <= 0 {
		return errors.New("export scale must be positive")
	}
	switch cfg.Backend {
	case "canvas", "browser":
	default:
		return fmt.Errorf("unknown export backend %q", cfg.Backend)
	}
	return nil
}
