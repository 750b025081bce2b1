package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	S3        S3Config
	Log       LogConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
	Billing   BillingConfig
	Report    ReportConfig
	Admin     AdminConfig
}

// Store backends for bills and users.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpen         int           `mapstructure:"max_open"`
	MaxIdle         int           `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer             string        `mapstructure:"issuer"`
}

// S3Config holds the report archive bucket settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
}

// Enabled reports whether an archive bucket is configured.
func (s *S3Config) Enabled() bool {
	return s.Bucket != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig holds per-client request throttling settings.
// A zero RequestsPerSecond disables throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// EmailConfig holds receipt email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// BillingConfig selects the ledger store and read-time integrity checking.
type BillingConfig struct {
	Store       string `mapstructure:"store"`
	CheckOnRead bool   `mapstructure:"check_on_read"`
}

// ReportConfig holds settings for the read-only report projections.
type ReportConfig struct {
	TDSPercent           decimal.Decimal `mapstructure:"tds_percent"`
	ConsultationCategory string          `mapstructure:"consultation_category"`
}

// AdminConfig seeds the first admin account on startup when set.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"full_name"`
}

// Load reads configuration from environment variables with the MEDIBILL_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEDIBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "medibill")
	v.SetDefault("db.password", "medibill_secret")
	v.SetDefault("db.name", "medibill_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.conn_max_lifetime", "30m")

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "medibill")

	// S3 defaults (empty bucket disables report archiving)
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)
	v.SetDefault("s3.archive_prefix", "reports")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "ap-south-1")
	v.SetDefault("email.from_address", "billing@medibill.local")
	v.SetDefault("email.from_name", "Hospital Billing")

	// Billing defaults
	v.SetDefault("billing.store", StorePostgres)
	v.SetDefault("billing.check_on_read", true)

	// Report defaults
	v.SetDefault("report.tds_percent", "10")
	v.SetDefault("report.consultation_category", "consultation")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "MEDIBILL_SERVER_PORT",
		"server.read_timeout":            "MEDIBILL_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "MEDIBILL_SERVER_WRITE_TIMEOUT",
		"server.environment":             "MEDIBILL_SERVER_ENVIRONMENT",
		"db.host":                        "MEDIBILL_DB_HOST",
		"db.port":                        "MEDIBILL_DB_PORT",
		"db.user":                        "MEDIBILL_DB_USER",
		"db.password":                    "MEDIBILL_DB_PASSWORD",
		"db.name":                        "MEDIBILL_DB_NAME",
		"db.sslmode":                     "MEDIBILL_DB_SSLMODE",
		"db.max_open":                    "MEDIBILL_DB_MAX_OPEN",
		"db.max_idle":                    "MEDIBILL_DB_MAX_IDLE",
		"db.conn_max_lifetime":           "MEDIBILL_DB_CONN_MAX_LIFETIME",
		"jwt.secret":                     "MEDIBILL_JWT_SECRET",
		"jwt.access_expiry":              "MEDIBILL_JWT_ACCESS_EXPIRY",
		"jwt.refresh_expiry":             "MEDIBILL_JWT_REFRESH_EXPIRY",
		"jwt.issuer":                     "MEDIBILL_JWT_ISSUER",
		"s3.region":                      "MEDIBILL_S3_REGION",
		"s3.bucket":                      "MEDIBILL_S3_BUCKET",
		"s3.endpoint":                    "MEDIBILL_S3_ENDPOINT",
		"s3.access_key":                  "MEDIBILL_S3_ACCESS_KEY",
		"s3.secret_key":                  "MEDIBILL_S3_SECRET_KEY",
		"s3.presign_expiry":              "MEDIBILL_S3_PRESIGN_EXPIRY",
		"s3.archive_prefix":              "MEDIBILL_S3_ARCHIVE_PREFIX",
		"log.level":                      "MEDIBILL_LOG_LEVEL",
		"log.format":                     "MEDIBILL_LOG_FORMAT",
		"cors.allowed_origins":           "MEDIBILL_CORS_ALLOWED_ORIGINS",
		"rate_limit.requests_per_second": "MEDIBILL_RATE_LIMIT_REQUESTS_PER_SECOND",
		"rate_limit.burst":               "MEDIBILL_RATE_LIMIT_BURST",
		"email.provider":                 "MEDIBILL_EMAIL_PROVIDER",
		"email.region":                   "MEDIBILL_EMAIL_REGION",
		"email.from_address":             "MEDIBILL_EMAIL_FROM_ADDRESS",
		"email.from_name":                "MEDIBILL_EMAIL_FROM_NAME",
		"billing.store":                  "MEDIBILL_BILLING_STORE",
		"billing.check_on_read":          "MEDIBILL_BILLING_CHECK_ON_READ",
		"report.tds_percent":             "MEDIBILL_REPORT_TDS_PERCENT",
		"report.consultation_category":   "MEDIBILL_REPORT_CONSULTATION_CATEGORY",
		"admin.email":                    "MEDIBILL_ADMIN_EMAIL",
		"admin.password":                 "MEDIBILL_ADMIN_PASSWORD",
		"admin.full_name":                "MEDIBILL_ADMIN_FULL_NAME",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if MEDIBILL_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("MEDIBILL_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:            v.GetString("db.host"),
		Port:            v.GetInt("db.port"),
		User:            v.GetString("db.user"),
		Password:        v.GetString("db.password"),
		Name:            v.GetString("db.name"),
		SSLMode:         v.GetString("db.sslmode"),
		MaxOpen:         v.GetInt("db.max_open"),
		MaxIdle:         v.GetInt("db.max_idle"),
		ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
	}
	cfg.JWT = JWTConfig{
		Secret:             v.GetString("jwt.secret"),
		AccessTokenExpiry:  v.GetDuration("jwt.access_expiry"),
		RefreshTokenExpiry: v.GetDuration("jwt.refresh_expiry"),
		Issuer:             v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
		ArchivePrefix: strings.Trim(v.GetString("s3.archive_prefix"), "/"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}
	cfg.RateLimit = RateLimitConfig{
		RequestsPerSecond: v.GetFloat64("rate_limit.requests_per_second"),
		Burst:             v.GetInt("rate_limit.burst"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
	}

	cfg.Billing = BillingConfig{
		Store:       strings.ToLower(v.GetString("billing.store")),
		CheckOnRead: v.GetBool("billing.check_on_read"),
	}
	if cfg.Billing.Store != StorePostgres && cfg.Billing.Store != StoreMemory {
		return nil, fmt.Errorf("billing.store must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Billing.Store)
	}

	tds, err := decimal.NewFromString(v.GetString("report.tds_percent"))
	if err != nil {
		return nil, fmt.Errorf("report.tds_percent: %w", err)
	}
	if tds.IsNegative() || tds.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("report.tds_percent must be between 0 and 100, got %s", tds)
	}
	cfg.Report = ReportConfig{
		TDSPercent:           tds,
		ConsultationCategory: v.GetString("report.consultation_category"),
	}

	cfg.Admin = AdminConfig{
		Email:    v.GetString("admin.email"),
		Password: v.GetString("admin.password"),
		FullName: v.GetString("admin.full_name"),
	}

	return cfg, nil
}
