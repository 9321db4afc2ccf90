package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	LoginStrategyOpaque = "opaque"
	LoginStrategySigned = "signed"

	MailerDriverLog  = "log"
	MailerDriverSMTP = "smtp"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	// Token codec: one signing key, optional older keys kept verifiable.
	JWTIssuer        string
	SecretKey        string
	SecretVerifyKeys []string
	TokenLeeway      time.Duration

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	VerifyTokenTTL  time.Duration
	VerifyBaseURL   string

	// LoginTokenStrategy picks which credential /accounts/login hands out;
	// the jwt endpoints always use the signed pair.
	LoginTokenStrategy string
	PasswordMinLength  int

	MailerDriver string
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	NotifyWorkers      int
	NotifyQueueSize    int
	NotifyMaxRetries   int
	NotifyRetryBackoff time.Duration

	CORSAllowedOrigins []string

	AuthRateLimitPerMin   int
	APIRateLimitPerMin    int
	RateLimitRedisEnabled bool
	RateLimitRedisPrefix  string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	AvatarStorageEnabled bool
	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOBucket          string
	MinIOUseSSL          bool

	ReaperEnabled  bool
	ReaperInterval time.Duration

	SeedDemoEmail    string
	SeedDemoPassword string

	ReadinessProbeTimeout  time.Duration
	ServerStartGracePeriod time.Duration

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:                env,
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTIssuer:          getEnv("JWT_ISSUER", "taskory"),
		SecretKey:          os.Getenv("SECRET_KEY"),
		SecretVerifyKeys:   splitCSV(os.Getenv("SECRET_VERIFY_KEYS")),
		VerifyBaseURL:      getEnv("VERIFY_BASE_URL", "http://localhost:8080/api/v1/accounts/confirm"),
		LoginTokenStrategy: strings.ToLower(getEnv("LOGIN_TOKEN_STRATEGY", LoginStrategyOpaque)),
		PasswordMinLength:  getEnvInt("PASSWORD_MIN_LENGTH", 8),

		MailerDriver: strings.ToLower(getEnv("MAILER_DRIVER", MailerDriverLog)),
		SMTPAddr:     os.Getenv("SMTP_ADDR"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@taskory.local"),

		NotifyWorkers:    getEnvInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize:  getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyMaxRetries: getEnvInt("NOTIFY_MAX_RETRIES", 3),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		AuthRateLimitPerMin:   getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:    getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisEnabled: getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitRedisPrefix:  getEnv("RATE_LIMIT_REDIS_PREFIX", "taskory:ratelimit"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvInt("REDIS_DB", 0),

		AvatarStorageEnabled: getEnvBool("AVATAR_STORAGE_ENABLED", false),
		MinIOEndpoint:        getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:       os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:       os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:          getEnv("MINIO_BUCKET", "taskory-avatars"),
		MinIOUseSSL:          getEnvBool("MINIO_USE_SSL", false),

		ReaperEnabled: getEnvBool("REAPER_ENABLED", true),

		SeedDemoEmail:    strings.ToLower(os.Getenv("SEED_DEMO_EMAIL")),
		SeedDemoPassword: os.Getenv("SEED_DEMO_PASSWORD"),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "taskory"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"TOKEN_LEEWAY", "30s", &cfg.TokenLeeway},
		{"ACCESS_TOKEN_TTL", "15m", &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", "168h", &cfg.RefreshTokenTTL},
		{"VERIFY_TOKEN_TTL", "24h", &cfg.VerifyTokenTTL},
		{"NOTIFY_RETRY_BACKOFF", "2s", &cfg.NotifyRetryBackoff},
		{"REAPER_INTERVAL", "1h", &cfg.ReaperInterval},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.SecretKey) < 32 {
		errs = append(errs, "SECRET_KEY must be at least 32 chars")
	}
	for _, k := range c.SecretVerifyKeys {
		if k == c.SecretKey {
			errs = append(errs, "SECRET_VERIFY_KEYS must not repeat SECRET_KEY")
			break
		}
	}
	if c.LoginTokenStrategy != LoginStrategyOpaque && c.LoginTokenStrategy != LoginStrategySigned {
		errs = append(errs, "LOGIN_TOKEN_STRATEGY must be opaque or signed")
	}
	if c.MailerDriver != MailerDriverLog && c.MailerDriver != MailerDriverSMTP {
		errs = append(errs, "MAILER_DRIVER must be log or smtp")
	}
	if c.MailerDriver == MailerDriverSMTP && c.SMTPAddr == "" {
		errs = append(errs, "SMTP_ADDR is required when MAILER_DRIVER=smtp")
	}
	if c.VerifyBaseURL == "" {
		errs = append(errs, "VERIFY_BASE_URL is required")
	}
	if c.AccessTokenTTL <= 0 || c.AccessTokenTTL > time.Hour {
		errs = append(errs, "ACCESS_TOKEN_TTL must be between 1s and 1h")
	}
	if c.RefreshTokenTTL <= 0 || c.RefreshTokenTTL > (30*24*time.Hour) {
		errs = append(errs, "REFRESH_TOKEN_TTL must be between 1s and 30d")
	}
	if c.VerifyTokenTTL <= 0 || c.VerifyTokenTTL > (14*24*time.Hour) {
		errs = append(errs, "VERIFY_TOKEN_TTL must be between 1s and 14d")
	}
	if c.TokenLeeway < 0 || c.TokenLeeway > 5*time.Minute {
		errs = append(errs, "TOKEN_LEEWAY must be between 0 and 5m")
	}
	if c.PasswordMinLength < 6 {
		errs = append(errs, "PASSWORD_MIN_LENGTH must be at least 6")
	}
	if c.NotifyWorkers <= 0 {
		errs = append(errs, "NOTIFY_WORKERS must be > 0")
	}
	if c.NotifyQueueSize <= 0 {
		errs = append(errs, "NOTIFY_QUEUE_SIZE must be > 0")
	}
	if c.NotifyMaxRetries < 0 {
		errs = append(errs, "NOTIFY_MAX_RETRIES must be >= 0")
	}
	if c.NotifyRetryBackoff <= 0 {
		errs = append(errs, "NOTIFY_RETRY_BACKOFF must be > 0")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.ReaperEnabled && c.ReaperInterval < time.Minute {
		errs = append(errs, "REAPER_INTERVAL must be at least 1m when REAPER_ENABLED=true")
	}
	if c.AvatarStorageEnabled && (c.MinIOAccessKey == "" || c.MinIOSecretKey == "") {
		errs = append(errs, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when AVATAR_STORAGE_ENABLED=true")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isValidLogLevel(v string) bool {
	switch v {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
