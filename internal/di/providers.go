package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/taskory/taskory/internal/app"
	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/database"
	"github.com/taskory/taskory/internal/health"
	"github.com/taskory/taskory/internal/http/handler"
	"github.com/taskory/taskory/internal/http/middleware"
	"github.com/taskory/taskory/internal/http/router"
	"github.com/taskory/taskory/internal/notify"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/repository"
	"github.com/taskory/taskory/internal/security"
	"github.com/taskory/taskory/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewAccountRepository,
	repository.NewProfileRepository,
	repository.NewTaskRepository,
	repository.NewAccessTokenRepository,
)

var SecuritySet = wire.NewSet(
	provideTokenCodec,
	providePasswordPolicy,
)

var NotifySet = wire.NewSet(
	provideMailSender,
	notify.NewDispatcher,
	wire.Bind(new(service.NotificationEnqueuer), new(*notify.Dispatcher)),
)

var ServiceSet = wire.NewSet(
	service.NewAuthService,
	service.NewTokenService,
	service.NewTaskService,
	provideStorageService,
	service.NewProfileService,
	provideTaskReaper,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.TokenServiceInterface), new(*service.TokenService)),
	wire.Bind(new(service.TaskServiceInterface), new(*service.TaskServiceImpl)),
	wire.Bind(new(service.ProfileServiceInterface), new(*service.ProfileServiceImpl)),
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	handler.NewTaskHandler,
	handler.NewProfileHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

// MigrationRunner bundles migrate-and-seed for the taskctl entrypoint.
type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) Run() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	if _, err := database.Seed(m.db, m.cfg.SeedDemoEmail, m.cfg.SeedDemoPassword); err != nil {
		return err
	}
	fmt.Println("migration complete")
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if _, err := database.Seed(db, cfg.SeedDemoEmail, cfg.SeedDemoPassword); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RateLimitRedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideTokenCodec(cfg *config.Config) *security.TokenCodec {
	return security.NewTokenCodec(cfg.JWTIssuer, cfg.SecretKey, cfg.SecretVerifyKeys, cfg.TokenLeeway)
}

func providePasswordPolicy(cfg *config.Config) security.PasswordPolicy {
	return security.NewDefaultPasswordPolicy(cfg.PasswordMinLength)
}

func provideMailSender(cfg *config.Config, logger *slog.Logger) notify.Sender {
	return notify.NewSenderFromConfig(cfg, logger)
}

// provideStorageService returns nil when avatar storage is switched off;
// ProfileService treats a nil store as "feature disabled".
func provideStorageService(cfg *config.Config) (service.StorageService, error) {
	if !cfg.AvatarStorageEnabled {
		return nil, nil
	}
	return service.NewMinIOStorageService(
		cfg.MinIOEndpoint,
		cfg.MinIOAccessKey,
		cfg.MinIOSecretKey,
		cfg.MinIOBucket,
		cfg.MinIOUseSSL,
	)
}

func provideTaskReaper(cfg *config.Config, repo repository.TaskRepository, logger *slog.Logger) *service.TaskReaper {
	return service.NewTaskReaper(repo, logger, cfg.ReaperInterval)
}

func provideAuthHandler(authSvc service.AuthServiceInterface, tokenSvc service.TokenServiceInterface, cfg *config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(authSvc, tokenSvc, cfg.LoginTokenStrategy)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute, "api").Middleware()
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":auth")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute, "auth").Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	profileHandler *handler.ProfileHandler,
	tokenSvc service.TokenServiceInterface,
	globalRateLimiter router.GlobalRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		TaskHandler:       taskHandler,
		ProfileHandler:    profileHandler,
		TokenService:      tokenSvc,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: globalRateLimiter,
		AuthRateLimiter:   authRateLimiter,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 2)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if cfg.RateLimitRedisEnabled {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}
