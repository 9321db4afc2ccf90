package di

import (
	"log/slog"
	"testing"
	"time"

	"github.com/taskory/taskory/internal/config"
)

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999"}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout != 10*time.Second {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
	if srv.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("unexpected read header timeout: %v", srv.ReadHeaderTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
		AuthRateLimitPerMin: 10,
		APIRateLimitPerMin:  100,
		OTELMetricsEnabled:  true,
	}
	dep := provideRouterDependencies(nil, nil, nil, nil, nil, nil, nil, cfg)
	if dep.AuthRateLimitRPM != 10 || dep.APIRateLimitRPM != 100 {
		t.Fatalf("unexpected rate limits: %+v", dep)
	}
	if !dep.EnableOTelHTTP {
		t.Fatal("expected otel http enabled")
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
}

func TestProvideRedisClientDisabled(t *testing.T) {
	cfg := &config.Config{RateLimitRedisEnabled: false, RedisAddr: "localhost:6379"}
	if client := provideRedisClient(cfg, slog.Default()); client != nil {
		t.Fatalf("expected nil client when redis rate limiting disabled, got %T", client)
	}
}

func TestProvideRedisClientEnabled(t *testing.T) {
	cfg := &config.Config{RateLimitRedisEnabled: true, RedisAddr: "localhost:6379"}
	client := provideRedisClient(cfg, slog.Default())
	if client == nil {
		t.Fatal("expected a redis client")
	}
	_ = client.Close()
}

func TestProvideStorageServiceDisabled(t *testing.T) {
	cfg := &config.Config{AvatarStorageEnabled: false}
	store, err := provideStorageService(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store != nil {
		t.Fatalf("expected nil storage service, got %T", store)
	}
}

func TestProvideRateLimitersLocalFallback(t *testing.T) {
	cfg := &config.Config{
		AuthRateLimitPerMin: 5,
		APIRateLimitPerMin:  50,
	}
	if mw := provideGlobalRateLimiter(cfg, nil); mw == nil {
		t.Fatal("expected global rate limiter middleware")
	}
	if mw := provideAuthRateLimiter(cfg, nil); mw == nil {
		t.Fatal("expected auth rate limiter middleware")
	}
}

func TestProvideTokenCodec(t *testing.T) {
	cfg := &config.Config{
		JWTIssuer:        "taskory",
		SecretKey:        "abcdefghijklmnopqrstuvwxyz123456",
		SecretVerifyKeys: []string{"abcdefghijklmnopqrstuvwxyz654321"},
		TokenLeeway:      30 * time.Second,
	}
	if codec := provideTokenCodec(cfg); codec == nil {
		t.Fatal("expected token codec")
	}
}

func TestProvideReadinessProbeRunnerWithoutRedis(t *testing.T) {
	cfg := &config.Config{
		RateLimitRedisEnabled:  false,
		ReadinessProbeTimeout:  time.Second,
		ServerStartGracePeriod: 0,
	}
	runner := provideReadinessProbeRunner(cfg, nil, nil)
	if runner == nil {
		t.Fatal("expected probe runner")
	}
}
