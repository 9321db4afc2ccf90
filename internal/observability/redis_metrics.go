package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisHookOnce sync.Once

// InstrumentRedisClient attaches command and pool metrics to the client
// backing the distributed rate limiter. Installs at most once per process.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisHookOnce.Do(func() {
		hook, err := newRedisHook(client)
		if err != nil {
			logger.Warn("redis instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis instrumentation enabled")
	})
}

// redisHook records per-command counters and latency. The rate limiter
// issues INCR/EXPIRE/TTL (often pipelined), so latency and error rate are
// the signals that matter; there is no cache workload to track.
type redisHook struct {
	commands metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram

	totalOps  atomic.Int64
	failedOps atomic.Int64
}

func newRedisHook(client redis.UniversalClient) (*redisHook, error) {
	meter := otel.Meter("taskory")

	commands, err := meter.Int64Counter(
		"redis.command.total",
		metric.WithDescription("Redis commands issued by the rate limiter"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"redis.command.errors",
		metric.WithDescription("Redis commands that returned an error"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency in seconds"),
	)
	if err != nil {
		return nil, err
	}

	saturation, err := meter.Float64ObservableGauge(
		"redis.pool.saturation",
		metric.WithUnit("1"),
		metric.WithDescription("Connection pool saturation (used conns / total conns)"),
	)
	if err != nil {
		return nil, err
	}
	errorRate, err := meter.Float64ObservableGauge(
		"redis.command.error_rate",
		metric.WithUnit("1"),
		metric.WithDescription("Fraction of commands that failed since process start"),
	)
	if err != nil {
		return nil, err
	}

	hook := &redisHook{commands: commands, failures: failures, latency: latency}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if stats := client.PoolStats(); stats != nil && stats.TotalConns > 0 {
			used := float64(stats.TotalConns - stats.IdleConns)
			o.ObserveFloat64(saturation, clampRatio(used/float64(stats.TotalConns)))
		}
		if total := hook.totalOps.Load(); total > 0 {
			o.ObserveFloat64(errorRate, clampRatio(float64(hook.failedOps.Load())/float64(total)))
		}
		return nil
	}, saturation, errorRate)
	if err != nil {
		return nil, err
	}
	return hook, nil
}

func (h *redisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, cmd.Name(), time.Since(start), err)
		return err
	}
}

func (h *redisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("command", "pipeline"),
			attribute.String("status", commandStatus(err)),
		))
		for _, cmd := range cmds {
			h.observe(ctx, cmd.Name(), 0, cmd.Err())
		}
		return err
	}
}

// observe records one command outcome. A zero duration means the command
// ran inside a pipeline whose latency was already recorded as a whole.
func (h *redisHook) observe(ctx context.Context, name string, elapsed time.Duration, err error) {
	command := strings.ToLower(name)
	status := commandStatus(err)

	h.totalOps.Add(1)
	h.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	))

	if err != nil && !errors.Is(err, redis.Nil) {
		h.failedOps.Add(1)
		h.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("error_type", classifyRedisError(err)),
		))
	}

	if elapsed > 0 {
		h.latency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
		))
	}
}

func commandStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	default:
		return "error"
	}
}

func classifyRedisError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "other"
	}
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
