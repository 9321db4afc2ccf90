package loadgen

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
	AvgLatency    time.Duration
}

type endpoint struct {
	method string
	path   string
	body   string
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	client := &http.Client{Timeout: 5 * time.Second}
	endpoints := endpointsForProfile(cfg.Profile)
	if len(endpoints) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}
	rnd := rand.New(rand.NewSource(cfg.Seed))
	rnd.Shuffle(len(endpoints), func(i, j int) {
		endpoints[i], endpoints[j] = endpoints[j], endpoints[i]
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx, latencyMicros int64
	jobs := make(chan endpoint, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for ep := range jobs {
				req, err := http.NewRequestWithContext(ctx, ep.method, cfg.BaseURL+ep.path, strings.NewReader(ep.body))
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				if ep.body != "" {
					req.Header.Set("Content-Type", "application/json")
				}
				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				_ = resp.Body.Close()
				atomic.AddInt64(&latencyMicros, time.Since(start).Microseconds())
				atomic.AddInt64(&total, 1)
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&s2xx, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddInt64(&s4xx, 1)
				case resp.StatusCode >= 500:
					atomic.AddInt64(&s5xx, 1)
				}
			}
		}(i)
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			res := Result{TotalRequests: total, Failures: failures, Status2xx: s2xx, Status4xx: s4xx, Status5xx: s5xx}
			if total > 0 {
				res.AvgLatency = time.Duration(latencyMicros/total) * time.Microsecond
			}
			return res, nil
		case <-ticker.C:
			jobs <- endpoints[i%len(endpoints)]
			i++
		}
	}
}

func endpointsForProfile(profile string) []endpoint {
	health := endpoint{method: http.MethodGet, path: "/health/live"}
	ready := endpoint{method: http.MethodGet, path: "/health/ready"}
	badLogin := endpoint{
		method: http.MethodPost,
		path:   "/api/v1/accounts/login",
		body:   `{"email":"loadgen@example.com","password":"not-the-password"}`,
	}
	badVerify := endpoint{
		method: http.MethodPost,
		path:   "/api/v1/accounts/jwt/verify",
		body:   `{"token":"not-a-token"}`,
	}
	unauthedTasks := endpoint{method: http.MethodGet, path: "/api/v1/tasks"}
	badConfirm := endpoint{method: http.MethodGet, path: "/api/v1/accounts/confirm?token=loadgen"}

	switch strings.ToLower(profile) {
	case "", "mixed":
		return []endpoint{health, ready, badVerify, unauthedTasks, badConfirm}
	case "auth":
		return []endpoint{badLogin, badVerify, badConfirm}
	case "error-heavy":
		return []endpoint{badLogin, unauthedTasks, badConfirm}
	default:
		return nil
	}
}
