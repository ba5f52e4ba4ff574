package monitoring

import (
	"context"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type HealthChecker struct {
	mu     sync.RWMutex
	checks []HealthCheck
}

type HealthCheck struct {
	Name    string
	Check   func(ctx context.Context) error
	Timeout time.Duration
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// AddCheck registers a dependency probe. A zero timeout means 2s.
func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, HealthCheck{Name: name, Check: check, Timeout: timeout})
}

// CheckAll runs every probe concurrently and reports unhealthy if any fails.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(checks)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, check := range checks {
		wg.Add(1)
		go func(check HealthCheck) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
			defer cancel()

			err := check.Check(checkCtx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status.Status = StatusUnhealthy
				status.Checks[check.Name] = err.Error()
				return
			}
			status.Checks[check.Name] = StatusHealthy
		}(check)
	}
	wg.Wait()
	return status
}

func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == StatusHealthy
}
