package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status представляет статус компонента
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const defaultCheckTimeout = 2 * time.Second

// Check описывает результат проверки одного компонента.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Critical   bool   `json:"critical"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response представляет ответ health check
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler агрегирует проверки для /healthz и /readyz.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
	now       func() time.Time
}

// NewHandler создаёт новый health handler
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// RegisterChecker регистрирует проверку компонента
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Evaluate выполняет все проверки и сводит общий статус.
// Некритичная неудачная проверка понижает статус только до degraded.
func (h *Handler) Evaluate(ctx context.Context) Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]Check, len(names))
	overall := StatusHealthy
	for _, name := range names {
		check := checkers[name].Check(ctx)
		checks[name] = check

		switch {
		case check.Status == StatusUnhealthy && check.Critical:
			overall = StatusUnhealthy
		case check.Status != StatusHealthy && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return Response{
		Status:        overall,
		Timestamp:     h.now().UTC(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(h.now().Sub(h.startTime).Seconds()),
	}
}

// ServeHTTP отдаёт полный отчёт; 503 только при отказе критичного компонента.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.Evaluate(r.Context())

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler отвечает на проверку живости (всегда возвращает 200)
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler проверяет готовность к обработке запросов
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.Evaluate(r.Context()).Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// PingChecker вызывает функцию проверки с таймаутом.
type PingChecker struct {
	name     string
	critical bool
	timeout  time.Duration
	pingFn   func(ctx context.Context) error
}

// NewPingChecker создаёт критичную проверку (например, доступность PostgreSQL).
func NewPingChecker(name string, timeout time.Duration, pingFn func(ctx context.Context) error) *PingChecker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &PingChecker{name: name, critical: true, timeout: timeout, pingFn: pingFn}
}

// NewOptionalChecker создаёт некритичную проверку: её отказ даёт degraded.
func NewOptionalChecker(name string, timeout time.Duration, pingFn func(ctx context.Context) error) *PingChecker {
	c := NewPingChecker(name, timeout, pingFn)
	c.critical = false
	return c
}

// Check выполняет проверку
func (c *PingChecker) Check(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.pingFn(ctx)
	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		Critical:   c.critical,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}
