package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	healthBudget    = 5 * time.Second
	dependencyLimit = 2 * time.Second
)

// Dependency is an optional backend of the analysis service: the audit
// archive or the artifact store. The completion provider is never checked
// here because every call is billed.
type Dependency interface {
	Check(ctx context.Context) error
}

// Describer lets a dependency add a short detail line to a passing check.
type Describer interface {
	Describe(ctx context.Context) (string, error)
}

// DependencyFunc adapts a function to Dependency.
type DependencyFunc func(ctx context.Context) error

func (f DependencyFunc) Check(ctx context.Context) error { return f(ctx) }

// ArchiveDependency checks the audit archive database and reports how many
// records it holds.
type ArchiveDependency struct {
	DB *sql.DB
}

func (a ArchiveDependency) Check(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

func (a ArchiveDependency) Describe(ctx context.Context) (string, error) {
	var n int64
	if err := a.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompt_audits`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d archived analyses", n), nil
}

// DependencyReport is the outcome of one dependency check.
type DependencyReport struct {
	Name      string `json:"name"`
	Up        bool   `json:"up"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthReport is the body of GET /health. Status is "ok" when every
// dependency is up and "degraded" otherwise; analyses still run while
// degraded, only archiving or artifact upload is affected.
type HealthReport struct {
	Status       string             `json:"status"`
	CheckedAt    time.Time          `json:"checked_at"`
	Dependencies []DependencyReport `json:"dependencies"`
}

// CheckDependencies runs every check concurrently, each under its own
// deadline, and returns the reports sorted by name.
func CheckDependencies(ctx context.Context, deps map[string]Dependency) HealthReport {
	report := HealthReport{Status: "ok", CheckedAt: time.Now().UTC()}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, dep := range deps {
		wg.Add(1)
		go func(name string, dep Dependency) {
			defer wg.Done()
			r := checkOne(ctx, name, dep)
			mu.Lock()
			report.Dependencies = append(report.Dependencies, r)
			mu.Unlock()
		}(name, dep)
	}
	wg.Wait()

	sort.Slice(report.Dependencies, func(i, j int) bool {
		return report.Dependencies[i].Name < report.Dependencies[j].Name
	})
	for _, r := range report.Dependencies {
		if !r.Up {
			report.Status = "degraded"
		}
	}
	return report
}

func checkOne(ctx context.Context, name string, dep Dependency) DependencyReport {
	ctx, cancel := context.WithTimeout(ctx, dependencyLimit)
	defer cancel()

	start := time.Now()
	r := DependencyReport{Name: name, Up: true}
	if err := dep.Check(ctx); err != nil {
		r.Up = false
		r.Error = err.Error()
	} else if d, ok := dep.(Describer); ok {
		// a failing description does not fail the check
		if detail, err := d.Describe(ctx); err == nil {
			r.Detail = detail
		}
	}
	r.LatencyMS = time.Since(start).Milliseconds()
	return r
}

// HealthHandler serves the dependency report; a degraded report is a 503.
func HealthHandler(deps map[string]Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthBudget)
		defer cancel()

		report := CheckDependencies(ctx, deps)
		if report.Dependencies == nil {
			report.Dependencies = []DependencyReport{}
		}
		code := http.StatusOK
		if report.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	}
}

// Readiness reports whether the server still accepts analyses. It turns
// unready once shutdown begins so a load balancer stops routing new work
// while in-flight completions finish.
type Readiness struct {
	draining atomic.Bool
}

// Drain marks the server as shutting down.
func (rd *Readiness) Drain() { rd.draining.Store(true) }

func (rd *Readiness) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	if rd.draining.Load() {
		status, code = "draining", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// LivenessHandler answers as long as the process serves HTTP.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
