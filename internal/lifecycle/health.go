package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Proton-105/starter-bot/internal/health"
)

// Probes exposes liveness and readiness for the HTTP surface. Readiness stays false until
// MarkReady is called at the end of the startup sequence.
type Probes struct {
	log     *slog.Logger
	checker *health.Checker
	ready   atomic.Bool
}

// NewProbes creates a new Probes instance backed by checker.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, checker: checker}
}

// MarkReady flips readiness once startup completed.
func (p *Probes) MarkReady() {
	p.ready.Store(true)
}

// Liveness reports success as long as the process is serving.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.DebugContext(ctx, "liveness probe called")
	return nil
}

// Readiness runs every registered component check and fails when any of them fails.
func (p *Probes) Readiness(ctx context.Context) (map[string]string, error) {
	p.log.DebugContext(ctx, "readiness probe called")

	results := map[string]string{}
	if p.checker != nil {
		results = p.checker.Check(ctx)
	}

	if !p.ready.Load() {
		results["startup"] = "pending"
		return results, fmt.Errorf("startup sequence has not completed")
	}

	var failing []string
	for name, status := range results {
		if status != health.StatusOK {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		return results, fmt.Errorf("unhealthy components: %s", strings.Join(failing, ", "))
	}

	return results, nil
}
