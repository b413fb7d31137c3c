package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Proton-105/starter-bot/internal/health"
	"github.com/Proton-105/starter-bot/internal/testutil"
)

type staticCheck struct{ err error }

func (c staticCheck) HealthCheck(context.Context) error { return c.err }

func TestProbes_Readiness(t *testing.T) {
	checker := health.NewChecker(testutil.DiscardLogger())
	checker.AddCheck("database", staticCheck{})
	probes := NewProbes(checker, testutil.DiscardLogger())

	results, err := probes.Readiness(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "pending", results["startup"])

	probes.MarkReady()
	results, err = probes.Readiness(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, health.StatusOK, results["database"])

	checker.AddCheck("redis", staticCheck{err: errors.New("dial tcp: refused")})
	_, err = probes.Readiness(context.Background())
	assert.EqualError(t, err, "unhealthy components: redis")

	assert.NoError(t, probes.Liveness(context.Background()))
}
