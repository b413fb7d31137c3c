package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Startup runs registered hooks in order, exactly once, after the application is wired.
// The first failing hook aborts the sequence.
type Startup struct {
	mu      sync.Mutex
	hooks   []StartupHook
	profile string
	log     *slog.Logger

	once sync.Once
	err  error
}

// NewStartup constructs a startup sequence for the given configuration profile.
func NewStartup(profile string, log *slog.Logger) *Startup {
	if log == nil {
		log = slog.Default()
	}

	return &Startup{profile: profile, log: log}
}

// Register appends a hook to the sequence. Hooks registered after Execute are ignored.
func (s *Startup) Register(hook StartupHook) {
	if hook.Fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, hook)
}

// Execute runs the sequence on the first call; later calls return the first result.
func (s *Startup) Execute(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.run(ctx)
	})

	return s.err
}

func (s *Startup) run(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]StartupHook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("startup sequence started", slog.Int("hook_count", len(hooks)), slog.String("profile", s.profile))

	for _, hook := range hooks {
		if lo.Contains(hook.SkipProfiles, s.profile) {
			s.log.Info("skipping startup hook", slog.String("hook", hook.Name), slog.String("profile", s.profile))
			continue
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("startup interrupted before %s: %w", hook.Name, err)
		}

		s.log.Info("running startup hook", slog.String("hook", hook.Name))
		if err := hook.Fn(ctx); err != nil {
			s.log.Error("startup hook failed", slog.String("hook", hook.Name), slog.Any("error", err))
			return fmt.Errorf("startup hook %s: %w", hook.Name, err)
		}
	}

	s.log.Info("startup sequence finished", slog.Duration("elapsed", time.Since(start)))

	return nil
}
