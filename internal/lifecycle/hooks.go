package lifecycle

import "context"

// Hook describes a named shutdown hook. Hooks sharing a Phase run concurrently; phases run in
// ascending order.
type Hook struct {
	Name  string
	Phase int
	Fn    func(ctx context.Context) error
}

// StartupHook describes a named step of the startup sequence. The step is skipped when the
// active profile is listed in SkipProfiles.
type StartupHook struct {
	Name         string
	SkipProfiles []string
	Fn           func(ctx context.Context) error
}
