package internal

import (
	"context"
	"fmt"
	"io"
)

// Check validates the configuration, opens the configured store and performs
// one read against it. A pass/fail report is written to the application's stdout.
func Check(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	out := app.stdout
	if app.configErr != nil {
		report(out, false, "configuration: %v", app.configErr)
		return fmt.Errorf("check failed: %w", app.configErr)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	if err := cfg.Validate(); err != nil {
		report(out, false, "configuration: %v", err)
		return fmt.Errorf("check failed: %w", err)
	}
	report(out, true, "configuration valid (store: %s)", cfg.Store.Backend)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		report(out, false, "open %s store: %v", cfg.Store.Backend, err)
		return fmt.Errorf("check failed: %w", err)
	}
	defer closeStore()
	report(out, true, "%s store opened", cfg.Store.Backend)

	latest, err := store.LatestSequence(ctx)
	if err != nil {
		report(out, false, "read latest chat number: %v", err)
		return fmt.Errorf("check failed: %w", err)
	}
	report(out, true, "latest chat number: %d", latest)

	projects, err := store.ListProjects(ctx, true)
	if err != nil {
		report(out, false, "list projects: %v", err)
		return fmt.Errorf("check failed: %w", err)
	}
	report(out, true, "projects: %d", len(projects))

	fmt.Fprintln(out, "All checks passed.")
	return nil
}

func report(w io.Writer, ok bool, format string, args ...any) {
	mark := "✅"
	if !ok {
		mark = "❌"
	}
	fmt.Fprintf(w, "%s %s\n", mark, fmt.Sprintf(format, args...))
}
