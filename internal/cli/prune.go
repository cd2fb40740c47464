package cli

import (
	"context"
	"fmt"
	"time"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	if c.OlderThan != "" {
		if _, err := parseDuration(c.OlderThan); err != nil {
			return fmt.Errorf("invalid --older-than value: %w", err)
		}
	}

	rt, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.executeWith(context.Background(), rt)
}

// executeWith prunes using a provided app (for testing).
func (c *PruneCommand) executeWith(ctx context.Context, rt *app) error {
	retention := time.Duration(rt.cfg.Retention.UnfavoritedDays) * 24 * time.Hour
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("invalid --older-than value: %w", err)
		}
		retention = d
	}
	cutoff := time.Now().Add(-retention)

	var (
		n   int64
		err error
	)
	if c.DryRun {
		n, err = rt.store.CountPrunable(ctx, cutoff)
	} else {
		n, err = rt.store.PruneUnfavorited(ctx, cutoff)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"dry_run":   c.DryRun,
			"pruned":    n,
			"retention": formatDurationHuman(retention),
			"cutoff":    cutoff.UTC().Format(time.RFC3339),
		})
	}

	entries := plural(int(n), "entry", "entries")
	if c.DryRun {
		fmt.Printf("Would prune %d unfavorited %s older than %s\n", n, entries, formatDurationHuman(retention))
		return nil
	}
	fmt.Printf("Pruned %d unfavorited %s older than %s\n", n, entries, formatDurationHuman(retention))
	return nil
}
