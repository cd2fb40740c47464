package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if err := c.validate(); err != nil {
		return err
	}
	if err := c.confirm(); err != nil {
		return err
	}

	rt, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.purge(context.Background(), rt)
}

func (c *PurgeCommand) validate() error {
	if !c.All && !c.Favorites {
		return fmt.Errorf("purge requires --all or --favorites flag for safety")
	}
	return nil
}

// confirm asks the user to type PURGE unless --force is set.
func (c *PurgeCommand) confirm() error {
	if c.Force {
		return nil
	}

	fmt.Println("⚠ WARNING: This will permanently delete:")
	fmt.Println("  - All favorites and their stored puzzles")
	if c.All {
		fmt.Println("  - All attempt history")
	}
	fmt.Println()
	fmt.Println("The puzzle corpus itself is not touched. This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.in != nil {
		in = c.in
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	input := strings.TrimSpace(scanner.Text())
	if input != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWith validates, confirms and purges using a provided app (for testing).
func (c *PurgeCommand) executeWith(ctx context.Context, rt *app) error {
	if err := c.validate(); err != nil {
		return err
	}
	if err := c.confirm(); err != nil {
		return err
	}
	return c.purge(ctx, rt)
}

func (c *PurgeCommand) purge(ctx context.Context, rt *app) error {
	var err error
	message := "all data deleted"
	if c.All {
		err = rt.store.PurgeAll(ctx)
	} else {
		err = rt.store.PurgeFavorites(ctx)
		message = "favorites deleted"
	}
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	rt.ledger.Forget()

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"message": message,
		})
	}

	if c.All {
		fmt.Println("Purged all data. Favorites and attempt history are empty.")
	} else {
		fmt.Println("Purged all favorites.")
	}
	return nil
}
