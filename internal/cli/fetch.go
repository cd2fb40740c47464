package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/puzzler/internal/config"
	"github.com/runnerr0/puzzler/internal/corpus"
)

// Execute implements the go-flags Commander interface for FetchCommand.
func (c *FetchCommand) Execute(args []string) error {
	rt, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := commandContext()
	defer stop()
	return c.executeWith(ctx, rt)
}

// executeWith downloads the corpus using a provided app (for testing).
func (c *FetchCommand) executeWith(ctx context.Context, rt *app) error {
	url := c.URL
	if url == "" {
		url = rt.cfg.Corpus.URL
	}
	if url == "" {
		url = corpus.DefaultURL
	}

	dst := c.Output
	if dst == "" {
		dst = rt.cfg.Corpus.Path
	}
	dst, err := config.ExpandPath(dst)
	if err != nil {
		return err
	}

	if c.globals == nil || !c.globals.JSON {
		fmt.Printf("Downloading %s\n", url)
	}
	f := &corpus.Fetcher{Client: c.client, Logger: rt.log}
	n, err := f.Fetch(ctx, url, dst)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"url":   url,
			"path":  dst,
			"bytes": n,
		})
	}
	fmt.Printf("Saved %s to %s\n", formatBytes(n), dst)
	return nil
}
