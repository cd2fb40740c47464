package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/puzzler/internal/corpus"
	"github.com/runnerr0/puzzler/internal/storage"
)

// Execute implements the go-flags Commander interface for FavoriteCommand.
func (c *FavoriteCommand) Execute(args []string) error {
	c.Add = append(c.Add, args...)

	rt, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := commandContext()
	defer stop()
	return c.executeWith(ctx, rt)
}

type jsonFavorite struct {
	ID        string `json:"id"`
	Rating    int    `json:"rating,omitempty"`
	Themes    string `json:"themes,omitempty"`
	HasRow    bool   `json:"has_row"`
	UpdatedAt string `json:"updated_at"`
}

type jsonFavoriteOutput struct {
	Added     []string       `json:"added,omitempty"`
	IDOnly    []string       `json:"id_only,omitempty"`
	Removed   []string       `json:"removed,omitempty"`
	Favorites []jsonFavorite `json:"favorites,omitempty"`
}

// executeWith applies the requested changes using a provided app (for testing).
func (c *FavoriteCommand) executeWith(ctx context.Context, rt *app) error {
	jsonOut := c.globals != nil && c.globals.JSON
	var out jsonFavoriteOutput

	if len(c.Add) > 0 {
		found, err := lookupPuzzles(ctx, rt, c.Add)
		if err != nil && !errors.Is(err, corpus.ErrCorpusMissing) {
			return err
		}
		if err != nil {
			rt.log.Warn().Err(err).Msg("Corpus unavailable; favorites saved by ID only")
		}
		for _, id := range c.Add {
			if p, ok := found[id]; ok {
				if err := rt.ledger.SetPuzzle(ctx, p, true); err != nil {
					return fmt.Errorf("favorite %s: %w", id, err)
				}
				out.Added = append(out.Added, id)
				if !jsonOut {
					fmt.Printf("Added %s (rating %d) to favorites\n", id, p.Rating)
				}
				continue
			}
			if err := rt.ledger.SetFavorite(ctx, id, true); err != nil {
				return fmt.Errorf("favorite %s: %w", id, err)
			}
			out.IDOnly = append(out.IDOnly, id)
			if !jsonOut {
				fmt.Printf("Added %s to favorites (not found in corpus; saved by ID only)\n", id)
			}
		}
	}

	for _, id := range c.Remove {
		if err := rt.ledger.SetFavorite(ctx, id, false); err != nil {
			return fmt.Errorf("unfavorite %s: %w", id, err)
		}
		out.Removed = append(out.Removed, id)
		if !jsonOut {
			fmt.Printf("Removed %s from favorites\n", id)
		}
	}

	if c.List || (len(c.Add) == 0 && len(c.Remove) == 0) {
		entries, err := rt.store.ListFavorites(ctx, storage.FavoriteQuery{})
		if err != nil {
			return err
		}
		if jsonOut {
			out.Favorites = make([]jsonFavorite, len(entries))
			for i, e := range entries {
				out.Favorites[i] = jsonFavorite{
					ID:        e.PuzzleID,
					Rating:    e.Rating,
					Themes:    e.Themes,
					HasRow:    e.Row != "",
					UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
				}
			}
		} else {
			printFavorites(entries)
		}
	}

	if jsonOut {
		return printJSON(out)
	}
	return nil
}

func printFavorites(entries []storage.FavoriteEntry) {
	if len(entries) == 0 {
		fmt.Println("No favorites yet")
		return
	}
	fmt.Printf("%d %s\n\n", len(entries), plural(len(entries), "favorite", "favorites"))
	for _, e := range entries {
		rating := "   -"
		if e.Row != "" {
			rating = fmt.Sprintf("%4d", e.Rating)
		}
		fmt.Printf("  %-8s %s  %s  %s\n", e.PuzzleID, rating, e.UpdatedAt.Local().Format("2006-01-02"), e.Themes)
	}
}
