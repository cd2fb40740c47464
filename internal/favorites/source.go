package favorites

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/runnerr0/puzzler/internal/corpus"
	"github.com/runnerr0/puzzler/internal/puzzle"
	"github.com/runnerr0/puzzler/internal/storage"
)

// Source serves the rows stored with favorites as a corpus, so favorites
// can be searched and solved without the corpus file.
type Source struct {
	Store Store
}

var _ corpus.Source = Source{}

func (s Source) Name() string { return "favorites" }

// Open renders the stored rows, with a header, in the current lichess layout.
// Favorites saved by ID alone have no row and are left out.
func (s Source) Open(ctx context.Context) (io.ReadCloser, error) {
	entries, err := s.Store.ListFavorites(ctx, storage.FavoriteQuery{})
	if err != nil {
		return nil, fmt.Errorf("%w: favorites: %w", corpus.ErrCorpusUnreadable, err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(puzzle.SchemaV1.Header(), ","))
	b.WriteByte('\n')
	for _, e := range entries {
		if e.Row == "" {
			continue
		}
		b.WriteString(e.Row)
		b.WriteByte('\n')
	}
	return io.NopCloser(strings.NewReader(b.String())), nil
}
