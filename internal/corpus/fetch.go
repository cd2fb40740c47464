package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

// DefaultURL is the lichess puzzle export.
const DefaultURL = "https://database.lichess.org/lichess_db_puzzle.csv.zst"

// Fetcher downloads a compressed corpus and writes it decompressed to disk.
// It is a convenience for the CLI; the scanner never fetches on its own.
type Fetcher struct {
	Client *http.Client
	Logger zerolog.Logger
}

// Fetch downloads url and writes the decompressed corpus to dst. The file is
// written next to dst and renamed into place, so a failed fetch leaves any
// existing corpus untouched. It returns the number of bytes written.
func (f *Fetcher) Fetch(ctx context.Context, url, dst string) (int64, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	f.Logger.Info().Str("url", url).Int64("content_length", resp.ContentLength).Msg("Downloading corpus")

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("create corpus directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".puzzles-*.csv")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := Decompress(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return n, fmt.Errorf("install corpus: %w", err)
	}

	f.Logger.Info().Str("path", dst).Int64("bytes", n).Msg("Corpus installed")
	return n, nil
}

// Decompress copies a zstd stream from src to dst.
func Decompress(dst io.Writer, src io.Reader) (int64, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return 0, fmt.Errorf("zstd: %w", err)
	}
	defer dec.Close()

	n, err := dec.WriteTo(dst)
	if err != nil {
		return n, fmt.Errorf("decompress corpus: %w", err)
	}
	return n, nil
}
