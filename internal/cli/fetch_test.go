package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zstdServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll(body, nil)
	require.NoError(t, enc.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/puzzles.csv.zst" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(compressed)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_DownloadsAndDecompresses(t *testing.T) {
	rt := newTestApp(t)
	body := []byte("PuzzleId,FEN\n00008,fen\n")
	srv := zstdServer(t, body)

	c := &FetchCommand{URL: srv.URL + "/puzzles.csv.zst", client: srv.Client(), globals: &GlobalFlags{}}
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWith(context.Background(), rt))
	})

	assert.Contains(t, out, "Downloading "+srv.URL)
	assert.Contains(t, out, "Saved 23 B to "+rt.cfg.Corpus.Path)

	got, err := os.ReadFile(rt.cfg.Corpus.Path)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFetch_OutputOverrideJSON(t *testing.T) {
	rt := newTestApp(t)
	srv := zstdServer(t, []byte("x\n"))
	dst := filepath.Join(t.TempDir(), "nested", "corpus.csv")

	c := &FetchCommand{URL: srv.URL + "/puzzles.csv.zst", Output: dst, client: srv.Client(), globals: &GlobalFlags{JSON: true}}
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWith(context.Background(), rt))
	})

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, dst, res["path"])
	assert.Equal(t, float64(2), res["bytes"])
	assert.FileExists(t, dst)
}

func TestFetch_HTTPErrorKeepsExistingCorpus(t *testing.T) {
	rt := newTestApp(t, rowKnight)
	before, err := os.ReadFile(rt.cfg.Corpus.Path)
	require.NoError(t, err)
	srv := zstdServer(t, []byte("new"))

	c := &FetchCommand{URL: srv.URL + "/missing", client: srv.Client(), globals: &GlobalFlags{}}
	captureOutput(t, func() {
		err = c.executeWith(context.Background(), rt)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch failed")

	after, err := os.ReadFile(rt.cfg.Corpus.Path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
