package corpus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/puzzler/internal/filter"
)

const header = "PuzzleId,FEN,Moves,Rating,RatingDeviation,Popularity,NbPlays,Themes,GameUrl,OpeningTags"

var validRows = []string{
	"00008,r1bqkb1r/pp2pppp/2n2n2/3p4/3P4/2N2N2/PPP1PPPP/R1BQKB1R w KQkq - 0 6,c3d5 f6d5,900,75,92,413,opening short,https://lichess.org/abc#11,Queens_Pawn_Game Queens_Pawn_Game_Other_Variations",
	"000aY,6k1/5ppp/8/8/8/8/5PPP/R5K1 b - - 0 1,g8h8 a1a8,1320,80,95,5021,backRankMate mate mateIn1 oneMove,https://lichess.org/xyz#40,",
	"00Pro,8/P6k/8/8/8/8/6K1/8 b - - 0 1,h7g7 a7a8q,1750,90,50,12,advancedPawn promotion endgame,https://lichess.org/p#1,",
}

const malformedRow = "bad1,8/8/8/8/8/8/8/K6k w - - 0 1,,1000,1,1,1,,,"

func corpusOf(rows ...string) string {
	return strings.Join(rows, "\n") + "\n"
}

func TestScan_SkipsMalformedRows(t *testing.T) {
	src := StringSource("test", corpusOf(validRows[0], malformedRow, validRows[1], validRows[2]))

	sess, err := NewScanner().Scan(context.Background(), src, filter.MatchEverything(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.Len())
	assert.Equal(t, 1, sess.DecodeFailures)
	assert.Equal(t, 4, sess.RowsScanned)
	assert.False(t, sess.Partial)
	assert.NoError(t, sess.Err)
}

func TestScan_WithHeader(t *testing.T) {
	src := StringSource("test", corpusOf(append([]string{header}, validRows...)...))

	sess, err := NewScanner().Scan(context.Background(), src, filter.MatchEverything(), 0)
	require.NoError(t, err)
	require.Equal(t, 3, sess.Len())
	assert.Equal(t, 3, sess.RowsScanned)
	assert.Equal(t, "00008", sess.Puzzles()[0].ID)
	assert.Equal(t, []string{"Queens_Pawn_Game", "Queens_Pawn_Game_Other_Variations"}, sess.Puzzles()[0].OpeningTags)
}

func TestScan_ReorderedHeader(t *testing.T) {
	data := corpusOf(
		"Rating,PuzzleId,Moves,FEN",
		"1500,r1,e2e4 e7e5,rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	)
	sess, err := NewScanner().Scan(context.Background(), StringSource("t", data), filter.MatchEverything(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, sess.Len())
	assert.Equal(t, "r1", sess.Puzzles()[0].ID)
	assert.Equal(t, 1500, sess.Puzzles()[0].Rating)
}

func TestScan_InvalidHeader(t *testing.T) {
	data := corpusOf("PuzzleId,FEN,Rating", "x,y,1")
	sess, err := NewScanner().Scan(context.Background(), StringSource("t", data), filter.MatchEverything(), 0)
	assert.ErrorIs(t, err, ErrCorpusUnreadable)
	require.NotNil(t, sess)
	assert.True(t, sess.Partial)
}

func TestScan_AppliesPredicateAndLimit(t *testing.T) {
	src := StringSource("test", corpusOf(validRows...))

	pred := filter.Compile(filter.Query{}.WithRating(1000, 2000), nil)
	sess, err := NewScanner().Scan(context.Background(), src, pred, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Len())

	sess, err = NewScanner().Scan(context.Background(), src, filter.MatchEverything(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, sess.Len())
	assert.Equal(t, "00008", sess.Puzzles()[0].ID)
	assert.Equal(t, 1, sess.RowsScanned)
	assert.False(t, sess.Partial)
}

func TestScan_ThemeAndOpeningQuery(t *testing.T) {
	src := StringSource("test", corpusOf(validRows...))

	pred := filter.Compile(filter.Query{Themes: []string{"endgame", "mate"}, ThemeMatch: filter.MatchAny}, nil)
	sess, err := NewScanner().Scan(context.Background(), src, pred, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Len())

	pred = filter.Compile(filter.Query{OpeningPrefix: []string{"Queens_Pawn_Game"}}, nil)
	sess, err = NewScanner().Scan(context.Background(), src, pred, 0)
	require.NoError(t, err)
	require.Equal(t, 1, sess.Len())
	assert.Equal(t, "00008", sess.Puzzles()[0].ID)
}

func TestScan_DegeneratePredicateSkipsCorpus(t *testing.T) {
	src := StringSource("test", corpusOf(validRows...))
	pred := filter.Compile(filter.Query{}.WithRating(2000, 1000), nil)

	sess, err := NewScanner().Scan(context.Background(), src, pred, 0)
	require.NoError(t, err)
	assert.True(t, sess.Empty())
	assert.Equal(t, 0, sess.RowsScanned)
}

func TestScan_Cancelled(t *testing.T) {
	rows := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, strings.Replace(validRows[0], "00008", fmt.Sprintf("c%03d", i), 1))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess, err := NewScanner(WithBatchSize(10)).Scan(ctx, StringSource("t", corpusOf(rows...)), filter.MatchEverything(), 0)
	require.NoError(t, err)
	assert.True(t, sess.Partial)
	assert.True(t, sess.Empty())
}

func TestScan_CancelledMidStream(t *testing.T) {
	rows := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, strings.Replace(validRows[0], "00008", fmt.Sprintf("c%03d", i), 1))
	}
	ctx, cancel := context.WithCancel(context.Background())

	pred := filter.Compile(filter.Query{FavoritesOnly: true}, cancelAfter{n: 25, cancel: cancel, calls: new(int)})
	sess, err := NewScanner(WithBatchSize(10)).Scan(ctx, StringSource("t", corpusOf(rows...)), pred, 0)
	require.NoError(t, err)
	assert.True(t, sess.Partial)
	// Cancellation is observed at the next batch boundary.
	assert.Equal(t, 30, sess.RowsScanned)
	assert.Equal(t, 30, sess.Len())
}

// cancelAfter accepts every puzzle and cancels the scan after n lookups.
type cancelAfter struct {
	n      int
	cancel context.CancelFunc
	calls  *int
}

func (c cancelAfter) IsFavorite(string) bool {
	*c.calls++
	if *c.calls == c.n {
		c.cancel()
	}
	return true
}

func TestScan_MissingFile(t *testing.T) {
	src := FileSource{Path: filepath.Join(t.TempDir(), "nope.csv")}
	sess, err := NewScanner().Scan(context.Background(), src, filter.MatchEverything(), 0)
	assert.ErrorIs(t, err, ErrCorpusMissing)
	assert.Nil(t, sess)
}

func TestScan_Directory(t *testing.T) {
	_, err := NewScanner().Scan(context.Background(), FileSource{Path: t.TempDir()}, filter.MatchEverything(), 0)
	assert.ErrorIs(t, err, ErrCorpusUnreadable)
}

func TestScan_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puzzles.csv")
	require.NoError(t, os.WriteFile(path, []byte(corpusOf(validRows...)), 0644))

	sess, err := NewScanner().Scan(context.Background(), FileSource{Path: path}, filter.MatchEverything(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.Len())
}

func compress(t *testing.T, data string) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll([]byte(data), nil)
}

func TestScan_ZstdFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puzzles.csv.zst")
	require.NoError(t, os.WriteFile(path, compress(t, corpusOf(append([]string{header}, validRows...)...)), 0644))

	sess, err := NewScanner().Scan(context.Background(), FileSource{Path: path}, filter.MatchEverything(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.Len())
	assert.Equal(t, 0, sess.DecodeFailures)
}

func TestScan_Metrics(t *testing.T) {
	rowsBefore := testutil.ToFloat64(rowsScanned)
	failBefore := testutil.ToFloat64(decodeFailures.WithLabelValues("malformed_row"))
	completeBefore := testutil.ToFloat64(scansTotal.WithLabelValues(resultComplete))

	src := StringSource("test", corpusOf(validRows[0], malformedRow))
	_, err := NewScanner(WithLogger(zerolog.Nop())).Scan(context.Background(), src, filter.MatchEverything(), 0)
	require.NoError(t, err)

	assert.Equal(t, rowsBefore+2, testutil.ToFloat64(rowsScanned))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(decodeFailures.WithLabelValues("malformed_row")))
	assert.Equal(t, completeBefore+1, testutil.ToFloat64(scansTotal.WithLabelValues(resultComplete)))
}

func TestWriteMetrics(t *testing.T) {
	src := StringSource("test", corpusOf(validRows[0], malformedRow))
	_, err := NewScanner(WithLogger(zerolog.Nop())).Scan(context.Background(), src, filter.MatchEverything(), 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "puzzler.prom")
	require.NoError(t, WriteMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "# TYPE puzzler_corpus_rows_scanned_total counter")
	assert.Contains(t, out, `puzzler_corpus_decode_failures_total{kind="malformed_row"}`)
	assert.Contains(t, out, `puzzler_corpus_scans_total{result="complete"}`)

	err = WriteMetrics(filepath.Join(t.TempDir(), "missing", "puzzler.prom"))
	assert.Error(t, err)
}

func TestJob_DeliversResult(t *testing.T) {
	rows := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, strings.Replace(validRows[1], "000aY", fmt.Sprintf("j%03d", i), 1))
	}
	job := NewScanner(WithBatchSize(10)).Start(context.Background(), StringSource("t", corpusOf(rows...)), filter.MatchEverything(), 0)

	var last Progress
	for p := range job.Progress() {
		assert.GreaterOrEqual(t, p.RowsScanned, last.RowsScanned)
		last = p
	}

	select {
	case res := <-job.Done():
		require.NoError(t, res.Err)
		assert.Equal(t, 50, res.Session.Len())
		assert.False(t, res.Session.Partial)
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}

	res := job.Wait()
	assert.Equal(t, 50, res.Session.Len())
}

func TestJob_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewScanner().Start(ctx, StringSource("t", corpusOf(validRows...)), filter.MatchEverything(), 0)
	res := job.Wait()
	require.NoError(t, res.Err)
	assert.True(t, res.Session.Partial)
	job.Cancel()
}

func TestJob_MissingCorpus(t *testing.T) {
	job := NewScanner().Start(context.Background(), FileSource{Path: filepath.Join(t.TempDir(), "x")}, filter.MatchEverything(), 0)
	res := job.Wait()
	assert.ErrorIs(t, res.Err, ErrCorpusMissing)
	assert.Nil(t, res.Session)
}

func TestFetcher_Fetch(t *testing.T) {
	body := compress(t, corpusOf(validRows...))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "data", "puzzles.csv")
	f := &Fetcher{Logger: zerolog.Nop()}
	n, err := f.Fetch(context.Background(), srv.URL, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(len(corpusOf(validRows...))), n)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, corpusOf(validRows...), string(got))
}

func TestFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "puzzles.csv")
	f := &Fetcher{Logger: zerolog.Nop()}
	_, err := f.Fetch(context.Background(), srv.URL, dst)
	assert.Error(t, err)
	assert.NoFileExists(t, dst)
}
