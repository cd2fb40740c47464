// Package corpus streams puzzle rows from a corpus file through the decoder
// and a filter predicate.
package corpus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrCorpusMissing is returned when the corpus file does not exist.
	ErrCorpusMissing = errors.New("corpus missing")
	// ErrCorpusUnreadable covers every other open or read failure.
	ErrCorpusUnreadable = errors.New("corpus unreadable")
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Source opens a fresh stream over a corpus. Each scan calls Open once and
// closes the returned reader when done.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// FileSource reads a corpus file from disk, plain or zstd-compressed.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return f.Path }

func (f FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCorpusMissing, f.Path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCorpusUnreadable, f.Path, err)
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrCorpusUnreadable, f.Path, err)
	}
	if info.IsDir() {
		fh.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrCorpusUnreadable, f.Path)
	}
	rc, err := decompressing(fh, fh)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrCorpusUnreadable, f.Path, err)
	}
	return rc, nil
}

// ReaderSource serves a corpus from memory. It can only be opened once
// unless the reader is an io.Seeker.
type ReaderSource struct {
	Label  string
	Reader io.Reader
}

func (r ReaderSource) Name() string {
	if r.Label == "" {
		return "reader"
	}
	return r.Label
}

func (r ReaderSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if r.Reader == nil {
		return nil, fmt.Errorf("%w: %s", ErrCorpusMissing, r.Name())
	}
	if s, ok := r.Reader.(io.Seeker); ok {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorpusUnreadable, r.Name(), err)
		}
	}
	rc, err := decompressing(r.Reader, io.NopCloser(r.Reader))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorpusUnreadable, r.Name(), err)
	}
	return rc, nil
}

// StringSource is a ReaderSource over a literal corpus.
func StringSource(label, data string) ReaderSource {
	return ReaderSource{Label: label, Reader: bytes.NewReader([]byte(data))}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// decompressing peeks at the stream and inserts a zstd decoder when the
// frame magic is present.
func decompressing(r io.Reader, c io.Closer) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	magic, _ := br.Peek(len(zstdMagic))
	if !bytes.Equal(magic, zstdMagic) {
		return readCloser{Reader: br, close: c.Close}, nil
	}
	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return readCloser{
		Reader: dec,
		close: func() error {
			dec.Close()
			return c.Close()
		},
	}, nil
}
