// Package persist writes encoded dumps to disk atomically, optionally zstd
// compressed, and opens them again.
package persist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix marks a zstd compressed dump
const CompressedSuffix = ".zst"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Compressed reports whether path names a compressed dump
func Compressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// WriteFile replaces path with whatever fn writes. Readers of path see
// either the old file or the complete new one, never a partial write.
func WriteFile(path string, compress bool, fn func(io.Writer) error) error {
	return writeAtomic(path, func(w io.Writer) error {
		return encode(w, compress, fn)
	})
}

func encode(w io.Writer, compress bool, fn func(io.Writer) error) error {
	bw := bufio.NewWriter(w)

	if compress {
		zw, err := zstd.NewWriter(bw)
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		if err := fn(zw); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("zstd close: %w", err)
		}
	} else if err := fn(bw); err != nil {
		return err
	}

	return bw.Flush()
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error {
	return r.close()
}

// Open opens a dump written by WriteFile, decompressing it when it starts
// with the zstd frame magic.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if !bytes.Equal(head, zstdMagic) {
		return readCloser{Reader: br, close: f.Close}, nil
	}

	zr, err := zstd.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd reader for %s: %w", path, err)
	}

	return readCloser{
		Reader: zr,
		close: func() error {
			zr.Close()
			return f.Close()
		},
	}, nil
}
