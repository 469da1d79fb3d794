package archive

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the container's outer encoding.
type Compression int

const (
	None Compression = iota // plain tar
	Gzip                    // tar + gzip
	Zstd                    // tar + zstd
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Extension returns the canonical file extension for this encoding.
func (c Compression) Extension() string {
	switch c {
	case Gzip:
		return ".cmb.gz"
	case Zstd:
		return ".cmb.zst"
	default:
		return ".cmb"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ForPath picks an encoding from a file name.
func ForPath(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return Gzip
	case strings.HasSuffix(path, ".zst"):
		return Zstd
	default:
		return None
	}
}

// detect sniffs the encoding from the first container bytes, falling
// back to the file extension when the header is too short. Magic bytes
// win over the extension so a renamed file still opens.
func detect(header []byte, path string) Compression {
	if bytes.HasPrefix(header, gzipMagic) {
		return Gzip
	}
	if bytes.HasPrefix(header, zstdMagic) {
		return Zstd
	}
	if len(header) >= len(zstdMagic) {
		return None
	}
	return ForPath(path)
}

// wrapWriter layers the chosen compressor over w. The returned closer
// must be closed before the underlying file to flush compressor frames.
func wrapWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("archive: unknown compression %d", c)
	}
}

// wrapReader layers the matching decompressor over r.
func wrapReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("archive: unknown compression %d", c)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
