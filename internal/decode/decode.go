// Package decode builds a buffered byte-stream reader over an S3 object
// body, optionally decompressing it.
package decode

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/openshift/rosa-log-ingestor/internal/compression"
)

const bufferSize = 64 * 1024

// NewReader returns a reader over body for the given resolved
// compression kind. kind must not be compression.Auto — resolving Auto
// to a concrete kind is the caller's job (see compression.Resolve);
// arriving here with Auto is a programmer error.
func NewReader(kind compression.Kind, body io.Reader) (io.Reader, error) {
	buffered := bufio.NewReaderSize(body, bufferSize)

	switch kind {
	case compression.None:
		return buffered, nil
	case compression.Gzip:
		return gzip.NewReader(buffered)
	case compression.Zstd:
		zr, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case compression.Auto:
		panic("decode: compression.Auto must be resolved before NewReader")
	default:
		return nil, fmt.Errorf("decode: unknown compression kind %v", kind)
	}
}
