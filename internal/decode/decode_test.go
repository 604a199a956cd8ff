package decode

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/openshift/rosa-log-ingestor/internal/compression"
)

func TestNewReaderPlain(t *testing.T) {
	r, err := NewReader(compression.None, bytes.NewBufferString("hello\nworld\n"))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello\nworld\n", string(got))
}

func TestNewReaderGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte("hello\nworld\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	r, err := NewReader(compression.Gzip, &buf)
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello\nworld\n", string(got))
}

func TestNewReaderZstd(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte("hello\nworld\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	r, err := NewReader(compression.Zstd, &buf)
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello\nworld\n", string(got))
}

func TestNewReaderGzipInvalidBodyErrors(t *testing.T) {
	_, err := NewReader(compression.Gzip, bytes.NewBufferString("not gzip"))
	require.Error(t, err)
}

func TestNewReaderAutoPanics(t *testing.T) {
	require.Panics(t, func() {
		_, _ = NewReader(compression.Auto, bytes.NewBufferString(""))
	})
}
