// Package compression detects and represents the codec an S3 object is
// encoded with.
package compression

import "path/filepath"

// Kind is one of Auto, None, Gzip, Zstd. Auto is a configuration-time
// marker only; it never appears at decode time.
type Kind int

const (
	Auto Kind = iota
	None
	Gzip
	Zstd
)

func (k Kind) String() string {
	switch k {
	case Auto:
		return "auto"
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

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "auto":
		return Auto, true
	case "none":
		return None, true
	case "gzip":
		return Gzip, true
	case "zstd":
		return Zstd, true
	default:
		return Auto, false
	}
}

// Detect picks a codec from, in priority order: Content-Encoding,
// Content-Type, then the key's filename extension. The second return
// value is false if none of the three signals matched.
func Detect(key string, contentEncoding, contentType *string) (Kind, bool) {
	if contentEncoding != nil {
		if k, ok := fromContentEncoding(*contentEncoding); ok {
			return k, true
		}
	}
	if contentType != nil {
		if k, ok := fromContentType(*contentType); ok {
			return k, true
		}
	}
	return fromExtension(key)
}

func fromContentEncoding(ce string) (Kind, bool) {
	switch ce {
	case "gzip":
		return Gzip, true
	case "zstd":
		return Zstd, true
	default:
		return None, false
	}
}

func fromContentType(ct string) (Kind, bool) {
	switch ct {
	case "application/gzip", "application/x-gzip":
		return Gzip, true
	case "application/zstd":
		return Zstd, true
	default:
		return None, false
	}
}

func fromExtension(key string) (Kind, bool) {
	switch filepath.Ext(key) {
	case ".gz":
		return Gzip, true
	case ".zst":
		return Zstd, true
	default:
		return None, false
	}
}

// Resolve returns the concrete codec to decode an object with: the
// configured kind if it isn't Auto, otherwise the result of Detect
// falling back to None.
func Resolve(configured Kind, key string, contentEncoding, contentType *string) Kind {
	if configured != Auto {
		return configured
	}
	if k, ok := Detect(key, contentEncoding, contentType); ok {
		return k
	}
	return None
}
