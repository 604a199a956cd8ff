// Package linesplit produces a lazy, non-restartable sequence of
// newline-delimited chunks from a byte stream, capturing any I/O error
// out-of-band so a consumer can drain everything already decoded before
// inspecting it.
package linesplit

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Splitter yields successive lines (the trailing '\n' excluded) from r.
// Call Next repeatedly until it returns false, then check Err.
type Splitter struct {
	reader *bufio.Reader
	err    error
	done   bool
}

// New wraps r in a Splitter. r should already be appropriately buffered
// upstream (see internal/decode); Splitter adds its own bufio.Reader
// only to get ReadBytes('\n') semantics.
func New(r io.Reader) *Splitter {
	return &Splitter{reader: bufio.NewReader(r)}
}

// Next returns the next line and true, or nil and false once the stream
// is exhausted (EOF) or a read error occurred. No partial in-flight
// buffer is ever returned for the chunk that was being read when an
// error occurred.
func (s *Splitter) Next() ([]byte, bool) {
	if s.done {
		return nil, false
	}

	chunk, err := s.reader.ReadBytes('\n')
	if err != nil {
		s.done = true
		if errors.Is(err, io.EOF) {
			if len(chunk) == 0 {
				return nil, false
			}
			// EOF with a trailing chunk lacking '\n' is still a complete line.
			return chunk, true
		}
		s.err = err
		return nil, false
	}

	return bytes.TrimSuffix(chunk, []byte("\n")), true
}

// Err returns the first I/O error the splitter encountered, or nil if
// the stream ended cleanly (EOF). Only meaningful after Next has
// returned false.
func (s *Splitter) Err() error {
	return s.err
}
