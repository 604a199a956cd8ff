package multiline

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSource is a lineSource backed by a fixed slice, used so tests
// don't depend on goroutine scheduling beyond what Aggregator itself
// introduces.
type fakeSource struct {
	mu    sync.Mutex
	lines [][]byte
	i     int
}

func newFakeSource(lines ...string) *fakeSource {
	fs := &fakeSource{}
	for _, l := range lines {
		fs.lines = append(fs.lines, []byte(l))
	}
	return fs
}

func (f *fakeSource) Next() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.i >= len(f.lines) {
		return nil, false
	}
	line := f.lines[f.i]
	f.i++
	return line, true
}

func drainAll(t *testing.T, a *Aggregator) []string {
	t.Helper()
	var out []string
	for {
		line, ok := a.Next()
		if !ok {
			return out
		}
		out = append(out, string(line))
	}
}

func TestAggregatorContinueThrough(t *testing.T) {
	cfg := Config{
		StartPattern:     regexp.MustCompile("^abc$"),
		ConditionPattern: regexp.MustCompile("^def$"),
		Mode:             ContinueThrough,
		Timeout:          time.Second,
	}
	a := New(cfg, newFakeSource("abc", "def", "geh"))
	defer a.Close()

	out := drainAll(t, a)
	require.Equal(t, []string{"abc\ndef\ngeh"}, out)
}

func TestAggregatorContinueThroughNewStartClosesPrevious(t *testing.T) {
	cfg := Config{
		StartPattern:     regexp.MustCompile("^START"),
		ConditionPattern: regexp.MustCompile("^  "),
		Mode:             ContinueThrough,
		Timeout:          time.Second,
	}
	a := New(cfg, newFakeSource("START one", "  cont", "START two"))
	defer a.Close()

	out := drainAll(t, a)
	require.Equal(t, []string{"START one\n  cont", "START two"}, out)
}

func TestAggregatorContinuePastEmitsRightAfterCondition(t *testing.T) {
	cfg := Config{
		StartPattern:     regexp.MustCompile("^START"),
		ConditionPattern: regexp.MustCompile("^END"),
		Mode:             ContinuePast,
		Timeout:          time.Second,
	}
	a := New(cfg, newFakeSource("START", "mid", "END", "START2", "END2"))
	defer a.Close()

	out := drainAll(t, a)
	require.Equal(t, []string{"START\nmid\nEND", "START2\nEND2"}, out)
}

func TestAggregatorHaltBeforeExcludesAndPushesBack(t *testing.T) {
	cfg := Config{
		StartPattern:     regexp.MustCompile("^START"),
		ConditionPattern: regexp.MustCompile("^STOP"),
		Mode:             HaltBefore,
		Timeout:          time.Second,
	}
	a := New(cfg, newFakeSource("START", "mid", "STOP", "trailer"))
	defer a.Close()

	out := drainAll(t, a)
	// STOP is excluded from the aggregate and re-dispatched as a fresh
	// line; it doesn't match StartPattern so it passes through standalone.
	require.Equal(t, []string{"START\nmid", "STOP", "trailer"}, out)
}

func TestAggregatorHaltWithIncludesConditionLine(t *testing.T) {
	cfg := Config{
		StartPattern:     regexp.MustCompile("^START"),
		ConditionPattern: regexp.MustCompile("^STOP"),
		Mode:             HaltWith,
		Timeout:          time.Second,
	}
	a := New(cfg, newFakeSource("START", "mid", "STOP"))
	defer a.Close()

	out := drainAll(t, a)
	require.Equal(t, []string{"START\nmid\nSTOP"}, out)
}

func TestAggregatorPassesThroughLinesBeforeFirstStartMatch(t *testing.T) {
	cfg := Config{
		StartPattern:     regexp.MustCompile("^START"),
		ConditionPattern: regexp.MustCompile("^cont"),
		Mode:             ContinueThrough,
		Timeout:          time.Second,
	}
	a := New(cfg, newFakeSource("preamble1", "preamble2", "START", "cont"))
	defer a.Close()

	out := drainAll(t, a)
	require.Equal(t, []string{"preamble1", "preamble2", "START\ncont"}, out)
}

func TestAggregatorFlushesOnTimeout(t *testing.T) {
	cfg := Config{
		StartPattern:     regexp.MustCompile("^START"),
		ConditionPattern: regexp.MustCompile("^cont"),
		Mode:             ContinueThrough,
		Timeout:          20 * time.Millisecond,
	}

	// A source that yields "START" then blocks until released, modeling
	// a line arriving well within the timeout but nothing else following
	// before it expires.
	lines := make(chan []byte, 1)
	lines <- []byte("START")
	release := make(chan struct{})
	src := blockingSource{lines: lines, release: release}

	a := New(cfg, src)
	defer a.Close()
	// Unblocks the feeder before the deferred Close joins it.
	defer close(release)

	out, ok := a.Next()
	require.True(t, ok)
	require.Equal(t, "START", string(out))
}

type blockingSource struct {
	lines   chan []byte
	release chan struct{}
}

// Next blocks once lines is drained until release is closed, so the
// timeout path - not the stream-exhausted path - is what flushes the
// pending aggregate.
func (b blockingSource) Next() ([]byte, bool) {
	select {
	case line := <-b.lines:
		return line, true
	case <-b.release:
		return nil, false
	}
}

// gateSource blocks in Next until release is closed, then reports
// exhaustion, modeling a feeder stuck mid-read on a slow body.
type gateSource struct {
	release chan struct{}
}

func (g *gateSource) Next() ([]byte, bool) {
	<-g.release
	return nil, false
}

func TestAggregatorCloseWaitsForFeeder(t *testing.T) {
	release := make(chan struct{})
	a := New(Config{
		StartPattern:     regexp.MustCompile("^START"),
		ConditionPattern: regexp.MustCompile("^cont"),
		Mode:             ContinueThrough,
		Timeout:          time.Second,
	}, &gateSource{release: release})

	closed := make(chan struct{})
	go func() {
		a.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while the feeder was still inside Next")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the source unblocked")
	}
}

func TestAggregatorEmptySourceYieldsNothing(t *testing.T) {
	a := New(Config{
		StartPattern:     regexp.MustCompile("^START"),
		ConditionPattern: regexp.MustCompile("^cont"),
		Mode:             ContinueThrough,
		Timeout:          time.Second,
	}, newFakeSource())
	defer a.Close()

	_, ok := a.Next()
	require.False(t, ok)
}
