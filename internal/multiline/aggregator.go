// Package multiline merges consecutive lines into logical records
// according to a start/condition pattern pair, a join mode, and a flush
// timeout.
package multiline

import (
	"regexp"
	"time"
)

// Mode selects how a line matching ConditionPattern affects the
// currently open aggregate.
type Mode int

const (
	// ContinueThrough appends lines matching ConditionPattern; a line
	// that matches neither the condition nor StartPattern is folded
	// into the open aggregate by elimination (it cannot stand alone and
	// nothing else claims it). A line that matches StartPattern closes
	// the open aggregate and begins a new one.
	ContinueThrough Mode = iota
	// ContinuePast appends every line unconditionally until one
	// matches ConditionPattern; that line is appended too, then the
	// aggregate is emitted.
	ContinuePast
	// HaltBefore appends every line unconditionally until one matches
	// ConditionPattern; that line is excluded, the aggregate is
	// emitted, and the line is re-evaluated as if freshly received
	// (starting a new aggregate if it matches StartPattern, otherwise
	// passed through standalone).
	HaltBefore
	// HaltWith appends every line unconditionally until one matches
	// ConditionPattern; that line is appended too, then the aggregate
	// is emitted.
	HaltWith
)

// Config configures the aggregator.
type Config struct {
	StartPattern     *regexp.Regexp
	ConditionPattern *regexp.Regexp
	Mode             Mode
	Timeout          time.Duration
}

// lineSource is satisfied by *linesplit.Splitter.
type lineSource interface {
	Next() ([]byte, bool)
}

// Aggregator wraps a lineSource and emits logical (possibly multi-line)
// records. Lines before any StartPattern match pass through unchanged
// as single-line records.
type Aggregator struct {
	cfg Config

	lines      chan []byte
	done       chan struct{}
	feederDone chan struct{}

	active   bool
	pending  []byte
	pushback []byte
	haveBack bool
}

// New starts feeding lines from src in a background goroutine and
// returns an Aggregator ready to be drained with Next.
func New(cfg Config, src lineSource) *Aggregator {
	a := &Aggregator{
		cfg:        cfg,
		lines:      make(chan []byte),
		done:       make(chan struct{}),
		feederDone: make(chan struct{}),
	}
	go a.feed(src)
	return a
}

func (a *Aggregator) feed(src lineSource) {
	defer close(a.feederDone)
	defer close(a.lines)
	for {
		line, ok := src.Next()
		if !ok {
			return
		}
		select {
		case a.lines <- line:
		case <-a.done:
			return
		}
	}
}

// Close stops the feeder goroutine and waits for it to return, so the
// underlying line source is no longer being read once Close returns.
// A feeder mid-Next finishes that read first. Safe to call multiple
// times.
func (a *Aggregator) Close() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
	<-a.feederDone
}

// Next returns the next logical record, or nil, false once the
// underlying line source is exhausted and nothing remains pending.
func (a *Aggregator) Next() ([]byte, bool) {
	for {
		if a.haveBack {
			line := a.pushback
			a.pushback = nil
			a.haveBack = false
			if out, emitted := a.dispatchFresh(line); emitted {
				return out, true
			}
			continue
		}

		if !a.active {
			line, ok := <-a.lines
			if !ok {
				return nil, false
			}
			if out, emitted := a.dispatchFresh(line); emitted {
				return out, true
			}
			continue
		}

		var timerC <-chan time.Time
		var timer *time.Timer
		if a.cfg.Timeout > 0 {
			timer = time.NewTimer(a.cfg.Timeout)
			timerC = timer.C
		}

		select {
		case line, ok := <-a.lines:
			if timer != nil {
				timer.Stop()
			}
			if !ok {
				out := a.pending
				a.pending = nil
				a.active = false
				return out, true
			}
			if out, emitted := a.consume(line); emitted {
				return out, true
			}
		case <-timerC:
			out := a.pending
			a.pending = nil
			a.active = false
			return out, true
		}
	}
}

// dispatchFresh handles a line with no aggregate currently open: it
// either starts a new aggregate (StartPattern match) or passes the
// line through standalone.
func (a *Aggregator) dispatchFresh(line []byte) ([]byte, bool) {
	if a.cfg.StartPattern.Match(line) {
		a.pending = append([]byte(nil), line...)
		a.active = true
		return nil, false
	}
	return line, true
}

// consume applies the mode-specific rule for one line while an
// aggregate is open. It returns (record, true) if a record was just
// closed out and should be returned to the caller, leaving a.pending
// (and possibly a.pushback) set up for the next call.
func (a *Aggregator) consume(line []byte) ([]byte, bool) {
	matchesCondition := a.cfg.ConditionPattern.Match(line)

	switch a.cfg.Mode {
	case ContinueThrough:
		if matchesCondition {
			a.appendLine(line)
			return nil, false
		}
		if a.cfg.StartPattern.Match(line) {
			out := a.pending
			a.pending = append([]byte(nil), line...)
			a.active = true
			return out, true
		}
		a.appendLine(line)
		return nil, false

	case ContinuePast:
		a.appendLine(line)
		if matchesCondition {
			out := a.pending
			a.pending = nil
			a.active = false
			return out, true
		}
		return nil, false

	case HaltBefore:
		if matchesCondition {
			out := a.pending
			a.pending = nil
			a.active = false
			a.pushback = line
			a.haveBack = true
			return out, true
		}
		a.appendLine(line)
		return nil, false

	case HaltWith:
		a.appendLine(line)
		if matchesCondition {
			out := a.pending
			a.pending = nil
			a.active = false
			return out, true
		}
		return nil, false

	default:
		a.appendLine(line)
		return nil, false
	}
}

func (a *Aggregator) appendLine(line []byte) {
	if a.pending == nil {
		a.pending = append([]byte(nil), line...)
		return
	}
	a.pending = append(a.pending, '\n')
	a.pending = append(a.pending, line...)
}
