// Package session finds treatment sessions in machine event tables and
// renumbers them across groups.
package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned when a policy name is not recognized.
var ErrUnknownPolicy = errors.New("unknown session policy")

// Policy decides what a start row does while a session is already open.
type Policy int

const (
	// PolicyRestartOnStart moves the pending start to the latest start seen
	// before the end, discarding the earlier start.
	PolicyRestartOnStart Policy = iota
	// PolicyKeepFirstStart ignores starts while waiting for an end, so the
	// earliest start opens the session. Legacy exports were produced this way.
	PolicyKeepFirstStart
)

// DefaultPolicy is the policy used when none is configured.
const DefaultPolicy = PolicyRestartOnStart

// String returns the string representation of Policy
func (p Policy) String() string {
	switch p {
	case PolicyKeepFirstStart:
		return "keep-first-start"
	default:
		return "restart-on-start"
	}
}

// ParsePolicy converts a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultPolicy, nil
	case "restart-on-start", "restart_on_start", "restart":
		return PolicyRestartOnStart, nil
	case "keep-first-start", "keep_first_start", "first":
		return PolicyKeepFirstStart, nil
	default:
		return DefaultPolicy, fmt.Errorf("%w: %s", ErrUnknownPolicy, s)
	}
}

// Counter hands out session numbers. One counter is shared by every machine
// of a group so numbers stay unique within the group.
type Counter struct {
	next int
}

// NewCounter creates a counter whose first number is start.
func NewCounter(start int) *Counter {
	return &Counter{next: start}
}

// Next returns the next number and advances the counter.
func (c *Counter) Next() int {
	n := c.next
	c.next++
	return n
}

// Peek returns the number Next would return.
func (c *Counter) Peek() int {
	return c.next
}

// Span is a finalized session over block positions [Start, End].
type Span struct {
	Number int
	Start  int
	End    int
}

type state int

const (
	seekingStart state = iota
	seekingEnd
)

// pending is the start/end pair under construction.
type pending struct {
	start    int
	end      int
	complete bool
}

// Segment labels the rows of one machine block with session numbers.
//
// While seeking a start, a start row finalizes any complete pending pair and
// becomes the new pending start; the same row is then examined again while
// seeking an end, so a row that both starts and ends forms a one-row
// session. An end row seen while seeking a start moves the pending end,
// stretching a complete pair to the last end before the next start. While
// seeking an end, the first end completes the pair; a start seen meanwhile
// replaces the pending start under PolicyRestartOnStart and is ignored under
// PolicyKeepFirstStart. At the end of the block a complete pair is finalized
// and an unmatched start is dropped.
//
// Unlabeled rows are 0. Numbers are drawn from counter in order.
func Segment(starts, ends []bool, counter *Counter, policy Policy) ([]int, []Span) {
	n := min(len(starts), len(ends))
	labels := make([]int, n)
	var spans []Span

	p := pending{start: -1, end: -1}
	finalize := func() {
		num := counter.Next()
		for k := p.start; k <= p.end; k++ {
			labels[k] = num
		}
		spans = append(spans, Span{Number: num, Start: p.start, End: p.end})
		p.complete = false
	}

	st := seekingStart
	for pos := 0; pos < n; {
		switch st {
		case seekingStart:
			if starts[pos] {
				if p.complete {
					finalize()
				}
				p.start = pos
				st = seekingEnd
				continue
			}
			if ends[pos] {
				p.end = pos
			}
			pos++

		case seekingEnd:
			if policy == PolicyRestartOnStart && starts[pos] && pos != p.start {
				p.start = pos
			}
			if ends[pos] {
				p.end = pos
				p.complete = true
				st = seekingStart
			}
			pos++
		}
	}
	if p.complete {
		finalize()
	}
	return labels, spans
}
