package model

import "time"

// Session is one finalized treatment session: a start row paired with the
// latest end row seen before the next start on the same machine.
type Session struct {
	Machine string
	// Number is the session number, always >= 1.
	Number int
	// StartIndex and EndIndex are inclusive row positions within the
	// machine's block of the event table.
	StartIndex int
	EndIndex   int
	Start      time.Time
	End        time.Time
}

// Contains reports whether t lies within [Start, End].
func (s Session) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// Duration returns the elapsed time from start to end.
func (s Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
