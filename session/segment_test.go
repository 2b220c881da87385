package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// marks builds start/end flags from a compact script: S start, E end,
// B both, . neither.
func marks(script string) ([]bool, []bool) {
	starts := make([]bool, len(script))
	ends := make([]bool, len(script))
	for i, c := range script {
		starts[i] = c == 'S' || c == 'B'
		ends[i] = c == 'E' || c == 'B'
	}
	return starts, ends
}

func TestSegment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		policy Policy
		labels []int
		spans  []Span
	}{
		{
			name:   "two sessions",
			script: "SESE",
			labels: []int{1, 1, 2, 2},
			spans:  []Span{{1, 0, 1}, {2, 2, 3}},
		},
		{
			name:   "end without start",
			script: "E",
			labels: []int{0},
		},
		{
			name:   "second start replaces pending start",
			script: "SSE",
			policy: PolicyRestartOnStart,
			labels: []int{0, 1, 1},
			spans:  []Span{{1, 1, 2}},
		},
		{
			name:   "second start ignored when keeping the first",
			script: "SSE",
			policy: PolicyKeepFirstStart,
			labels: []int{1, 1, 1},
			spans:  []Span{{1, 0, 2}},
		},
		{
			name:   "trailing start is dropped",
			script: "SE.S.",
			labels: []int{1, 1, 0, 0, 0},
			spans:  []Span{{1, 0, 1}},
		},
		{
			name:   "late ends stretch a complete pair",
			script: "SE.E.S.E",
			labels: []int{1, 1, 1, 1, 0, 2, 2, 2},
			spans:  []Span{{1, 0, 3}, {2, 5, 7}},
		},
		{
			name:   "end before first start is forgotten once a pair completes",
			script: "E.SE",
			labels: []int{0, 0, 1, 1},
			spans:  []Span{{1, 2, 3}},
		},
		{
			name:   "row that starts and ends",
			script: ".B.",
			labels: []int{0, 1, 0},
			spans:  []Span{{1, 1, 1}},
		},
		{
			name:   "start only",
			script: "..S..",
			labels: []int{0, 0, 0, 0, 0},
		},
		{
			name:   "empty",
			script: "",
			labels: []int{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			starts, ends := marks(tt.script)
			labels, spans := Segment(starts, ends, NewCounter(1), tt.policy)
			assert.Equal(t, tt.labels, labels)
			assert.Equal(t, tt.spans, spans)
		})
	}
}

func TestSegment_SharedCounter(t *testing.T) {
	t.Parallel()

	counter := NewCounter(1)
	s1, e1 := marks("SE")
	s2, e2 := marks(".SE.SE")

	_, spans1 := Segment(s1, e1, counter, DefaultPolicy)
	_, spans2 := Segment(s2, e2, counter, DefaultPolicy)

	require.Len(t, spans1, 1)
	require.Len(t, spans2, 2)
	assert.Equal(t, 1, spans1[0].Number)
	assert.Equal(t, 2, spans2[0].Number)
	assert.Equal(t, 3, spans2[1].Number)
	assert.Equal(t, 4, counter.Peek())
}

// TestSegment_Properties checks over many scripts that spans are disjoint,
// ascending, bounded by a start and an end, and that numbers are contiguous.
func TestSegment_Properties(t *testing.T) {
	t.Parallel()

	alphabet := []byte("SEB.")
	var scripts []string
	var gen func(prefix []byte)
	gen = func(prefix []byte) {
		scripts = append(scripts, string(prefix))
		if len(prefix) == 6 {
			return
		}
		for _, c := range alphabet {
			gen(append(append([]byte(nil), prefix...), c))
		}
	}
	gen(nil)

	for _, policy := range []Policy{PolicyRestartOnStart, PolicyKeepFirstStart} {
		for _, script := range scripts {
			starts, ends := marks(script)
			counter := NewCounter(10)
			labels, spans := Segment(starts, ends, counter, policy)

			prevEnd := -1
			for k, s := range spans {
				assert.Equal(t, 10+k, s.Number, script)
				assert.Greater(t, s.Start, prevEnd, script)
				assert.LessOrEqual(t, s.Start, s.End, script)
				assert.True(t, starts[s.Start], "span must open on a start: %s", script)
				assert.True(t, ends[s.End], "span must close on an end: %s", script)
				for i := s.Start; i <= s.End; i++ {
					assert.Equal(t, s.Number, labels[i], script)
				}
				prevEnd = s.End
			}
			assert.Equal(t, 10+len(spans), counter.Peek(), script)

			// nothing after the last end is labeled
			last := -1
			for i, e := range ends {
				if e {
					last = i
				}
			}
			for i := last + 1; i < len(labels); i++ {
				assert.Zero(t, labels[i], script)
			}
		}
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: PolicyRestartOnStart},
		{in: "restart-on-start", want: PolicyRestartOnStart},
		{in: "KEEP_FIRST_START", want: PolicyKeepFirstStart},
		{in: "first", want: PolicyKeepFirstStart},
		{in: "latest", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, must(ParsePolicy(got.String())))
		})
	}
}

func must(p Policy, err error) Policy {
	if err != nil {
		panic(err)
	}
	return p
}
