package cdm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SNUH-BMI/CDM/archive"
	"github.com/SNUH-BMI/CDM/event"
	"github.com/SNUH-BMI/CDM/tabular"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{name: "nil", err: nil, want: ""},
		{name: "time parse", err: fmt.Errorf("x: %w", tabular.ErrTimeParse), want: ClassTimeParse},
		{name: "shape", err: tabular.ErrShape, want: ClassShape},
		{name: "not rows", err: tabular.ErrNotRows, want: ClassShape},
		{name: "missing columns", err: event.ErrMissingColumns, want: ClassShape},
		{name: "decode step", err: archive.ErrStep, want: ClassDecodeStep},
		{name: "output path", err: ErrOutputPath, want: ClassFileAccess},
		{name: "explicit", err: fmt.Errorf("wrapped: %w", &ClassifiedError{Class: ClassMalformedMember, Err: errors.New("bad")}), want: ClassMalformedMember},
		{name: "other", err: errors.New("boom"), want: ClassUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorContext(t *testing.T) {
	t.Parallel()

	base := errors.New("disk full")
	err := NewErrorContext("save", "/out").WithGroup("M1_2023").WithDetails("events").Error(base)
	assert.EqualError(t, err, "cdm: save failed, file: /out, group: M1_2023, details: events: disk full")
	assert.ErrorIs(t, err, base)

	assert.EqualError(t, NewErrorContext("discover", "").Error(nil), "cdm: discover failed")
}

func TestClassifiedError(t *testing.T) {
	t.Parallel()

	base := errors.New("bad member")
	err := &ClassifiedError{Class: ClassMalformedMember, Err: base}
	assert.EqualError(t, err, "malformed_member: bad member")
	assert.ErrorIs(t, err, base)
}
