package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SNUH-BMI/CDM/domain/model"
)

func TestReconstruct(t *testing.T) {
	t.Parallel()

	layout := Layout{SkipRows: 2, HeaderRow: 1, DropLeadingColumn: true}

	tests := []struct {
		name       string
		rows       [][]string
		layout     Layout
		wantHeader model.Header
		wantRows   [][]string
		nullAt     [][2]int
		wantErr    error
	}{
		{
			name:       "exact header",
			rows:       [][]string{{"preamble"}, {"No", "Time", "Type"}, {"1", "t1", "a"}, {"2", "t2", "b"}},
			layout:     layout,
			wantHeader: model.Header{"Time", "Type"},
			wantRows:   [][]string{{"t1", "a"}, {"t2", "b"}},
		},
		{
			name:       "header one short gets synthetic column",
			rows:       [][]string{{"x"}, {"No", "Time"}, {"1", "t1", ""}},
			layout:     layout,
			wantHeader: model.Header{"Time", "None"},
			wantRows:   [][]string{{"t1", ""}},
		},
		{
			name:       "short rows are padded with nulls",
			rows:       [][]string{{"x"}, {"No", "Time", "Type"}, {"1", "t1", "a"}, {""}},
			layout:     layout,
			wantHeader: model.Header{"Time", "Type"},
			wantRows:   [][]string{{"t1", "a"}, {"", ""}},
			nullAt:     [][2]int{{1, 0}, {1, 1}},
		},
		{
			name:       "leading column kept",
			rows:       [][]string{{"a", "b"}, {"1", "2"}},
			layout:     Layout{SkipRows: 1, HeaderRow: 0},
			wantHeader: model.Header{"a", "b"},
			wantRows:   [][]string{{"1", "2"}},
		},
		{
			name:       "no data rows",
			rows:       [][]string{{"x"}, {"No", "Time"}},
			layout:     layout,
			wantHeader: model.Header{"Time"},
			wantRows:   [][]string{},
		},
		{
			name:    "header two short",
			rows:    [][]string{{"x"}, {"No"}, {"1", "2", "3"}},
			layout:  layout,
			wantErr: ErrShape,
		},
		{
			name:    "header longer than data",
			rows:    [][]string{{"x"}, {"No", "Time", "Type"}, {"1", "2"}},
			layout:  layout,
			wantErr: ErrShape,
		},
		{
			name:    "missing header row",
			rows:    [][]string{{"x"}},
			layout:  layout,
			wantErr: ErrShape,
		},
		{
			name:    "duplicate names",
			rows:    [][]string{{"x"}, {"No", "Time", "Time"}, {"1", "2", "3"}},
			layout:  layout,
			wantErr: model.ErrDuplicateColumnName,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			table, err := Reconstruct("t", model.NewRowsDocument(tt.rows), tt.layout)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, table.Header())
			require.Equal(t, len(tt.wantRows), table.Len())
			for i, want := range tt.wantRows {
				assert.Equal(t, want, table.Records()[i].Strings())
			}
			for _, pos := range tt.nullAt {
				assert.True(t, table.Records()[pos[0]][pos[1]].IsNull(), "cell %v", pos)
			}
		})
	}
}

func TestReconstruct_RequiresRows(t *testing.T) {
	t.Parallel()

	_, err := Reconstruct("lines", model.NewLinesDocument([]string{"a"}), EventLayout)
	assert.ErrorIs(t, err, ErrNotRows)
}
