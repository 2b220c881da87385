package waveform

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		wantKey string
		want    time.Time
		wantErr bool
	}{
		{
			name:    "standard",
			file:    "MICU_123_240305_075359.edf",
			wantKey: "MICU_123_240305",
			want:    time.Date(2024, 3, 5, 7, 53, 59, 0, time.UTC),
		},
		{
			name:    "extra parts",
			file:    "MICU_123_240305_075359_extra.edf",
			wantKey: "MICU_123_240305",
			want:    time.Date(2024, 3, 5, 7, 53, 59, 0, time.UTC),
		},
		{name: "too few parts", file: "MICU_123.edf", wantErr: true},
		{name: "bad clock", file: "MICU_123_240305_99.edf", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := ParseFilename(tt.file)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrFilename)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, f.Key())
			assert.Equal(t, tt.want, f.Start)
		})
	}
}

func TestMeanStd(t *testing.T) {
	t.Parallel()

	mean, std := meanStd([]Point{{Value: 2}, {Value: 4}, {Value: 4}, {Value: 4}, {Value: 5}, {Value: 5}, {Value: 7}, {Value: 9}})
	assert.InDelta(t, 5, mean, 1e-9)
	assert.InDelta(t, 2, std, 1e-9)

	mean, std = meanStd(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	write := func(name string, data []byte) {
		require.NoError(t, afero.WriteFile(fs, "/in/"+name, data, 0o600))
	}

	write("MICU_1_240305_080000.edf", encodeEDF(t, "05.03.2408.00.00", 2, "1",
		testSignal{label: "HR", perRec: 1, samples: []int16{80, 82}},
		testSignal{label: AnnotationLabel, perRec: 1, samples: []int16{0, 0}},
	))
	write("MICU_1_240305_070000.edf", encodeEDF(t, "05.03.2407.00.00", 1, "1",
		testSignal{label: "HR", perRec: 2, samples: []int16{70, 72}},
		testSignal{label: "ART", perRec: 1, samples: []int16{90}},
	))
	write("MICU_1_240305_090000.edf", []byte("broken"))
	write("MICU_2_240305_070000.EDF", encodeEDF(t, "05.03.2407.00.00", 1, "1",
		testSignal{label: "SPO2", perRec: 1, samples: []int16{98}},
	))
	write("notes.txt", []byte("x"))
	write("unnamed.edf", []byte("x"))

	e := NewExtractor(fs, nil)
	results, err := e.Extract(context.Background(), "/in", "/out")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "MICU_1_240305", results[0].PatientID)
	assert.Equal(t, 3, results[0].Files)
	assert.Equal(t, map[string]int{"HR": 3, "ART": 1}, results[0].Tracks)
	assert.Equal(t, "MICU_2_240305", results[1].PatientID)

	data, err := afero.ReadFile(fs, "/out/MICU_1_240305.json")
	require.NoError(t, err)

	var p Patient
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, "2024-03-05 07:00:00", p.StartTime)
	assert.Equal(t, "2024-03-05 09:00:00", p.EndTime)
	assert.Equal(t, 3, p.FileCount)

	hr := p.Tracks["HR"]
	require.NotNil(t, hr)
	assert.Equal(t, []Point{
		{Timestamp: "2024-03-05 07:00:00", Value: 71},
		{Timestamp: "2024-03-05 08:00:00", Value: 80},
		{Timestamp: "2024-03-05 08:00:01", Value: 82},
	}, hr.Data)
	assert.InDelta(t, 233.0/3, hr.Mean, 1e-9)
	assert.NotContains(t, p.Tracks, AnnotationLabel)
}

func TestExtractor_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor(afero.NewMemMapFs(), nil).Discover("/missing")
	require.Error(t, err)
}
