// Package waveform converts EDF waveform recordings into per-patient JSON
// documents holding one-second time series for every numeric signal.
package waveform

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// Extension is the recording file suffix, matched case-insensitively.
const Extension = ".edf"

// ErrFilename is returned for a recording name not shaped like
// <icu>_<patient>_<yymmdd>_<hhmmss>.edf.
var ErrFilename = errors.New("unrecognized recording file name")

// File is a recording identified by its file name.
type File struct {
	Name      string
	ICU       string
	PatientID string
	Date      string
	Start     time.Time
}

// Key groups the recordings of one patient on one day.
func (f File) Key() string {
	return f.ICU + "_" + f.PatientID + "_" + f.Date
}

// ParseFilename splits a recording name into its identifying parts.
func ParseFilename(name string) (File, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 4 {
		return File{}, fmt.Errorf("%w: %s", ErrFilename, name)
	}
	clock, _, _ := strings.Cut(parts[3], ".")
	start, err := time.ParseInLocation("060102_150405", parts[2]+"_"+clock, time.UTC)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s", ErrFilename, name)
	}
	return File{
		Name:      name,
		ICU:       parts[0],
		PatientID: parts[1],
		Date:      parts[2],
		Start:     start,
	}, nil
}

// Point is one sample of a one-second series.
type Point struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Track is the series of one signal across a patient's recordings.
type Track struct {
	Data  []Point `json:"data"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// Patient is the JSON document written per patient group.
type Patient struct {
	PatientID string            `json:"patient_id"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	FileCount int               `json:"file_count"`
	Tracks    map[string]*Track `json:"tracks"`
}

// Group is the time-ordered recordings of one patient key.
type Group struct {
	Key   string
	Files []File
}

// Extractor reads recordings from a filesystem.
type Extractor struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewExtractor creates an Extractor over fs; nil means the OS filesystem.
func NewExtractor(fs afero.Fs, logger *zap.Logger) *Extractor {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{fs: fs, logger: logger}
}

// Discover lists the recordings directly inside dir grouped by patient key.
// Groups are sorted by key and files by start time.
func (e *Extractor) Discover(dir string) ([]Group, error) {
	infos, err := afero.ReadDir(e.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []File
	for _, info := range infos {
		if info.IsDir() || !strings.EqualFold(filepath.Ext(info.Name()), Extension) {
			continue
		}
		f, err := ParseFilename(info.Name())
		if err != nil {
			e.logger.Debug("recording name not recognized", zap.String("file", info.Name()))
			continue
		}
		files = append(files, f)
	}

	byKey := lo.GroupBy(files, func(f File) string { return f.Key() })
	keys := lo.Keys(byKey)
	slices.Sort(keys)

	groups := make([]Group, len(keys))
	for i, key := range keys {
		members := byKey[key]
		slices.SortStableFunc(members, func(a, b File) int { return a.Start.Compare(b.Start) })
		groups[i] = Group{Key: key, Files: members}
	}
	return groups, nil
}

// Build reads every file of g and assembles the patient document. Files that
// cannot be decoded are logged and contribute no samples.
func (e *Extractor) Build(ctx context.Context, dir string, g Group) (*Patient, error) {
	p := &Patient{
		PatientID: g.Key,
		FileCount: len(g.Files),
		Tracks:    make(map[string]*Track),
	}
	if len(g.Files) == 0 {
		return p, nil
	}
	p.StartTime = g.Files[0].Start.Format(model.TimeLayout)
	p.EndTime = g.Files[len(g.Files)-1].Start.Format(model.TimeLayout)

	for _, f := range g.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := e.read(filepath.Join(dir, f.Name))
		if err != nil {
			e.logger.Warn("recording skipped", zap.String("group", g.Key), zap.String("file", f.Name), zap.Error(err))
			continue
		}
		for i, sig := range rec.Header.Signals {
			if sig.IsAnnotation() {
				continue
			}
			series, err := rec.PerSecond(i)
			if err != nil {
				return nil, err
			}
			appendSeries(p.Tracks, sig.Label, f.Start, series)
		}
	}

	for _, track := range p.Tracks {
		track.Count = len(track.Data)
		track.Mean, track.Std = meanStd(track.Data)
	}
	return p, nil
}

func (e *Extractor) read(name string) (_ *Recording, err error) {
	f, err := e.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return ReadEDF(f)
}

// appendSeries adds the non-NaN seconds of series to the named track.
// A signal with no values never creates a track.
func appendSeries(tracks map[string]*Track, label string, start time.Time, series []float64) {
	for s, v := range series {
		if math.IsNaN(v) {
			continue
		}
		track, ok := tracks[label]
		if !ok {
			track = &Track{}
			tracks[label] = track
		}
		track.Data = append(track.Data, Point{
			Timestamp: start.Add(time.Duration(s) * time.Second).Format(model.TimeLayout),
			Value:     v,
		})
	}
}

// meanStd returns the mean and population standard deviation.
func meanStd(points []Point) (float64, float64) {
	if len(points) == 0 {
		return 0, 0
	}
	n := float64(len(points))
	mean := lo.SumBy(points, func(p Point) float64 { return p.Value }) / n
	variance := lo.SumBy(points, func(p Point) float64 { return (p.Value - mean) * (p.Value - mean) }) / n
	return mean, math.Sqrt(variance)
}

// Write stores p as outDir/<patient_id>.json.
func (e *Extractor) Write(outDir string, p *Patient) (_ string, err error) {
	if err := e.fs.MkdirAll(outDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	name := filepath.Join(outDir, p.PatientID+".json")
	f, err := e.fs.Create(name)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", p.PatientID, err)
	}
	return name, nil
}

// Result summarizes one written patient document.
type Result struct {
	PatientID string
	Path      string
	Files     int
	Tracks    map[string]int
}

// Extract converts every patient group in dir and writes one JSON document per
// group into outDir.
func (e *Extractor) Extract(ctx context.Context, dir, outDir string) ([]Result, error) {
	groups, err := e.Discover(dir)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(groups))
	for _, g := range groups {
		p, err := e.Build(ctx, dir, g)
		if err != nil {
			return results, err
		}
		written, err := e.Write(outDir, p)
		if err != nil {
			return results, err
		}
		r := Result{
			PatientID: p.PatientID,
			Path:      written,
			Files:     p.FileCount,
			Tracks:    lo.MapValues(p.Tracks, func(t *Track, _ string) int { return t.Count }),
		}
		e.logger.Info("patient written",
			zap.String("group", g.Key),
			zap.Int("files", r.Files),
			zap.Int("tracks", len(r.Tracks)),
		)
		results = append(results, r)
	}
	return results, nil
}
