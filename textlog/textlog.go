// Package textlog turns per-device plain-text parameter dumps into one table,
// one row per dump file.
package textlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// Fixed output columns.
const (
	ColumnDeviceID       = "device_id"
	ColumnFilename       = "filename"
	ColumnEQTime         = "EQTIME"
	ColumnOperatingPhase = "Operating Phase"
	ColumnRemainingTime  = "Remaining Time"
)

// DumpExtension is the suffix of the dump files inside a device folder.
const DumpExtension = ".txt"

// baseColumns lead every output table in this order when present.
var baseColumns = []string{ColumnDeviceID, ColumnFilename, ColumnEQTime, ColumnOperatingPhase, ColumnRemainingTime}

var (
	// ErrNoTimestamp is returned when a file name carries no YYYYMMDDHHMMSS prefix.
	ErrNoTimestamp = errors.New("file name has no timestamp prefix")
	// ErrEmptyDump is returned for a dump without a first line.
	ErrEmptyDump = errors.New("dump is empty")
	// ErrInvalidEncoding is returned for a dump that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("dump is not valid UTF-8")
)

// Entry is one parsed dump file.
type Entry struct {
	DeviceID string
	Filename string
	EQTime   time.Time
	// Fields maps column name to value in the order first seen.
	Fields map[string]model.Value
	order  []string
}

// Columns returns the field names in the order they appeared in the dump.
func (e *Entry) Columns() []string {
	return e.order
}

func (e *Entry) set(column string, v model.Value) {
	if _, ok := e.Fields[column]; !ok {
		e.order = append(e.order, column)
	}
	e.Fields[column] = v
}

// FilenameTime parses the YYYYMMDDHHMMSS prefix before the first underscore,
// as in 20240305075359_20240305075239167.txt.
func FilenameTime(filename string) (time.Time, error) {
	prefix, _, _ := strings.Cut(filename, "_")
	if len(prefix) != 14 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNoTimestamp, filename)
	}
	t, err := time.ParseInLocation("20060102150405", prefix, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNoTimestamp, filename)
	}
	return t, nil
}

func isHangul(r rune) bool {
	return (r >= '가' && r <= '힣') || (r >= 'ㄱ' && r <= 'ㅎ')
}

func hangulIndex(tokens []string) int {
	return slices.IndexFunc(tokens, func(tok string) bool {
		return strings.ContainsFunc(tok, isHangul)
	})
}

// SplitLine extracts a column name and value from one dump line. The column
// name is every token before the first Hangul token, or every token but the
// last when there is none; the value is the last token. Operating Phase
// instead keeps every token after the Hangul token.
func SplitLine(line string) (column, value string, ok bool) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return "", "", false
	}

	idx := hangulIndex(tokens)
	if idx != -1 {
		column = strings.Join(tokens[:idx], " ")
	} else {
		column = strings.Join(tokens[:len(tokens)-1], " ")
	}
	value = tokens[len(tokens)-1]

	if column == ColumnOperatingPhase && idx != -1 && idx < len(tokens)-1 {
		value = strings.Join(tokens[idx+1:], " ")
	}
	if column == "" || value == "" {
		return "", "", false
	}
	return column, value, true
}

// normalizeValue renders numeric-looking values as numbers.
func normalizeValue(s string) model.Value {
	digits := strings.NewReplacer(".", "", "-", "").Replace(s)
	if digits == "" || strings.ContainsFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) {
		return model.NewValue(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return model.NewValue(s)
	}
	return model.NewValue(strconv.FormatFloat(f, 'f', -1, 64))
}

// Parse reads one dump. The first line is a banner and is not parsed.
func Parse(deviceID, filename string, r io.Reader) (*Entry, error) {
	eqtime, err := FilenameTime(filename)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		DeviceID: deviceID,
		Filename: filename,
		EQTime:   eqtime,
		Fields:   make(map[string]model.Value),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, filename)
		}
		if first {
			first = false
			if len(strings.Fields(line)) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrEmptyDump, filename)
			}
			continue
		}
		column, value, ok := SplitLine(line)
		if !ok {
			continue
		}
		entry.set(column, normalizeValue(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if first {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDump, filename)
	}
	return entry, nil
}

// Extractor walks device folders below a root directory.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract parses every dump in every direct subdirectory of root, the
// subdirectory name being the device id. Unreadable or unparsable files are
// logged and skipped.
func (e *Extractor) Extract(ctx context.Context, root string) ([]*Entry, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read input root: %w", err)
	}

	var entries []*Entry
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		deviceID := dir.Name()
		files, err := os.ReadDir(filepath.Join(root, deviceID))
		if err != nil {
			e.logger.Warn("device folder not readable", zap.String("device", deviceID), zap.Error(err))
			continue
		}
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if file.IsDir() || !strings.HasSuffix(file.Name(), DumpExtension) {
				continue
			}
			entry, err := e.parseFile(filepath.Join(root, deviceID, file.Name()), deviceID)
			if err != nil {
				e.logger.Warn("dump skipped",
					zap.String("device", deviceID),
					zap.String("file", file.Name()),
					zap.Error(err),
				)
				continue
			}
			entries = append(entries, entry)
		}
	}
	e.logger.Info("dumps extracted", zap.Int("files", len(entries)))
	return entries, nil
}

func (e *Extractor) parseFile(path, deviceID string) (_ *Entry, err error) {
	f, err := os.Open(path) //nolint:gosec // path comes from walking the configured input root
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return Parse(deviceID, filepath.Base(path), f)
}

// Columns returns the output column order for entries: the fixed leading
// columns that occur, then every other column sorted.
func Columns(entries []*Entry) []string {
	seen := lo.Uniq(lo.FlatMap(entries, func(e *Entry, _ int) []string { return e.Columns() }))

	columns := []string{ColumnDeviceID, ColumnFilename, ColumnEQTime}
	for _, c := range baseColumns[3:] {
		if slices.Contains(seen, c) {
			columns = append(columns, c)
		}
	}
	rest := lo.Without(seen, baseColumns...)
	slices.Sort(rest)
	return append(columns, rest...)
}

// ToTable builds the output table sorted by device id and EQTIME.
func ToTable(name string, entries []*Entry) *model.Table {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b *Entry) int {
		if c := strings.Compare(a.DeviceID, b.DeviceID); c != 0 {
			return c
		}
		return a.EQTime.Compare(b.EQTime)
	})

	columns := Columns(sorted)
	records := make([]model.Record, len(sorted))
	for i, entry := range sorted {
		record := make(model.Record, len(columns))
		record[0] = model.NewValue(entry.DeviceID)
		record[1] = model.NewValue(entry.Filename)
		record[2] = model.NewValue(entry.EQTime.Format(model.TimeLayout))
		for j := 3; j < len(columns); j++ {
			if v, ok := entry.Fields[columns[j]]; ok {
				record[j] = v
			}
		}
		records[i] = record
	}
	return model.NewTable(name, model.NewHeader(columns), records)
}

// Summary describes an extracted table.
type Summary struct {
	Records       int
	Columns       int
	RecordsByDevice map[string]int
	First, Last   time.Time
}

// Summarize computes record counts per device and the EQTIME range.
func Summarize(entries []*Entry) Summary {
	s := Summary{
		Records:       len(entries),
		Columns:       len(Columns(entries)),
		RecordsByDevice: lo.CountValuesBy(entries, func(e *Entry) string { return e.DeviceID }),
	}
	if len(entries) == 0 {
		return s
	}
	s.First = lo.MinBy(entries, func(a, b *Entry) bool { return a.EQTime.Before(b.EQTime) }).EQTime
	s.Last = lo.MaxBy(entries, func(a, b *Entry) bool { return a.EQTime.After(b.EQTime) }).EQTime
	return s
}
