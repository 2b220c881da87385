// Package output writes tables as CSV, TSV, LTSV (optionally compressed),
// Parquet, Excel or SQLite files.
package output

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/SNUH-BMI/CDM/compression"
	"github.com/SNUH-BMI/CDM/domain/model"
)

// ErrUnsupportedFormat is returned for an output format without a writer.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Writer writes tables into a directory using one set of DumpOptions.
type Writer struct {
	opts    model.DumpOptions
	factory *compression.Factory
	logger  *zap.Logger
}

// NewWriter creates a Writer.
func NewWriter(opts model.DumpOptions, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		opts:    opts,
		factory: compression.NewFactory(),
		logger:  logger,
	}
}

// Options returns the dump options in use.
func (w *Writer) Options() model.DumpOptions {
	return w.opts
}

// Path returns the file path Write uses for name inside dir.
func (w *Writer) Path(dir, name string) string {
	return filepath.Join(dir, name+w.opts.FileExtension())
}

// Write writes table to dir/name plus the format extension and returns the
// written path. An existing file is replaced.
func (w *Writer) Write(ctx context.Context, dir, name string, table *model.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := w.Path(dir, name)

	var err error
	switch w.opts.Format {
	case model.OutputFormatCSV:
		err = w.writeDelimited(path, table, ',')
	case model.OutputFormatTSV:
		err = w.writeDelimited(path, table, '\t')
	case model.OutputFormatLTSV:
		err = w.writeLTSV(path, table)
	case model.OutputFormatParquet:
		err = writeParquet(path, table)
	case model.OutputFormatXLSX:
		err = writeXLSX(path, name, table)
	case model.OutputFormatSQLite:
		err = writeSQLite(ctx, path, name, table)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, w.opts.Format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	w.logger.Debug("table written",
		zap.String("path", path),
		zap.String("format", w.opts.Format.String()),
		zap.Int("rows", table.Len()),
	)
	return path, nil
}

// openText creates path wrapped by the configured compression.
func (w *Writer) openText(path string) (io.Writer, func() error, error) {
	return w.factory.CreateWriterForFile(path, w.opts.Compression)
}

func (w *Writer) writeDelimited(path string, table *model.Table, comma rune) (err error) {
	out, cleanup, err := w.openText(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, cleanup())
	}()

	cw := csv.NewWriter(out)
	cw.Comma = comma
	if err := cw.Write(table.Header()); err != nil {
		return err
	}
	for _, record := range table.Records() {
		if err := cw.Write(record.Strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var ltsvReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func (w *Writer) writeLTSV(path string, table *model.Table) (err error) {
	out, cleanup, err := w.openText(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, cleanup())
	}()

	header := table.Header()
	labels := make([]string, len(header))
	for i, h := range header {
		labels[i] = strings.ReplaceAll(ltsvReplacer.Replace(h), ":", "_")
	}

	var b strings.Builder
	for _, record := range table.Records() {
		b.Reset()
		for i, v := range record {
			if i >= len(labels) {
				break
			}
			if i > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(labels[i])
			b.WriteByte(':')
			b.WriteString(ltsvReplacer.Replace(v.String()))
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(out, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// removeExisting deletes a previous output so binary writers start clean.
func removeExisting(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
