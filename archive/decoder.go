package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/SNUH-BMI/CDM/compression"
	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/metric"
)

// Decoder turns .LOX archive files into decoded documents keyed by category.
type Decoder struct {
	registry *Registry
	factory  *compression.Factory
	logger   *zap.Logger
	metrics  *metric.Metrics
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithRegistry replaces the default registry.
func WithRegistry(r *Registry) Option {
	return func(d *Decoder) {
		if r != nil {
			d.registry = r
		}
	}
}

// WithLogger sets the logger receiving per-file and per-member diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the run metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(d *Decoder) {
		d.metrics = m
	}
}

// NewDecoder creates a Decoder using the default registry.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		registry: DefaultRegistry(),
		factory:  compression.NewFactory(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeFile decodes every registered member of the archive at filePath.
// It never fails: a missing, empty or unreadable archive yields an empty map
// and a logged diagnostic. A member that cannot be extracted or decoded is
// logged and left out while the other members continue. When two members map
// to the same category the later one wins.
func (d *Decoder) DecodeFile(filePath string) map[string]model.Document {
	logger := d.logger.With(zap.String("file", filePath))
	out := make(map[string]model.Document)

	info, err := os.Stat(filePath)
	switch {
	case err != nil:
		logger.Warn("archive not accessible", zap.String("error_class", "file_access"), zap.Error(err))
		d.metrics.RecordFile(metric.OutcomeFailed)
		return out
	case info.Size() == 0:
		logger.Warn("archive is empty", zap.String("error_class", "file_access"))
		d.metrics.RecordFile(metric.OutcomeSkipped)
		return out
	}

	reader, cleanup, err := d.factory.CreateReaderForFile(filePath)
	if err != nil {
		logger.Warn("archive cannot be opened", zap.String("error_class", "file_access"), zap.Error(err))
		d.metrics.RecordFile(metric.OutcomeFailed)
		return out
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			logger.Debug("archive close failed", zap.Error(cerr))
		}
	}()

	out, err = d.Decode(reader, logger)
	if err != nil {
		logger.Warn("archive is not a readable tar stream", zap.String("error_class", "file_access"), zap.Error(err))
		d.metrics.RecordFile(metric.OutcomeFailed)
		return make(map[string]model.Document)
	}
	d.metrics.RecordFile(metric.OutcomeOK)
	return out
}

// Decode reads an uncompressed tar stream. Member level problems are logged
// and skipped; an error is returned only when the tar stream itself is
// unreadable, in which case no documents are returned.
func (d *Decoder) Decode(r io.Reader, logger *zap.Logger) (map[string]model.Document, error) {
	if logger == nil {
		logger = d.logger
	}
	out := make(map[string]model.Document)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar header: %w", err)
		}

		mlog := logger.With(zap.String("member", hdr.Name))
		ext, ok := memberExtension(hdr.Name)
		if !ok {
			mlog.Warn("invalid member name", zap.String("error_class", "malformed_member"))
			continue
		}
		entry, ok := d.registry.Lookup(ext)
		if !ok || entry.Ignore {
			continue
		}
		mlog = mlog.With(zap.String("category", entry.Category))

		if hdr.Typeflag != tar.TypeReg {
			mlog.Warn("member is not a regular file", zap.String("error_class", "malformed_member"))
			d.metrics.RecordMember(entry.Category, metric.OutcomeSkipped)
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read member %s: %w", hdr.Name, err)
		}

		doc, err := entry.Recipe.Apply(data)
		if err != nil {
			mlog.Warn("member decode failed", zap.String("error_class", "decode_step"), zap.Error(err))
			d.metrics.RecordMember(entry.Category, metric.OutcomeFailed)
			continue
		}
		out[entry.Category] = doc
		d.metrics.RecordMember(entry.Category, metric.OutcomeOK)
	}
	return out, nil
}

// memberExtension splits a member name into exactly one base name and one
// extension.
func memberExtension(name string) (string, bool) {
	parts := strings.Split(path.Clean(name), ".")
	if len(parts) != 2 {
		return "", false
	}
	return strings.ToLower(parts[1]), true
}
