package cdm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/SNUH-BMI/CDM/archive"
	"github.com/SNUH-BMI/CDM/metric"
	"github.com/SNUH-BMI/CDM/output"
	"github.com/SNUH-BMI/CDM/session"
	"github.com/SNUH-BMI/CDM/tabular"
)

// MergeDir is the subdirectory of the output directory holding per-group tables.
const MergeDir = "merge"

// Output name parts.
const (
	EventsPrefix   = "merged_table_valid_"
	MetadataPrefix = "merged_metadata_"
	EventsAll      = EventsPrefix + "all"
	MetadataAll    = MetadataPrefix + "all"
)

// Builder configures a Merger.
// Use NewBuilder to create a new instance, then chain method calls to configure it.
//
// The typical usage pattern is:
//
//	merger, err := cdm.NewBuilder().
//	    SetInputRoot("/data/baxter").
//	    SetOutputDir("/data/out").
//	    SetWorkers(4).
//	    Build(ctx)
//	if err != nil {
//		return err
//	}
//	report, err := merger.Run(ctx)
type Builder struct {
	inputRoot       string
	outputDir       string
	dumpOptions     DumpOptions
	policy          session.Policy
	requireMetadata bool
	workers         int
	eventLayout     tabular.Layout
	metadataLayout  tabular.Layout
	registry        *archive.Registry
	logger          *zap.Logger
	clock           clock.Clock
	metrics         *metric.Metrics
}

// NewBuilder creates a builder with the defaults: CSV output, sequential
// processing, the default session policy and metadata required.
func NewBuilder() *Builder {
	return &Builder{
		dumpOptions:     NewDumpOptions(),
		policy:          session.DefaultPolicy,
		requireMetadata: true,
		workers:         1,
		eventLayout:     tabular.EventLayout,
		metadataLayout:  tabular.MetadataLayout,
		registry:        archive.DefaultRegistry(),
		logger:          zap.NewNop(),
		clock:           clock.New(),
	}
}

// SetInputRoot sets the directory searched recursively for archives.
func (b *Builder) SetInputRoot(root string) *Builder {
	b.inputRoot = root
	return b
}

// SetOutputDir sets the directory receiving the cumulative tables; per-group
// tables go to its "merge" subdirectory.
func (b *Builder) SetOutputDir(dir string) *Builder {
	b.outputDir = dir
	return b
}

// SetDumpOptions sets the output format and compression.
func (b *Builder) SetDumpOptions(opts DumpOptions) *Builder {
	b.dumpOptions = opts
	return b
}

// SetPolicy sets how a start marker inside an open session is handled.
func (b *Builder) SetPolicy(p session.Policy) *Builder {
	b.policy = p
	return b
}

// SetRequireMetadata controls whether a group without metadata is dropped
// (true, the default) or written with an empty metadata table.
func (b *Builder) SetRequireMetadata(require bool) *Builder {
	b.requireMetadata = require
	return b
}

// SetWorkers sets how many groups are decoded concurrently.
func (b *Builder) SetWorkers(n int) *Builder {
	b.workers = n
	return b
}

// SetEventLayout overrides where the header and data rows of the user event
// log are.
func (b *Builder) SetEventLayout(l tabular.Layout) *Builder {
	b.eventLayout = l
	return b
}

// SetMetadataLayout overrides where the header and data rows of the fluid and
// pressure logs are.
func (b *Builder) SetMetadataLayout(l tabular.Layout) *Builder {
	b.metadataLayout = l
	return b
}

// SetRegistry replaces the archive member registry.
func (b *Builder) SetRegistry(r *archive.Registry) *Builder {
	b.registry = r
	return b
}

// SetLogger sets the logger; nil discards logs.
func (b *Builder) SetLogger(l *zap.Logger) *Builder {
	if l == nil {
		l = zap.NewNop()
	}
	b.logger = l
	return b
}

// SetClock sets the clock used for durations.
func (b *Builder) SetClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// SetMetrics sets the run metrics; nil disables them.
func (b *Builder) SetMetrics(m *metric.Metrics) *Builder {
	b.metrics = m
	return b
}

// Build validates the configuration, discovers and groups the archives and
// creates the output directories.
func (b *Builder) Build(ctx context.Context) (*Merger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := newValidator().validateBuilder(b); err != nil {
		return nil, err
	}

	paths, err := newFileProcessor().collectArchives(b.inputRoot)
	if err != nil {
		return nil, err
	}
	groups := groupArchives(paths)

	mergeDir := filepath.Join(b.outputDir, MergeDir)
	if err := os.MkdirAll(mergeDir, 0750); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputPath, err)
	}

	b.logger.Info("archives discovered",
		zap.String("input_root", b.inputRoot),
		zap.Int("files", len(paths)),
		zap.Int("groups", len(groups)),
	)

	return &Merger{
		groups:          groups,
		outputDir:       b.outputDir,
		mergeDir:        mergeDir,
		writer:          output.NewWriter(b.dumpOptions, b.logger),
		policy:          b.policy,
		requireMetadata: b.requireMetadata,
		workers:         b.workers,
		eventLayout:     b.eventLayout,
		metadataLayout:  b.metadataLayout,
		registry:        b.registry,
		logger:          b.logger,
		clock:           b.clock,
		metrics:         b.metrics,
	}, nil
}
