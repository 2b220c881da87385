package cdm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SNUH-BMI/CDM/archive"
	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/event"
	"github.com/SNUH-BMI/CDM/metadata"
	"github.com/SNUH-BMI/CDM/metric"
	"github.com/SNUH-BMI/CDM/output"
	"github.com/SNUH-BMI/CDM/session"
	"github.com/SNUH-BMI/CDM/tabular"
)

// Merger runs the archive merge over the groups discovered by Builder.Build.
type Merger struct {
	groups          []Group
	outputDir       string
	mergeDir        string
	writer          *output.Writer
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

// Groups returns the discovered groups in processing order.
func (m *Merger) Groups() []Group {
	return m.groups
}

// groupResult is the segmented but not yet renumbered output of one group.
type groupResult struct {
	group    Group
	events   *model.TimedTable
	meta     *model.TimedTable
	sessions []model.Session
	skipped  error
	elapsed  time.Duration
}

// Run processes every group, renumbers sessions across groups in discovery
// order and writes the per-group and cumulative tables. With more than one
// worker the groups are decoded concurrently; numbering does not change.
func (m *Merger) Run(ctx context.Context) (*Report, error) {
	start := m.clock.Now()

	results, err := m.processGroups(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	offset := 1
	var allEvents, allMeta []*model.TimedTable
	for _, r := range results {
		gr := GroupReport{
			Folder:   r.group.Folder,
			Year:     r.group.Year,
			Files:    len(r.group.Files),
			Duration: r.elapsed,
		}
		if r.skipped != nil {
			gr.Skipped = r.skipped.Error()
			m.logger.Info("group skipped", zap.String("group", r.group.Key()), zap.Error(r.skipped))
			report.Groups = append(report.Groups, gr)
			continue
		}

		events, meta, next := session.Renumber(r.events, r.meta, offset)
		gr.Sessions = next - offset
		if gr.Sessions > 0 {
			gr.FirstSession, gr.LastSession = offset, next-1
		}
		offset = next
		gr.EventRows, gr.MetadataRows = events.Len(), meta.Len()

		paths, err := m.save(ctx, m.mergeDir, r.group.EventsName(), r.group.MetadataName(), events, meta)
		if err != nil {
			return nil, NewErrorContext("save", m.mergeDir).WithGroup(r.group.Key()).Error(err)
		}
		gr.Outputs = paths
		m.metrics.RecordSessions(gr.Sessions)
		m.metrics.RecordGroupDuration(r.group.Folder, r.elapsed)

		allEvents = append(allEvents, events)
		allMeta = append(allMeta, meta)
		report.Groups = append(report.Groups, gr)
	}

	if len(allEvents) > 0 {
		events := tabular.SortByMachineTime(tabular.Concat(EventsAll, allEvents...))
		meta := tabular.SortByMachineTime(tabular.Concat(MetadataAll, allMeta...))
		paths, err := m.save(ctx, m.outputDir, EventsAll, MetadataAll, events, meta)
		if err != nil {
			return nil, NewErrorContext("save", m.outputDir).Error(err)
		}
		report.Outputs = paths
		report.summarize(events, meta, offset-1)
	}
	report.Duration = m.clock.Since(start)

	m.logger.Info("merge finished",
		zap.Int("groups", len(report.Groups)),
		zap.Int("sessions", report.TotalSessions),
		zap.Int("patients", report.UniquePatients),
		zap.Int("events", report.EventRows),
		zap.Int("metadata", report.MetadataRows),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// processGroups runs processGroup for every group, concurrently when more
// than one worker is configured. Results keep the group order.
func (m *Merger) processGroups(ctx context.Context) ([]*groupResult, error) {
	results := make([]*groupResult, len(m.groups))
	if m.workers <= 1 {
		for i, g := range m.groups {
			r, err := m.processGroup(ctx, g)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(m.workers)
	for i, g := range m.groups {
		i, g := i, g
		eg.Go(func() error {
			r, err := m.processGroup(egCtx, g)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processGroup decodes every archive of g once, builds the event and
// metadata tables and segments sessions with a counter starting at 1.
// Only context cancellation is returned as an error; a group without usable
// data is reported through groupResult.skipped.
func (m *Merger) processGroup(ctx context.Context, g Group) (*groupResult, error) {
	start := m.clock.Now()
	logger := m.logger.With(zap.String("group", g.Key()))
	decoder := archive.NewDecoder(
		archive.WithRegistry(m.registry),
		archive.WithLogger(logger),
		archive.WithMetrics(m.metrics),
	)
	builder := event.NewBuilder(logger)
	result := &groupResult{group: g}
	defer func() {
		result.elapsed = m.clock.Since(start)
	}()

	var eventTables, metaTables []*model.TimedTable
	for _, path := range g.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		flog := logger.With(zap.String("file", path))
		docs := decoder.DecodeFile(path)
		name := model.TableFromFilePath(path)

		if ev, err := m.buildEvents(builder, name, docs, g.Folder); err != nil {
			flog.Warn("event log skipped", zap.String("error_class", Classify(err).String()), zap.Error(err))
		} else if ev != nil {
			eventTables = append(eventTables, ev)
		}

		if meta, err := m.buildMetadata(name, docs, g.Folder); err != nil {
			flog.Warn("metadata skipped", zap.String("error_class", Classify(err).String()), zap.Error(err))
		} else if meta != nil {
			metaTables = append(metaTables, meta)
		}
	}

	if len(eventTables) == 0 {
		result.skipped = ErrNoEvents
		return result, nil
	}
	events := event.Assemble(g.EventsName(), eventTables...)
	segmented, sessions, err := session.SegmentTable(events, session.NewCounter(1), m.policy)
	if err != nil {
		result.skipped = &ClassifiedError{Class: ClassShape, Err: err}
		return result, nil
	}

	var meta *model.TimedTable
	switch {
	case len(metaTables) > 0:
		meta = metadata.Assign(metadata.Assemble(g.MetadataName(), metaTables...), sessions)
	case m.requireMetadata:
		result.skipped = ErrNoMetadata
		return result, nil
	default:
		meta = model.NewTimedTable(g.MetadataName(), nil, nil)
	}

	logger.Debug("group segmented",
		zap.Int("event_rows", segmented.Len()),
		zap.Int("metadata_rows", meta.Len()),
		zap.Int("sessions", len(sessions)),
	)
	result.events, result.meta, result.sessions = segmented, meta, sessions
	return result, nil
}

// buildEvents returns nil without error when the archive has no user event log.
func (m *Merger) buildEvents(b *event.Builder, name string, docs map[string]model.Document, machine string) (*model.TimedTable, error) {
	doc, ok := docs[archive.CategoryUserEvents]
	if !ok {
		return nil, nil
	}
	table, err := tabular.Reconstruct(name, doc, m.eventLayout)
	if err != nil {
		return nil, err
	}
	return b.Build(table, machine)
}

// buildMetadata returns nil without error unless the archive has both a
// fluids and a pressure log.
func (m *Merger) buildMetadata(name string, docs map[string]model.Document, machine string) (*model.TimedTable, error) {
	fluidsDoc, okF := docs[archive.CategoryFluids]
	pressureDoc, okP := docs[archive.CategoryPressure]
	if !okF || !okP {
		return nil, nil
	}
	fluids, errF := tabular.Reconstruct(name, fluidsDoc, m.metadataLayout)
	pressure, errP := tabular.Reconstruct(name, pressureDoc, m.metadataLayout)
	if err := errors.Join(errF, errP); err != nil {
		return nil, err
	}
	return metadata.Build(name, fluids, pressure, machine)
}

// save writes an event and a metadata table into dir.
func (m *Merger) save(ctx context.Context, dir, eventsName, metaName string, events, meta *model.TimedTable) ([]string, error) {
	eventsPath, err := m.writer.Write(ctx, dir, eventsName, events.WithName(eventsName).ToTable())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputPath, err)
	}
	metaPath, err := m.writer.Write(ctx, dir, metaName, meta.WithName(metaName).ToTable())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputPath, err)
	}
	m.metrics.RecordRows("events", events.Len())
	m.metrics.RecordRows("metadata", meta.Len())
	return []string{filepath.Clean(eventsPath), filepath.Clean(metaPath)}, nil
}
