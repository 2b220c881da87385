// Package cli implements the cdm command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/internal/config"
)

// CLI is the kong command tree. Defaults come from config through kong.Vars.
type CLI struct {
	LogLevel  string `help:"Log level." default:"${config_log_level}" enum:"debug,info,warn,error"`
	LogFormat string `help:"Log encoding; auto picks console on a terminal." default:"${config_log_format}" enum:"auto,console,json"`

	Merge    MergeCmd    `cmd:"" help:"Merge .LOX archives into session-tagged event and metadata tables."`
	Textlog  TextlogCmd  `cmd:"" help:"Extract per-device text parameter dumps into one table."`
	Waveform WaveformCmd `cmd:"" help:"Convert EDF recordings into per-patient JSON time series."`
	Registry RegistryCmd `cmd:"" help:"Print the archive member registry."`
}

// Vars returns the kong variables holding config-derived defaults.
func Vars(cfg *config.Config) map[string]string {
	return map[string]string{
		"config_input_root":       cfg.InputRoot,
		"config_output_dir":       cfg.OutputDir,
		"config_format":           cfg.Format,
		"config_compression":      cfg.Compression,
		"config_log_level":        cfg.LogLevel,
		"config_log_format":       cfg.LogFormat,
		"config_workers":          fmt.Sprint(cfg.Workers),
		"config_session_policy":   cfg.SessionPolicy,
		"config_require_metadata": fmt.Sprint(cfg.RequireMetadata),
		"config_metrics_file":     cfg.MetricsFile,
	}
}

// Globals is shared by every command.
type Globals struct {
	Ctx    context.Context
	Logger *zap.Logger
	RunID  string
	Stdout io.Writer
	Stderr io.Writer
	Config *config.Config
}

// NewGlobals builds the run logger, tagged with a fresh run id.
func NewGlobals(ctx context.Context, c *CLI, cfg *config.Config, stdout, stderr io.Writer) (*Globals, error) {
	runID := uuid.NewString()
	logger, err := NewLogger(c.LogLevel, c.LogFormat, stderr)
	if err != nil {
		return nil, err
	}
	return &Globals{
		Ctx:    ctx,
		Logger: logger.With(zap.String("run_id", runID)),
		RunID:  runID,
		Stdout: stdout,
		Stderr: stderr,
		Config: cfg,
	}, nil
}

// OutputFlags selects the table format shared by the table writing commands.
type OutputFlags struct {
	Format      string `help:"Output format (csv, tsv, ltsv, parquet, xlsx, sqlite)." default:"${config_format}"`
	Compression string `help:"Compression for text formats (none, gz, bz2, xz, zstd)." default:"${config_compression}"`
}

// DumpOptions parses the flags.
func (f OutputFlags) DumpOptions() (model.DumpOptions, error) {
	format, err := model.ParseOutputFormat(f.Format)
	if err != nil {
		return model.DumpOptions{}, err
	}
	compression, err := model.ParseCompressionType(f.Compression)
	if err != nil {
		return model.DumpOptions{}, err
	}
	return model.NewDumpOptions().WithFormat(format).WithCompression(compression), nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(filepath.Clean(dir), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
