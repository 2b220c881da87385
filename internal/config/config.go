// Package config loads cdm settings from files, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/session"
	"github.com/SNUH-BMI/CDM/tabular"
)

// Config holds application configuration
type Config struct {
	InputRoot       string `mapstructure:"input_root"`
	OutputDir       string `mapstructure:"output_dir"`
	Format          string `mapstructure:"format"`
	Compression     string `mapstructure:"compression"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	Workers         int    `mapstructure:"workers"`
	SessionPolicy   string `mapstructure:"session_policy"`
	RequireMetadata bool   `mapstructure:"require_metadata"`
	MetricsFile     string `mapstructure:"metrics_file"`

	Layouts LayoutsConfig `mapstructure:"layouts"`
}

// LayoutsConfig holds the row positions of the device tables
type LayoutsConfig struct {
	Events   LayoutConfig `mapstructure:"events"`
	Metadata LayoutConfig `mapstructure:"metadata"`
}

// LayoutConfig locates the header and first data row of one table
type LayoutConfig struct {
	SkipRows  int `mapstructure:"skip_rows"`
	HeaderRow int `mapstructure:"header_row"`
}

// Layout converts the setting into a table layout
func (l LayoutConfig) Layout() tabular.Layout {
	return tabular.Layout{SkipRows: l.SkipRows, HeaderRow: l.HeaderRow, DropLeadingColumn: true}
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		InputRoot:       ".",
		OutputDir:       ".",
		Format:          model.OutputFormatCSV.String(),
		Compression:     model.CompressionNone.String(),
		LogLevel:        "info",
		LogFormat:       "auto",
		Workers:         1,
		SessionPolicy:   session.DefaultPolicy.String(),
		RequireMetadata: true,
		Layouts: LayoutsConfig{
			Events: LayoutConfig{
				SkipRows:  tabular.EventLayout.SkipRows,
				HeaderRow: tabular.EventLayout.HeaderRow,
			},
			Metadata: LayoutConfig{
				SkipRows:  tabular.MetadataLayout.SkipRows,
				HeaderRow: tabular.MetadataLayout.HeaderRow,
			},
		},
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("input_root", cfg.InputRoot)
	v.SetDefault("output_dir", cfg.OutputDir)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("compression", cfg.Compression)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("session_policy", cfg.SessionPolicy)
	v.SetDefault("require_metadata", cfg.RequireMetadata)
	v.SetDefault("metrics_file", cfg.MetricsFile)
	v.SetDefault("layouts.events.skip_rows", cfg.Layouts.Events.SkipRows)
	v.SetDefault("layouts.events.header_row", cfg.Layouts.Events.HeaderRow)
	v.SetDefault("layouts.metadata.skip_rows", cfg.Layouts.Metadata.SkipRows)
	v.SetDefault("layouts.metadata.header_row", cfg.Layouts.Metadata.HeaderRow)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CDM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())
	return v
}

// Load loads configuration from the first cdm.yaml or .cdm.yaml found in
// /etc/cdm, the user config directory, the home directory and the current
// directory, then applies CDM_* environment variables.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("cdm")
	v.AddConfigPath("/etc/cdm/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "cdm"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// Fall back to the hidden name in home and the current directory
		v.SetConfigName(".cdm")
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return decode(v)
}

// LoadFromFile loads configuration from a specific file; environment
// variables still apply.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	var errs []error
	if _, err := model.ParseOutputFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := model.ParseCompressionType(c.Compression); err != nil {
		errs = append(errs, err)
	}
	if _, err := session.ParsePolicy(c.SessionPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	switch c.LogFormat {
	case "auto", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// DumpOptions returns the configured output format and compression
func (c *Config) DumpOptions() (model.DumpOptions, error) {
	format, err := model.ParseOutputFormat(c.Format)
	if err != nil {
		return model.DumpOptions{}, err
	}
	compression, err := model.ParseCompressionType(c.Compression)
	if err != nil {
		return model.DumpOptions{}, err
	}
	return model.NewDumpOptions().WithFormat(format).WithCompression(compression), nil
}
