package cdm

import "github.com/SNUH-BMI/CDM/domain/model"

// OutputFormat represents the output file format
type OutputFormat = model.OutputFormat

// Output formats
const (
	OutputFormatCSV     = model.OutputFormatCSV
	OutputFormatTSV     = model.OutputFormatTSV
	OutputFormatLTSV    = model.OutputFormatLTSV
	OutputFormatParquet = model.OutputFormatParquet
	OutputFormatXLSX    = model.OutputFormatXLSX
	OutputFormatSQLite  = model.OutputFormatSQLite
)

// CompressionType represents the compression type
type CompressionType = model.CompressionType

// Compression types
const (
	CompressionNone = model.CompressionNone
	CompressionGZ   = model.CompressionGZ
	CompressionBZ2  = model.CompressionBZ2
	CompressionXZ   = model.CompressionXZ
	CompressionZSTD = model.CompressionZSTD
)

// DumpOptions configures how output tables are written
type DumpOptions = model.DumpOptions

// NewDumpOptions creates default dump options (CSV, no compression)
func NewDumpOptions() DumpOptions {
	return model.NewDumpOptions()
}
