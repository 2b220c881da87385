package output

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// arrowSchema maps inferred column types to nullable arrow fields.
func arrowSchema(info []model.ColumnInfo) *arrow.Schema {
	fields := make([]arrow.Field, len(info))
	for i, ci := range info {
		var typ arrow.DataType
		switch ci.Type {
		case model.ColumnTypeInteger:
			typ = arrow.PrimitiveTypes.Int64
		case model.ColumnTypeReal:
			typ = arrow.PrimitiveTypes.Float64
		default:
			typ = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: ci.Name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func writeParquet(path string, table *model.Table) error {
	if err := removeExisting(path); err != nil {
		return err
	}
	schema := arrowSchema(table.ColumnInfo())

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for col := range schema.Fields() {
		if err := appendColumn(builder.Field(col), table.Records(), col); err != nil {
			return fmt.Errorf("column %s: %w", schema.Field(col).Name, err)
		}
	}
	record := builder.NewRecord()
	defer record.Release()

	file, err := os.Create(path) //nolint:gosec // Output path is built from the configured output directory
	if err != nil {
		return err
	}
	defer file.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	writer, err := pqarrow.NewFileWriter(schema, file, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		return errors.Join(fmt.Errorf("failed to write parquet record: %w", err), writer.Close())
	}
	return writer.Close()
}

func appendColumn(b array.Builder, records []model.Record, col int) error {
	for _, record := range records {
		var v model.Value
		if col < len(record) {
			v = record[col]
		}
		if v.IsBlank() {
			b.AppendNull()
			continue
		}
		s := strings.TrimSpace(v.String())

		switch fb := b.(type) {
		case *array.Int64Builder:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return err
			}
			fb.Append(n)
		case *array.Float64Builder:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			fb.Append(f)
		case *array.StringBuilder:
			fb.Append(v.String())
		default:
			return fmt.Errorf("unexpected builder %T", b)
		}
	}
	return nil
}
