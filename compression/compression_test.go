//nolint:errcheck // Test cleanup error handling is intentionally ignored
package compression

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/SNUH-BMI/CDM/domain/model"
)

func compress(t *testing.T, typ model.CompressionType, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	switch typ {
	case model.CompressionNone:
		buf.Write(data)
	case model.CompressionGZ:
		w := gzip.NewWriter(&buf)
		_, _ = w.Write(data)
		_ = w.Close()
	case model.CompressionXZ:
		w, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, _ = w.Write(data)
		_ = w.Close()
	case model.CompressionZSTD:
		w, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, _ = w.Write(data)
		_ = w.Close()
	default:
		t.Fatalf("no writer for %v", typ)
	}
	return buf.Bytes()
}

// TestHandler tests the Handler implementation for every compression type
func TestHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		compressionType model.CompressionType
		extension       string
		canWrite        bool
	}{
		{name: "No compression", compressionType: model.CompressionNone, extension: "", canWrite: true},
		{name: "Gzip compression", compressionType: model.CompressionGZ, extension: ".gz", canWrite: true},
		{name: "Bzip2 compression", compressionType: model.CompressionBZ2, extension: ".bz2", canWrite: false},
		{name: "XZ compression", compressionType: model.CompressionXZ, extension: ".xz", canWrite: true},
		{name: "ZSTD compression", compressionType: model.CompressionZSTD, extension: ".zst", canWrite: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := NewHandler(tt.compressionType)
			assert.Equal(t, tt.extension, handler.Extension())
			assert.Equal(t, tt.compressionType, handler.Type())

			var output bytes.Buffer
			writer, cleanup, err := handler.CreateWriter(&output)
			if !tt.canWrite {
				require.ErrorIs(t, err, ErrWriteUnsupported)
				return
			}
			require.NoError(t, err)

			testData := []byte("Time;Type(cod);Type;Sample\n")
			_, err = writer.Write(testData)
			require.NoError(t, err)
			require.NoError(t, cleanup())

			reader, cleanup, err := handler.CreateReader(&output)
			require.NoError(t, err)
			defer cleanup()

			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, testData, got)
		})
	}
}

func TestDetectFromMagic(t *testing.T) {
	t.Parallel()

	data := []byte("payload")
	tests := []struct {
		name   string
		header []byte
		want   model.CompressionType
	}{
		{name: "gzip", header: compress(t, model.CompressionGZ, data), want: model.CompressionGZ},
		{name: "xz", header: compress(t, model.CompressionXZ, data), want: model.CompressionXZ},
		{name: "zstd", header: compress(t, model.CompressionZSTD, data), want: model.CompressionZSTD},
		{name: "bzip2", header: []byte("BZh91AY&SY"), want: model.CompressionBZ2},
		{name: "plain", header: data, want: model.CompressionNone},
		{name: "empty", header: nil, want: model.CompressionNone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectFromMagic(tt.header))
		})
	}
}

func TestFactory_DetectCompressionType(t *testing.T) {
	t.Parallel()

	factory := NewFactory()

	tests := []struct {
		path     string
		expected model.CompressionType
	}{
		{"data.csv", model.CompressionNone},
		{"data.csv.gz", model.CompressionGZ},
		{"data.CSV.GZ", model.CompressionGZ},
		{"data.tsv.bz2", model.CompressionBZ2},
		{"data.ltsv.xz", model.CompressionXZ},
		{"archive.LOX.zst", model.CompressionZSTD},
		{"archive.LOX", model.CompressionNone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, factory.DetectCompressionType(tt.path))
		})
	}
}

func TestFactory_RemoveCompressionExtension(t *testing.T) {
	t.Parallel()

	factory := NewFactory()

	tests := []struct {
		path     string
		expected string
	}{
		{"data.csv", "data.csv"},
		{"data.csv.gz", "data.csv"},
		{"data.CSV.GZ", "data.CSV"},
		{"data.parquet.zst", "data.parquet"},
		{"path/to/file.csv.xz", "path/to/file.csv"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, factory.RemoveCompressionExtension(tt.path))
		})
	}
}

// TestFactory_ReadBySniffing checks that a gzip stream without a .gz suffix,
// as device archives are stored, is still decompressed.
func TestFactory_ReadBySniffing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testData := []byte("line 1\nline 2\n")

	tests := []struct {
		name string
		typ  model.CompressionType
	}{
		{name: "gzip", typ: model.CompressionGZ},
		{name: "xz", typ: model.CompressionXZ},
		{name: "zstd", typ: model.CompressionZSTD},
		{name: "plain", typ: model.CompressionNone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(dir, tt.name+".LOX")
			require.NoError(t, os.WriteFile(path, compress(t, tt.typ, testData), 0o600))

			reader, cleanup, err := NewFactory().CreateReaderForFile(path)
			require.NoError(t, err)
			defer cleanup()

			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, testData, got)
		})
	}
}

func TestFactory_WriteAndRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	factory := NewFactory()
	testData := []byte("This is test data for compression testing.\nLine 2\nLine 3")

	for _, typ := range []model.CompressionType{model.CompressionNone, model.CompressionGZ, model.CompressionXZ, model.CompressionZSTD} {
		typ := typ
		t.Run(typ.String(), func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(dir, "test.txt"+typ.Extension())
			writer, cleanup, err := factory.CreateWriterForFile(path, typ)
			require.NoError(t, err)
			_, err = writer.Write(testData)
			require.NoError(t, err)
			require.NoError(t, cleanup())

			reader, cleanup, err := factory.CreateReaderForFile(path)
			require.NoError(t, err)
			defer cleanup()

			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, testData, got)
		})
	}
}

func TestFactory_Errors(t *testing.T) {
	t.Parallel()

	factory := NewFactory()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, _, err := factory.CreateReaderForFile("/non/existent/file.LOX")
		assert.Error(t, err)
	})

	t.Run("bzip2 writer", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.csv.bz2")
		_, _, err := factory.CreateWriterForFile(path, model.CompressionBZ2)
		require.ErrorIs(t, err, ErrWriteUnsupported)
		assert.NoFileExists(t, path)
	})
}
