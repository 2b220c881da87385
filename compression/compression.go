// Package compression wraps readers and writers with the stream compressions
// seen in device exports and output files: gzip, bzip2, xz and zstd.
package compression

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// ErrWriteUnsupported is returned when a compression type can only be read.
var ErrWriteUnsupported = errors.New("compression type is not supported for writing")

// Handler defines the interface for handling stream compression/decompression
type Handler interface {
	// CreateReader wraps an io.Reader with a decompression reader if needed
	CreateReader(reader io.Reader) (io.Reader, func() error, error)
	// CreateWriter wraps an io.Writer with a compression writer if needed
	CreateWriter(writer io.Writer) (io.Writer, func() error, error)
	// Type returns the compression type handled
	Type() model.CompressionType
	// Extension returns the file extension for this compression type (e.g., ".gz")
	Extension() string
}

// handlerImpl implements the Handler interface
type handlerImpl struct {
	compressionType model.CompressionType
}

// NewHandler creates a new compression handler for the given compression type
func NewHandler(compressionType model.CompressionType) Handler {
	return &handlerImpl{
		compressionType: compressionType,
	}
}

func noop() error { return nil }

// CreateReader creates a decompression reader based on the compression type
func (h *handlerImpl) CreateReader(reader io.Reader) (io.Reader, func() error, error) {
	switch h.compressionType {
	case model.CompressionNone:
		return reader, noop, nil

	case model.CompressionGZ:
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzReader, gzReader.Close, nil

	case model.CompressionBZ2:
		// bzip2.NewReader doesn't need closing
		return bzip2.NewReader(reader), noop, nil

	case model.CompressionXZ:
		xzReader, err := xz.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzReader, noop, nil

	case model.CompressionZSTD:
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return decoder, func() error {
			decoder.Close()
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression type for reading: %v", h.compressionType)
	}
}

// CreateWriter creates a compression writer based on the compression type
func (h *handlerImpl) CreateWriter(writer io.Writer) (io.Writer, func() error, error) {
	switch h.compressionType {
	case model.CompressionNone:
		return writer, noop, nil

	case model.CompressionGZ:
		gzWriter := gzip.NewWriter(writer)
		return gzWriter, gzWriter.Close, nil

	case model.CompressionBZ2:
		return nil, nil, fmt.Errorf("%w: %s", ErrWriteUnsupported, h.compressionType)

	case model.CompressionXZ:
		xzWriter, err := xz.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xzWriter, xzWriter.Close, nil

	case model.CompressionZSTD:
		zstdWriter, err := zstd.NewWriter(writer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zstdWriter, zstdWriter.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression type for writing: %v", h.compressionType)
	}
}

// Type returns the compression type handled
func (h *handlerImpl) Type() model.CompressionType {
	return h.compressionType
}

// Extension returns the file extension for this compression type
func (h *handlerImpl) Extension() string {
	return h.compressionType.Extension()
}

var magics = []struct {
	prefix []byte
	typ    model.CompressionType
}{
	{[]byte{0x1f, 0x8b}, model.CompressionGZ},
	{[]byte("BZh"), model.CompressionBZ2},
	{[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, model.CompressionXZ},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, model.CompressionZSTD},
}

// magicLen is the longest magic prefix.
const magicLen = 6

// DetectFromMagic detects the compression type from the leading bytes of a stream.
func DetectFromMagic(header []byte) model.CompressionType {
	for _, m := range magics {
		if bytes.HasPrefix(header, m.prefix) {
			return m.typ
		}
	}
	return model.CompressionNone
}

// Factory provides factory methods for compression handling
type Factory struct{}

// NewFactory creates a new compression factory
func NewFactory() *Factory {
	return &Factory{}
}

// DetectCompressionType detects the compression type from a file path
func (f *Factory) DetectCompressionType(path string) model.CompressionType {
	path = strings.ToLower(path)

	switch {
	case strings.HasSuffix(path, model.ExtGZ):
		return model.CompressionGZ
	case strings.HasSuffix(path, model.ExtBZ2):
		return model.CompressionBZ2
	case strings.HasSuffix(path, model.ExtXZ):
		return model.CompressionXZ
	case strings.HasSuffix(path, model.ExtZSTD):
		return model.CompressionZSTD
	default:
		return model.CompressionNone
	}
}

// CreateHandlerForFile creates an appropriate compression handler for a given file path
func (f *Factory) CreateHandlerForFile(path string) Handler {
	return NewHandler(f.DetectCompressionType(path))
}

// CreateReaderForFile opens a file and returns a reader that handles decompression.
// The compression is taken from the stream's magic bytes, then from the file
// suffix; a stream matching neither is returned as is.
func (f *Factory) CreateReaderForFile(path string) (io.Reader, func() error, error) {
	file, err := os.Open(path) //nolint:gosec // User-provided path is necessary for file operations
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	buffered := bufio.NewReader(file)
	header, err := buffered.Peek(magicLen)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = file.Close()
		return nil, nil, fmt.Errorf("failed to read file header: %w", err)
	}

	compressionType := DetectFromMagic(header)
	if compressionType == model.CompressionNone {
		compressionType = f.DetectCompressionType(path)
	}

	reader, cleanup, err := NewHandler(compressionType).CreateReader(buffered)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}

	// Create a composite cleanup function
	compositeCleanup := func() error {
		var cleanupErr error
		if cleanup != nil {
			cleanupErr = cleanup()
		}
		return errors.Join(cleanupErr, file.Close())
	}

	return reader, compositeCleanup, nil
}

// CreateWriterForFile creates a file and returns a writer that handles compression
func (f *Factory) CreateWriterForFile(path string, compressionType model.CompressionType) (io.Writer, func() error, error) {
	file, err := os.Create(path) //nolint:gosec // User-provided path is necessary for file operations
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file: %w", err)
	}

	writer, cleanup, err := NewHandler(compressionType).CreateWriter(file)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, nil, err
	}

	// Create a composite cleanup function
	compositeCleanup := func() error {
		var cleanupErr error
		if cleanup != nil {
			cleanupErr = cleanup()
		}
		if syncErr := file.Sync(); syncErr != nil && cleanupErr == nil {
			cleanupErr = syncErr
		}
		if closeErr := file.Close(); closeErr != nil && cleanupErr == nil {
			cleanupErr = closeErr
		}
		return cleanupErr
	}

	return writer, compositeCleanup, nil
}

// RemoveCompressionExtension removes the compression extension from a file path if present
func (f *Factory) RemoveCompressionExtension(path string) string {
	for _, ext := range []string{model.ExtGZ, model.ExtBZ2, model.ExtXZ, model.ExtZSTD} {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}
