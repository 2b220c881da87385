package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/unicode"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/metric"
)

type member struct {
	name string
	data []byte
	dir  bool
}

func writeLOX(t *testing.T, dir, name string, members ...member) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		hdr := &tar.Header{Name: m.name, Mode: 0o600, Size: int64(len(m.data)), Typeflag: tar.TypeReg}
		if m.dir {
			hdr = &tar.Header{Name: m.name, Mode: 0o700, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !m.dir {
			_, err := tw.Write(m.data)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func utf16LE(t *testing.T, s string) []byte {
	t.Helper()

	out, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

func newObservedDecoder() (*Decoder, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewDecoder(WithLogger(zap.New(core))), logs
}

func TestDecoder_DecodeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeLOX(t, dir, "20230105.LOX",
		member{name: "DATA.PLE", data: utf16LE(t, "h1;h2\r\n a;b \r\n")},
		member{name: "data.pls", data: []byte("Time;Vol\n10:00;5\n")},
		member{name: "data.plr", data: []byte("boot\n\n  \nready\n")},
		member{name: "data.pca", data: []byte{0xff, 0xfe}},
		member{name: "data.xyz", data: []byte("unknown")},
		member{name: "data.pcm", data: []byte("a=1\nb=2")},
	)

	decoder, logs := newObservedDecoder()
	docs := decoder.DecodeFile(path)

	require.Len(t, docs, 4)

	rows, ok := docs[CategoryUserEvents].Rows()
	require.True(t, ok)
	assert.Equal(t, [][]string{{"h1", "h2"}, {"a", "b"}, {""}}, rows)

	rows, ok = docs[CategoryFluids].Rows()
	require.True(t, ok)
	assert.Equal(t, []string{"10:00", "5"}, rows[1])

	lines, ok := docs[CategorySystemEvents].Lines()
	require.True(t, ok)
	assert.Equal(t, []string{"boot", "ready"}, lines)

	lines, ok = docs[CategoryMachineConfig].Lines()
	require.True(t, ok)
	assert.Equal(t, []string{"a=1", "b=2"}, lines)

	assert.Zero(t, logs.Len(), "ignored and unknown members are skipped silently")
}

func TestDecoder_MemberFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeLOX(t, dir, "bad.LOX",
		member{name: "data.pls", data: []byte("caf\xc3\xa9")},
		member{name: "a.b.plr", data: []byte("x")},
		member{name: "subdir", dir: true},
		member{name: "data.pcu", data: []byte("[net]\nip=1\n")},
	)

	decoder, logs := newObservedDecoder()
	docs := decoder.DecodeFile(path)

	require.Len(t, docs, 1)
	_, ok := docs[CategoryTherapyConfig].Lines()
	assert.True(t, ok)

	assert.Equal(t, 1, logs.FilterMessage("member decode failed").Len())
	assert.Equal(t, 2, logs.FilterMessage("invalid member name").Len())
}

func TestDecoder_LastDuplicateCategoryWins(t *testing.T) {
	t.Parallel()

	path := writeLOX(t, t.TempDir(), "dup.LOX",
		member{name: "first.pls", data: []byte("a;1")},
		member{name: "second.PLS", data: []byte("b;2")},
	)

	docs := NewDecoder().DecodeFile(path)
	rows, ok := docs[CategoryFluids].Rows()
	require.True(t, ok)
	assert.Equal(t, [][]string{{"b", "2"}}, rows)
}

func TestDecoder_UnreadableFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.LOX")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	garbage := filepath.Join(dir, "garbage.LOX")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a tar archive at all, just some text that is long enough"), 0o600))

	tests := []struct {
		name    string
		path    string
		message string
	}{
		{name: "missing", path: filepath.Join(dir, "missing.LOX"), message: "archive not accessible"},
		{name: "empty", path: empty, message: "archive is empty"},
		{name: "not a tar", path: garbage, message: "archive is not a readable tar stream"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			decoder, logs := newObservedDecoder()
			docs := decoder.DecodeFile(tt.path)
			assert.Empty(t, docs)
			assert.Equal(t, 1, logs.FilterMessage(tt.message).Len())
		})
	}
}

func TestDecoder_Metrics(t *testing.T) {
	t.Parallel()

	m := metric.New()
	path := writeLOX(t, t.TempDir(), "m.LOX",
		member{name: "a.pls", data: []byte("x;y")},
		member{name: "a.plt", data: []byte{0x80}},
	)
	NewDecoder(WithMetrics(m)).DecodeFile(path)

	assert.Equal(t, 1, countOf(t, m, "cdm_archive_files_total"))
	assert.Equal(t, 2, countOf(t, m, "cdm_archive_members_total"))
}

func countOf(t *testing.T, m *metric.Metrics, name string) int {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric())
		}
	}
	return 0
}

func TestMemberExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  string
		ok   bool
	}{
		{name: "DATA.PLE", ext: "ple", ok: true},
		{name: "dir/data.pls", ext: "pls", ok: true},
		{name: "noext", ok: false},
		{name: "a.b.c", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ext, ok := memberExtension(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestDocumentKinds(t *testing.T) {
	t.Parallel()

	doc, err := Recipe{StepUTF8}.Apply([]byte("héllo"))
	require.NoError(t, err)
	assert.Equal(t, model.DocumentText, doc.Kind())
}
