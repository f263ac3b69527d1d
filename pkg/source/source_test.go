package source_test

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

	"batchdigest/pkg/source"
)

const text = "one\ntwo\nthree\n"

func readAll(t *testing.T, open func() (io.ReadCloser, error)) string {
	t.Helper()
	rc, err := open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestFile_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	f := source.NewFile(path)
	assert.Equal(t, path, f.Name())
	require.NoError(t, f.Check())
	assert.Equal(t, text, readAll(t, f.Open))
	// Files can be opened again.
	assert.Equal(t, text, readAll(t, f.Open))
}

func TestFile_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "lines.txt.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	assert.Equal(t, text, readAll(t, source.NewFile(path).Open))
}

func TestFile_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(text), nil)
	require.NoError(t, enc.Close())

	path := filepath.Join(t.TempDir(), "lines.txt.zst")
	require.NoError(t, os.WriteFile(path, compressed, 0o644))
	assert.Equal(t, text, readAll(t, source.NewFile(path).Open))
}

func TestFile_BadGzipHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))
	f := source.NewFile(path)
	require.NoError(t, f.Check())
	_, err := f.Open()
	assert.Error(t, err)
}

func TestFile_Check(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, source.NewFile(filepath.Join(dir, "missing")).Check())
	assert.Error(t, source.NewFile(dir).Check())
}

func TestReader(t *testing.T) {
	r := source.NewString("inline", text)
	assert.Equal(t, "inline", r.Name())
	require.NoError(t, r.Check())
	assert.Equal(t, text, readAll(t, r.Open))

	assert.Error(t, r.Check(), "a consumed reader must fail Check")
	_, err := r.Open()
	assert.Error(t, err)

	assert.Error(t, source.NewReader("nil", nil).Check())
}

func TestNewLines(t *testing.T) {
	assert.Equal(t, text, readAll(t, source.NewLines("l", []string{"one", "two", "three"}).Open))
	assert.Equal(t, "", readAll(t, source.NewLines("empty", nil).Open))
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.log", "a.log", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644))
	}

	files, err := source.Glob(filepath.Join(dir, "*.log"), filepath.Join(dir, "c.txt"), filepath.Join(dir, "literal-missing"))
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Name()))
	}
	assert.Equal(t, []string{"a.log", "b.log", "c.txt", "literal-missing"}, names)

	_, err = source.Glob(filepath.Join(dir, "*.csv"))
	assert.Error(t, err)
}
