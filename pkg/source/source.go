// Package source provides line sources for the batch engine: plain and
// compressed files, in-memory readers, and glob expansion of file arguments.
package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// File reads lines from a file on disk. Names ending in ".gz" or ".zst" are
// decompressed transparently.
type File struct {
	path string
}

// NewFile returns a source for path. Nothing is opened until Check or Open.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string { return f.path }

// Check reports whether the file exists, is not a directory and can be
// opened for reading.
func (f *File) Check() error {
	info, err := os.Stat(f.path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.Errorf("%s is a directory", f.path)
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return err
	}
	return fh.Close()
}

func (f *File) Open() (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(f.path, ".gz"):
		zr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, errors.Wrapf(err, "gzip header of %s", f.path)
		}
		return &compressedFile{ReadCloser: zr, file: fh}, nil
	case strings.HasSuffix(f.path, ".zst"):
		dec, err := zstd.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, errors.Wrapf(err, "zstd stream of %s", f.path)
		}
		return &compressedFile{ReadCloser: dec.IOReadCloser(), file: fh}, nil
	}
	return fh, nil
}

// compressedFile closes the decompressor and then the file under it.
type compressedFile struct {
	io.ReadCloser
	file *os.File
}

func (c *compressedFile) Close() error {
	zerr := c.ReadCloser.Close()
	ferr := c.file.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// Reader adapts an io.Reader. It can be opened exactly once; a second Open
// fails because the underlying reader has been consumed.
type Reader struct {
	name   string
	r      io.Reader
	opened bool
}

// NewReader wraps r under the given display name.
func NewReader(name string, r io.Reader) *Reader {
	return &Reader{name: name, r: r}
}

// NewString is a convenience for tests and small inputs.
func NewString(name, text string) *Reader {
	return NewReader(name, strings.NewReader(text))
}

// NewLines builds a source whose content is lines joined by newlines.
func NewLines(name string, lines []string) *Reader {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return NewReader(name, &buf)
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) Check() error {
	if r.r == nil {
		return errors.New("nil reader")
	}
	if r.opened {
		return errors.New("reader already consumed")
	}
	return nil
}

func (r *Reader) Open() (io.ReadCloser, error) {
	if err := r.Check(); err != nil {
		return nil, err
	}
	r.opened = true
	if rc, ok := r.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(r.r), nil
}

// Glob expands each pattern with filepath.Glob and returns the matches as
// file sources. Arguments without glob metacharacters are kept as-is even if
// they do not exist, so that the engine reports them as unreadable instead
// of silently dropping them. Matches of one pattern are sorted; pattern order
// is preserved.
func Glob(patterns ...string) ([]*File, error) {
	var out []*File
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[") {
			out = append(out, NewFile(p))
			continue
		}
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", p)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("pattern %q matched no files", p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			out = append(out, NewFile(m))
		}
	}
	return out, nil
}
