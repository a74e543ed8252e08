package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Writer publishes documents to a fixed path. Each publish replaces the
// file in a single rename so readers never observe a partial document.
type Writer struct {
	path   string
	pretty bool
	gzip   bool
}

// NewWriter returns a Writer for path. With gzipSibling set, a compressed
// copy is also published at path + ".gz".
func NewWriter(path string, pretty, gzipSibling bool) *Writer {
	return &Writer{path: path, pretty: pretty, gzip: gzipSibling}
}

// Path returns the destination of the JSON document.
func (w *Writer) Path() string {
	return w.path
}

// Write encodes and publishes doc. It returns the encoded bytes so callers
// can mirror the exact published payload.
func (w *Writer) Write(doc Document) ([]byte, error) {
	data, err := Marshal(doc, w.pretty)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := WriteFileAtomic(w.path, data, 0o644); err != nil {
		return nil, err
	}
	if w.gzip {
		compressed, err := Compress(data)
		if err != nil {
			return nil, err
		}
		if err := WriteFileAtomic(w.path+".gz", compressed, 0o644); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Read loads the currently published document.
func (w *Writer) Read() (Document, error) {
	return ReadFile(w.path)
}

// ReadFile loads a document from path, transparently inflating ".gz" files.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	if filepath.Ext(path) == ".gz" {
		if data, err = Decompress(data); err != nil {
			return Document{}, err
		}
	}
	return Parse(data)
}

// WriteFileAtomic writes data to a temp file in the destination directory,
// syncs it and renames it over path. On any failure the previous file at
// path is left untouched and the temp file is removed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish %s: %w", path, err)
	}
	syncDir(filepath.Dir(path))
	return nil
}

// syncDir persists the rename. Directory fsync is best effort; some
// platforms reject it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// Compress gzips data at the best compression level.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a gzip payload.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip artifact: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip artifact: %w", err)
	}
	return out, nil
}
