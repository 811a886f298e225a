// Package fileutil holds small file helpers shared by the pipelines.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// PartSuffix marks files still being written.
const PartSuffix = ".part"

// WriteAtomic streams r into dest+".part" and renames it over dest once
// complete. When expected is positive the written size must match it.
// onWrite, when set, receives the running byte count after every write.
func WriteAtomic(dest string, r io.Reader, expected int64, onWrite func(written int64)) (int64, error) {
	part := dest + PartSuffix
	out, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	cleanup := func() {
		_ = out.Close()
		_ = os.Remove(part)
	}

	var w io.Writer = out
	if onWrite != nil {
		w = &countingWriter{w: out, fn: onWrite}
	}
	written, err := io.Copy(w, r)
	if err != nil {
		cleanup()
		return written, err
	}
	if expected > 0 && written != expected {
		cleanup()
		return written, fmt.Errorf("size mismatch: expected %d bytes, wrote %d bytes", expected, written)
	}
	if err := out.Sync(); err != nil {
		cleanup()
		return written, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(part)
		return written, err
	}
	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return written, err
	}
	return written, nil
}

type countingWriter struct {
	w     io.Writer
	fn    func(int64)
	total int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.total += int64(n)
	c.fn(c.total)
	return n, err
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// IsRegular reports whether path is an existing regular file.
func IsRegular(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Tail is an io.Writer that keeps only the last Limit bytes written.
// It is safe for concurrent writers.
type Tail struct {
	Limit int

	mu  sync.Mutex
	buf []byte
}

func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	limit := t.Limit
	if limit <= 0 {
		limit = 4096
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - limit; over > 0 {
		t.buf = append(t.buf[:0:0], t.buf[over:]...)
	}
	return len(p), nil
}

// String returns the retained bytes.
func (t *Tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
