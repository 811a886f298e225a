package fileutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "video.mp4")

	var last int64
	written, err := WriteAtomic(dest, strings.NewReader("hello world"), 11, func(n int64) { last = n })
	if err != nil {
		t.Fatal(err)
	}
	if written != 11 || last != 11 {
		t.Fatalf("written=%d last=%d, want 11", written, last)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: %q", got)
	}
	if Exists(dest + PartSuffix) {
		t.Fatal("part file should be renamed away")
	}
}

func TestWriteAtomicSizeMismatchLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "video.mp4")

	if _, err := WriteAtomic(dest, strings.NewReader("short"), 100, nil); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if Exists(dest) || Exists(dest+PartSuffix) {
		t.Fatal("failed write must not leave files behind")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteAtomicReadError(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "video.mp4")
	if _, err := WriteAtomic(dest, failingReader{}, 0, nil); err == nil {
		t.Fatal("expected read error")
	}
	if Exists(dest + PartSuffix) {
		t.Fatal("part file must be removed on error")
	}
}

func TestIsRegular(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsRegular(file) || IsRegular(dir) || IsRegular("") {
		t.Fatal("IsRegular misclassified paths")
	}
	if !Exists(dir) || Exists(filepath.Join(dir, "missing")) {
		t.Fatal("Exists misclassified paths")
	}
}

func TestTailKeepsLastBytes(t *testing.T) {
	tail := &Tail{Limit: 5}
	_, _ = tail.Write([]byte("abc"))
	_, _ = tail.Write([]byte("defgh"))
	if got := tail.String(); got != "defgh" {
		t.Fatalf("tail = %q", got)
	}
	_, _ = tail.Write(bytes.Repeat([]byte("z"), 10))
	if got := tail.String(); got != "zzzzz" {
		t.Fatalf("tail = %q", got)
	}
}
