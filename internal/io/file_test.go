package ioutils

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "000001.flac")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "000002.flac")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"empty file", file, true},
		{"directory", sub, true},
		{"missing", filepath.Join(dir, "000003.flac"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Exists(tt.path); got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWriteNewFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "000042.flac")
	data := []byte{0x00, 0x01, 0xfe, 0xff, '\n', '\r'}

	if err := WriteNewFile(ctx, path, data); err != nil {
		t.Fatalf("WriteNewFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("content = %v, want %v", got, data)
	}

	err = WriteNewFile(ctx, path, []byte("other"))
	if !errors.Is(err, fs.ErrExist) {
		t.Errorf("second write error = %v, want fs.ErrExist", err)
	}

	got, _ = os.ReadFile(path)
	if !bytes.Equal(got, data) {
		t.Error("existing file was modified")
	}
}

func TestWriteNewFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "000042.flac")

	if err := WriteNewFile(context.Background(), path, []byte("x")); err == nil {
		t.Error("expected error for missing directory, got none")
	}
}

func TestWriteNewFile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "000042.flac")
	if err := WriteNewFile(ctx, path, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if Exists(path) {
		t.Error("file created despite cancelled context")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "000042.flac")
	data := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 1024)

	if err := WriteFileAtomic(ctx, path, data); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("content mismatch")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (temp file left behind?)", len(entries))
	}

	err = WriteFileAtomic(ctx, path, []byte("other"))
	if !errors.Is(err, fs.ErrExist) {
		t.Errorf("second write error = %v, want fs.ErrExist", err)
	}

	entries, _ = os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after refused write, want 1", len(entries))
	}
}

func TestRemoveStaleParts(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)

	files := []struct {
		name string
		old  bool
		kept bool
	}{
		{".000001.flac.123.part", true, false},
		{".000002.flac.456.part", true, false},
		{".1234567.flac.9.part", true, false},
		{".000004.flac.789.part", false, true}, // in flight
		{".my-notes.part", true, true},
		{".x.part", true, true},
		{".42.flac.1.part", true, true},
		{".000005.flac.tmp.part", true, true},
		{".abcdef.flac.1.part", true, true},
		{"000003.flac", true, true},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if f.old {
			if err := os.Chtimes(path, old, old); err != nil {
				t.Fatal(err)
			}
		}
	}

	n, err := RemoveStaleParts(dir, 10*time.Minute)
	if err != nil {
		t.Fatalf("RemoveStaleParts failed: %v", err)
	}
	if n != 3 {
		t.Errorf("removed %d files, want 3", n)
	}
	for _, f := range files {
		if got := Exists(filepath.Join(dir, f.name)); got != f.kept {
			t.Errorf("%s exists = %v, want %v", f.name, got, f.kept)
		}
	}
}

func TestRemoveStaleParts_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, ".000001.flac.1.part")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	n, err := RemoveStaleParts(dir, 0)
	if err != nil || n != 0 {
		t.Errorf("RemoveStaleParts() = %d, %v; want 0, nil", n, err)
	}
	if !Exists(sub) {
		t.Error("directory was removed")
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := EnsureDir(path); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if err := EnsureDir(path); err != nil {
		t.Errorf("EnsureDir on existing dir failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Errorf("%q is not a directory", path)
	}
}
