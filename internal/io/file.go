package ioutils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Exists reports whether any filesystem entry (file, directory, symlink)
// is present at path.
//
// Errors other than "does not exist" (for example permission denied on a
// parent directory) are treated as "not present"; the following write will
// surface them.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// WriteNewFile writes data to a file that must not exist yet.
//
// The file is created with O_EXCL and mode 0644, so concurrent writers
// cannot both create the same path. If writing or closing fails, the
// partially written file is removed.
//
// Example:
//
//	err := WriteNewFile(ctx, "/data/000042.flac", body)
//	if errors.Is(err, fs.ErrExist) {
//	    // someone else created it first
//	}
func WriteNewFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	return nil
}

// WriteFileAtomic writes data to path through a temporary file.
//
// The bytes go to a hidden ".<name>.*.part" file in the same directory,
// which is synced and then renamed onto path. Readers therefore see either
// no file or the complete content, even if the process dies mid-write.
// The temporary file is removed on every failure path.
//
// The final rename is preceded by an existence check; a file that already
// exists at path is never replaced.
func WriteFileAtomic(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}

	if Exists(path) {
		return &fs.PathError{Op: "rename", Path: path, Err: fs.ErrExist}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	committed = true
	return nil
}

// RemoveStaleParts deletes temporary files left in dir by an interrupted
// WriteFileAtomic of a sample. It returns the number of files removed.
//
// Only regular files named ".<6+ digits>.flac.<digits>.part" whose
// modification time is at least minAge in the past are removed. Any other
// hidden ".part" file is left alone, as is the in-flight temp file of
// another process writing into the same directory.
func RemoveStaleParts(dir string, minAge time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ".*.flac.*.part"))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-minAge)
	removed := 0
	var errs []error
	for _, m := range matches {
		if !isSamplePart(filepath.Base(m)) {
			continue
		}
		info, err := os.Lstat(m)
		if err != nil || !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		removed++
	}

	if len(errs) > 0 {
		return removed, fmt.Errorf("removing stale parts: %w", errors.Join(errs...))
	}
	return removed, nil
}

// isSamplePart reports whether name is a temp file WriteFileAtomic creates
// for a sample file, e.g. ".000042.flac.123456789.part".
func isSamplePart(name string) bool {
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".part") {
		return false
	}
	stem, random, ok := strings.Cut(strings.TrimSuffix(name[1:], ".part"), ".flac.")
	return ok && len(stem) >= 6 && isDigits(stem) && isDigits(random)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
