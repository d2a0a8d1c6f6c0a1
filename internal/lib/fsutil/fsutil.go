// Package fsutil contains the directory operations behind native static
// collection.
package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ClearDir removes every entry inside root, keeping root itself.
//
// root is usually a volume mount point, which can not be removed and
// recreated. If root does not exist it is created with dmod.
func ClearDir(root string, dmod fs.FileMode) (removed int, err error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, os.MkdirAll(root, dmod)
	}
	if err != nil {
		return 0, err
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CopyTree copies the files under src into dst, keeping relative paths.
//
// When overwrite is false, files that already exist in dst are left alone;
// this gives the first of several sources precedence. Symlinks to files
// are copied as regular files; symlinks to directories are not followed.
//
// The walk stops with ctx.Err() once ctx is cancelled, so a SIGTERM
// during a large copy is not ignored.
//
// It returns the number of files written.
func CopyTree(ctx context.Context, src, dst string, overwrite bool) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s: not a directory", src)
	}

	copied := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		if fi.IsDir() || !fi.Mode().IsRegular() {
			return nil
		}

		if !overwrite {
			if _, err := os.Lstat(target); err == nil {
				return nil
			}
		}

		if err := CopyFile(path, target, fi.Mode().Perm()); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

// CopyFile copies src to dst with mode fmod, creating parent directories.
func CopyFile(src, dst string, fmod fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := CreateAll(dst, fmod, 0o755)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CreateAll creates a file with its parent directories, if missing.
//
// dmod applies only to newly created directories.
func CreateAll(name string, fmod fs.FileMode, dmod fs.FileMode) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), dmod); err != nil {
		return nil, err
	}
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, fmod)
}
