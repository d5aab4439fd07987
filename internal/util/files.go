package util

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// GlobFiles returns the files under root whose slash-separated path relative
// to root matches pattern. Results are absolute and sorted.
func GlobFiles(root, pattern string) ([]string, error) {
	return globPaths(root, pattern, false)
}

// GlobDirectories is GlobFiles for directories. Matched directories are not
// descended into.
func GlobDirectories(root string, patterns ...string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		dirs, err := globPaths(root, p, true)
		if err != nil {
			return nil, err
		}
		out = append(out, dirs...)
	}
	sort.Strings(out)
	return out, nil
}

func globPaths(root, pattern string, dirs bool) ([]string, error) {
	pattern = filepath.ToSlash(pattern)
	if filepath.IsAbs(pattern) || strings.HasPrefix(pattern, "/") {
		rel, err := filepath.Rel(root, filepath.FromSlash(pattern))
		if err != nil {
			return nil, err
		}
		pattern = filepath.ToSlash(rel)
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}

	base := filepath.Join(root, filepath.FromSlash(staticPrefix(pattern)))
	if exists, err := PathExists(base); err != nil || !exists {
		return nil, err
	}

	matches := make([]string, 0)
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." || d.IsDir() != dirs {
			return nil
		}
		if g.Match(filepath.ToSlash(rel)) {
			matches = append(matches, p)
			if dirs {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// staticPrefix returns the leading directory segments of pattern that
// contain no glob syntax.
func staticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	static := make([]string, 0, len(segments))
	for _, s := range segments[:len(segments)-1] {
		if strings.ContainsAny(s, `*?[{\`) {
			break
		}
		static = append(static, s)
	}
	return path.Join(static...)
}

// EnsureCleanDirectory creates dir or empties it if it already exists.
func EnsureCleanDirectory(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, os.ModePerm)
}

// ArchiveDirectory zips every file under dirPath into archivePath, storing
// entries relative to dirPath.
func ArchiveDirectory(dirPath, archivePath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(archivePath), os.ModePerm); err != nil {
		return "", err
	}
	archive, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	defer archive.Close()

	paths := make([]string, 0)
	if err := filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, p)
		}
		return nil
	}); err != nil {
		return "", err
	}
	sort.Strings(paths)

	zw := zip.NewWriter(archive)
	for _, p := range paths {
		name, err := filepath.Rel(dirPath, p)
		if err != nil {
			return "", err
		}
		if err := copyToArchive(zw, p, filepath.ToSlash(name)); err != nil {
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		return "", err
	}

	return archive.Name(), nil
}

func copyToArchive(zw *zip.Writer, p, name string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	zf, err := zw.Create(name)
	if err != nil {
		return err
	}

	if _, err := io.Copy(zf, f); err != nil {
		return err
	}
	return nil
}
