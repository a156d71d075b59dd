// Package fileutil provides local filesystem helpers shared by the transfer
// and job layers: path cleaning, directory listing, and archive handling for
// downloaded results.
package fileutil

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// validPathChar reports whether c may appear in a cleaned file name.
func validPathChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.ContainsRune("-_.()", c)
}

// CleanPath replaces spaces with underscores and drops characters outside
// the portal's accepted file name set.
func CleanPath(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for _, c := range path {
		if c == ' ' {
			b.WriteRune('_')
			continue
		}
		if validPathChar(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// MaybeMkdirs creates a directory and its parents if missing. Safe to call
// concurrently for the same path.
func MaybeMkdirs(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// TempDir returns the per-process scratch directory used for encrypted
// intermediates. Callers create job-specific subdirectories under it with
// MaybeMkdirs before use.
func TempDir() string {
	return filepath.Join(os.TempDir(), "onscale")
}

// ListDir returns the full paths of the immediate entries of a directory.
func ListDir(dirname string) ([]string, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dirname, err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, filepath.Join(dirname, entry.Name()))
	}
	return paths, nil
}

// ListFilesRecursive returns every regular file under dirname. With
// relative set, paths are given relative to dirname.
func ListFilesRecursive(dirname string, relative bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dirname, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if relative {
			rel, err := filepath.Rel(dirname, path)
			if err != nil {
				return err
			}
			path = rel
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dirname, err)
	}
	return files, nil
}

// FlattenDir moves all files from subdirectories of dirname into dirname
// itself and removes the emptied subdirectories.
func FlattenDir(dirname string) error {
	err := filepath.WalkDir(dirname, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Dir(path) == dirname {
			return nil
		}
		return os.Rename(path, filepath.Join(dirname, d.Name()))
	})
	if err != nil {
		return fmt.Errorf("failed to flatten %s: %w", dirname, err)
	}

	entries, err := os.ReadDir(dirname)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dirname, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := os.RemoveAll(filepath.Join(dirname, entry.Name())); err != nil {
				return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
			}
		}
	}
	return nil
}

// GzipFile compresses path with gzip and returns the compressed file path.
func GzipFile(path string) (string, error) {
	source, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer source.Close()

	outfile := path + ".gz"
	sink, err := os.Create(outfile)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outfile, err)
	}
	defer sink.Close()

	writer := gzip.NewWriter(sink)
	if _, err := io.Copy(writer, source); err != nil {
		return "", fmt.Errorf("failed to compress %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish compressing %s: %w", path, err)
	}
	return outfile, nil
}

// GunzipFile decompresses a .gz or .gzip file next to itself and returns
// the decompressed file path.
func GunzipFile(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext != ".gz" && ext != ".gzip" {
		return "", fmt.Errorf("%s does not appear to be a gzipped file", path)
	}

	source, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer source.Close()

	reader, err := gzip.NewReader(source)
	if err != nil {
		return "", fmt.Errorf("failed to read gzip header of %s: %w", path, err)
	}
	defer reader.Close()

	outfile := strings.TrimSuffix(path, ext)
	sink, err := os.Create(outfile)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outfile, err)
	}
	defer sink.Close()

	if _, err := io.Copy(sink, reader); err != nil {
		return "", fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return outfile, nil
}

// UnzipAll extracts every .zip archive found at the top level of dirname
// into dirname and returns the archive member names extracted.
func UnzipAll(dirname string) ([]string, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dirname, err)
	}

	var extracted []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".zip" {
			continue
		}
		members, err := unzip(filepath.Join(dirname, entry.Name()), dirname)
		if err != nil {
			return nil, err
		}
		extracted = append(extracted, members...)
	}
	return extracted, nil
}

func unzip(archive, destDir string) ([]string, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archive, err)
	}
	defer reader.Close()

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err
	}

	var members []string
	for _, file := range reader.File {
		target := filepath.Join(absDest, file.Name)
		// Reject members that escape the destination directory.
		if !strings.HasPrefix(target, absDest+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive %s contains unsafe path %s", archive, file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := MaybeMkdirs(target); err != nil {
				return nil, err
			}
			continue
		}
		if err := extractMember(file, target); err != nil {
			return nil, fmt.Errorf("failed to extract %s from %s: %w", file.Name, archive, err)
		}
		members = append(members, file.Name)
	}
	return members, nil
}

func extractMember(file *zip.File, target string) error {
	if err := MaybeMkdirs(filepath.Dir(target)); err != nil {
		return err
	}
	source, err := file.Open()
	if err != nil {
		return err
	}
	defer source.Close()

	sink, err := os.Create(target)
	if err != nil {
		return err
	}
	defer sink.Close()

	_, err = io.Copy(sink, source)
	return err
}

// ZipDir zips a directory into <dirname>.zip, with archive member paths
// rooted at the directory's own name. With remove set, the source directory
// is deleted after a successful zip.
func ZipDir(dirname string, remove bool) (string, error) {
	abs, err := filepath.Abs(dirname)
	if err != nil {
		return "", err
	}
	zipName := abs + ".zip"

	sink, err := os.Create(zipName)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", zipName, err)
	}
	defer sink.Close()

	writer := zip.NewWriter(sink)
	parent := filepath.Dir(abs)
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		entry, err := writer.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		source, err := os.Open(path)
		if err != nil {
			return err
		}
		defer source.Close()
		_, err = io.Copy(entry, source)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to zip %s: %w", dirname, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish %s: %w", zipName, err)
	}

	if remove {
		if err := os.RemoveAll(abs); err != nil {
			return "", fmt.Errorf("failed to remove %s: %w", dirname, err)
		}
	}
	return zipName, nil
}
