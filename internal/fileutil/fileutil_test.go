package fileutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple.txt", "simple.txt"},
		{"with space.txt", "with_space.txt"},
		{"bad*chars?.dat", "badchars.dat"},
		{"model (v2).flxinp", "model_(v2).flxinp"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := CleanPath(tc.input); got != tc.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestMaybeMkdirsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := MaybeMkdirs(dir); err != nil {
		t.Fatalf("first MaybeMkdirs failed: %v", err)
	}
	if err := MaybeMkdirs(dir); err != nil {
		t.Fatalf("second MaybeMkdirs failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
}

func TestListFilesRecursive(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "top.txt"))
	mustWrite(t, filepath.Join(dir, "sub", "nested.txt"))
	mustWrite(t, filepath.Join(dir, "sub", "deeper", "leaf.txt"))

	rel, err := ListFilesRecursive(dir, true)
	if err != nil {
		t.Fatalf("ListFilesRecursive failed: %v", err)
	}
	sort.Strings(rel)
	want := []string{
		filepath.Join("sub", "deeper", "leaf.txt"),
		filepath.Join("sub", "nested.txt"),
		"top.txt",
	}
	if len(rel) != len(want) {
		t.Fatalf("got %d files, want %d: %v", len(rel), len(want), rel)
	}
	for i := range want {
		if rel[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, rel[i], want[i])
		}
	}

	abs, err := ListFilesRecursive(dir, false)
	if err != nil {
		t.Fatalf("ListFilesRecursive failed: %v", err)
	}
	for _, f := range abs {
		if !isUnder(f, dir) {
			t.Errorf("expected path under %s, got %s", dir, f)
		}
	}
}

func TestFlattenDir(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "keep.txt"))
	mustWrite(t, filepath.Join(dir, "sub", "moved.txt"))
	mustWrite(t, filepath.Join(dir, "sub", "deeper", "also.txt"))

	if err := FlattenDir(dir); err != nil {
		t.Fatalf("FlattenDir failed: %v", err)
	}

	for _, name := range []string{"keep.txt", "moved.txt", "also.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s at top level: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); !os.IsNotExist(err) {
		t.Error("subdirectory should be removed")
	}
}

func TestGzipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	payload := []byte("compressible console output\n")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	gzPath, err := GzipFile(path)
	if err != nil {
		t.Fatalf("GzipFile failed: %v", err)
	}
	if gzPath != path+".gz" {
		t.Errorf("gz path = %s, want %s.gz", gzPath, path)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove original: %v", err)
	}
	outPath, err := GunzipFile(gzPath)
	if err != nil {
		t.Fatalf("GunzipFile failed: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("round trip mismatch: got %q", got)
	}
}

func TestGunzipRejectsWrongExtension(t *testing.T) {
	if _, err := GunzipFile("results.zip"); err == nil {
		t.Error("expected error for non-gzip extension")
	}
}

func TestZipDirUnzipAllRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "results")
	mustWrite(t, filepath.Join(source, "a.txt"))
	mustWrite(t, filepath.Join(source, "nested", "b.txt"))

	zipPath, err := ZipDir(source, true)
	if err != nil {
		t.Fatalf("ZipDir failed: %v", err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Error("source directory should be removed")
	}

	members, err := UnzipAll(filepath.Dir(zipPath))
	if err != nil {
		t.Fatalf("UnzipAll failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("got %d members, want 2: %v", len(members), members)
	}
	if _, err := os.Stat(filepath.Join(source, "nested", "b.txt")); err != nil {
		t.Errorf("expected extracted file: %v", err)
	}
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}
