package filechunk

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/onscale/onscale-go/internal/constants"
)

func writeRandomFile(t *testing.T, path string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return data
}

func TestIsChunk(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"results.csv._00004_00000", true},
		{"results.csv._00004_00003", true},
		{"results.csv", false},
		{"results.csv._0004_00003", false},
		{"results.csv._00004_00003.bak", false},
		{"a._00001_00000", true},
	}
	for _, tt := range tests {
		if got := IsChunk(tt.name); got != tt.want {
			t.Errorf("IsChunk(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBasename(t *testing.T) {
	if got := Basename("large.csv._00004_00001"); got != "large.csv" {
		t.Errorf("Basename = %q, want %q", got, "large.csv")
	}
	if got := Basename("plain.txt"); got != "plain.txt" {
		t.Errorf("Basename on non-chunk = %q, want unchanged", got)
	}
}

func TestChunkRebuildRoundTrip(t *testing.T) {
	buffer := constants.StreamBufferSize

	tests := []struct {
		name      string
		size      int
		chunkSize int64
	}{
		{"small single chunk", 1000, int64(buffer)},
		{"exact buffer multiple", 3 * buffer, int64(buffer)},
		{"one byte over", 2*buffer + 1, int64(buffer)},
		{"larger chunks", 5*buffer + 123, int64(2 * buffer)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "data.bin")
			original := writeRandomFile(t, path, tt.size)

			chunks, err := Chunk(path, tt.chunkSize)
			if err != nil {
				t.Fatalf("Chunk() failed: %v", err)
			}

			// total = ceil(ceil(N/BUFFER)*BUFFER / C)
			reads := (tt.size + buffer - 1) / buffer
			want := (reads*buffer + int(tt.chunkSize) - 1) / int(tt.chunkSize)
			if len(chunks) != want {
				t.Errorf("chunk count = %d, want %d", len(chunks), want)
			}

			// Every chunk name embeds the total and its own index.
			for i, chunk := range chunks {
				wantName := fmt.Sprintf("data.bin._%05d_%05d", want, i)
				if filepath.Base(chunk) != wantName {
					t.Errorf("chunk %d named %q, want %q", i, filepath.Base(chunk), wantName)
				}
			}

			// Rebuild into a fresh location, as the download path does.
			target := filepath.Join(t.TempDir(), "data.bin")
			for _, chunk := range chunks {
				data, err := os.ReadFile(chunk)
				if err != nil {
					t.Fatalf("ReadFile failed: %v", err)
				}
				dest := filepath.Join(filepath.Dir(target), filepath.Base(chunk))
				if err := os.WriteFile(dest, data, 0o644); err != nil {
					t.Fatalf("WriteFile failed: %v", err)
				}
			}

			if err := Rebuild(target); err != nil {
				t.Fatalf("Rebuild() failed: %v", err)
			}

			rebuilt, err := os.ReadFile(target)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if !bytes.Equal(rebuilt, original) {
				t.Error("rebuilt content differs from original")
			}

			// Chunks are removed after a successful rebuild, so rebuilding
			// again must report the explicit no-chunks condition.
			if err := Rebuild(target); !errors.Is(err, ErrNoChunks) {
				t.Errorf("second Rebuild() = %v, want ErrNoChunks", err)
			}
			// And the first rebuild's output is untouched.
			after, _ := os.ReadFile(target)
			if !bytes.Equal(after, original) {
				t.Error("failed rebuild clobbered existing output")
			}
		})
	}
}

func TestChunkNoTrailingEmptyChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aligned.bin")
	writeRandomFile(t, path, 2*constants.StreamBufferSize)

	chunks, err := Chunk(path, int64(constants.StreamBufferSize))
	if err != nil {
		t.Fatalf("Chunk() failed: %v", err)
	}
	for _, chunk := range chunks {
		info, err := os.Stat(chunk)
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if info.Size() == 0 {
			t.Errorf("chunk %s is empty", chunk)
		}
	}
	if len(chunks) != 2 {
		t.Errorf("chunk count = %d, want 2", len(chunks))
	}
}

func TestRebuildNoChunks(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing.bin")
	if err := Rebuild(target); !errors.Is(err, ErrNoChunks) {
		t.Errorf("Rebuild() = %v, want ErrNoChunks", err)
	}
}

func TestRebuildAll(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.bin")
	pathB := filepath.Join(dir, "b.bin")
	dataA := writeRandomFile(t, pathA, 3*constants.StreamBufferSize+7)
	dataB := writeRandomFile(t, pathB, constants.StreamBufferSize+1)

	for _, p := range []string{pathA, pathB} {
		if _, err := Chunk(p, int64(constants.StreamBufferSize)); err != nil {
			t.Fatalf("Chunk() failed: %v", err)
		}
		if err := os.Remove(p); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
	}

	rebuilt, err := RebuildAll(dir)
	if err != nil {
		t.Fatalf("RebuildAll() failed: %v", err)
	}
	if len(rebuilt) != 2 {
		t.Fatalf("rebuilt %d files, want 2", len(rebuilt))
	}

	gotA, _ := os.ReadFile(pathA)
	gotB, _ := os.ReadFile(pathB)
	if !bytes.Equal(gotA, dataA) || !bytes.Equal(gotB, dataB) {
		t.Error("rebuilt content differs from original")
	}

	remaining, err := FindAllChunks(dir)
	if err != nil {
		t.Fatalf("FindAllChunks() failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d chunk files left after RebuildAll", len(remaining))
	}
}
