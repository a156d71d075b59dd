// Package filechunk splits large files into fixed-size numbered chunk files
// and reassembles them.
//
// Chunk names follow the on-disk format "<basename>._<total:05d>_<index:05d>".
// The total is embedded in every chunk name so a reader can validate
// completeness without a manifest, and the zero-padded fields make plain
// lexicographic sorting equal numeric order. This format is shared with other
// platform clients and must not change.
package filechunk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/onscale/onscale-go/internal/constants"
)

// ErrNoChunks is returned by Rebuild when no chunk files exist for the
// target. Callers distinguish this from a corrupt or partial chunk set.
var ErrNoChunks = errors.New("no chunk files found for target")

var chunkRe = regexp.MustCompile(constants.ChunkPattern)

// IsChunk reports whether filename carries the chunk suffix.
func IsChunk(filename string) bool {
	return chunkRe.MatchString(filename)
}

// Basename strips the chunk suffix from filename, returning the original
// file name. Non-chunk names are returned unchanged.
func Basename(filename string) string {
	return chunkRe.ReplaceAllString(filename, "")
}

// Chunk divides the file at path into chunk files of at most chunkSize bytes
// each, next to the original. It returns the chunk paths in index order. The
// original file is left in place.
//
// The chunk count is a function of the stream buffer as well as chunkSize:
// data is moved in StreamBufferSize reads and a read never spans two chunks,
// so total = ceil(ceil(size/BUFFER)*BUFFER / chunkSize).
func Chunk(path string, chunkSize int64) ([]string, error) {
	if chunkSize < constants.StreamBufferSize {
		return nil, fmt.Errorf("chunk size %d smaller than stream buffer %d", chunkSize, constants.StreamBufferSize)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	buffer := int64(constants.StreamBufferSize)
	reads := (info.Size() + buffer - 1) / buffer
	total := (reads*buffer + chunkSize - 1) / chunkSize
	if total == 0 {
		total = 1
	}

	source, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer source.Close()

	var (
		chunkPaths  []string
		sink        *os.File
		index       int64
		currentSize int64
	)

	openChunk := func() error {
		name := fmt.Sprintf("%s._%05d_%05d", path, total, index)
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create chunk %s: %w", name, err)
		}
		sink = f
		chunkPaths = append(chunkPaths, name)
		return nil
	}

	if err := openChunk(); err != nil {
		return nil, err
	}

	buf := make([]byte, constants.StreamBufferSize)
	for {
		n, rerr := source.Read(buf)
		if n > 0 {
			// A read that would overflow the current chunk starts the next one.
			if currentSize+int64(n) > chunkSize {
				if err := sink.Close(); err != nil {
					return nil, fmt.Errorf("failed to close chunk: %w", err)
				}
				index++
				currentSize = 0
				if err := openChunk(); err != nil {
					return nil, err
				}
			}
			if _, err := sink.Write(buf[:n]); err != nil {
				sink.Close()
				return nil, fmt.Errorf("failed to write chunk: %w", err)
			}
			currentSize += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			sink.Close()
			return nil, fmt.Errorf("failed to read %s: %w", path, rerr)
		}
	}

	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("failed to close chunk: %w", err)
	}
	return chunkPaths, nil
}

// FindTargetChunks returns the chunk files for targetPath in ascending index
// order. The result is empty when the file was never chunked.
func FindTargetChunks(targetPath string) ([]string, error) {
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, err
	}
	dirname, filename := filepath.Split(abs)

	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(filename) + constants.ChunkPattern)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dirname, err)
	}

	var chunks []string
	for _, entry := range entries {
		if !entry.IsDir() && pattern.MatchString(entry.Name()) {
			chunks = append(chunks, filepath.Join(dirname, entry.Name()))
		}
	}
	// ReadDir returns names sorted; zero-padded indices keep that numeric.
	return chunks, nil
}

// Rebuild reassembles the chunk files for targetPath into targetPath itself
// and removes the chunks on success. It returns ErrNoChunks when no matching
// chunk files exist, so rebuilding twice is a deliberate error rather than a
// silent truncation of the rebuilt file.
func Rebuild(targetPath string) error {
	chunks, err := FindTargetChunks(targetPath)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s", ErrNoChunks, targetPath)
	}

	sink, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", targetPath, err)
	}

	for _, chunk := range chunks {
		source, err := os.Open(chunk)
		if err != nil {
			sink.Close()
			return fmt.Errorf("failed to open chunk %s: %w", chunk, err)
		}
		if _, err := io.Copy(sink, source); err != nil {
			source.Close()
			sink.Close()
			return fmt.Errorf("failed to append chunk %s: %w", chunk, err)
		}
		source.Close()
	}

	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", targetPath, err)
	}

	for _, chunk := range chunks {
		if err := os.Remove(chunk); err != nil {
			return fmt.Errorf("failed to remove chunk %s: %w", chunk, err)
		}
	}
	return nil
}

// FindAllChunks returns every chunk file directly inside dirname.
func FindAllChunks(dirname string) ([]string, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dirname, err)
	}

	var chunks []string
	for _, entry := range entries {
		if !entry.IsDir() && IsChunk(entry.Name()) {
			chunks = append(chunks, filepath.Join(dirname, entry.Name()))
		}
	}
	return chunks, nil
}

// RebuildAll rebuilds every chunked file found in dirname and returns the
// basenames of the files that were rebuilt.
func RebuildAll(dirname string) ([]string, error) {
	chunks, err := FindAllChunks(dirname)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var rebuilt []string
	for _, chunk := range chunks {
		base := Basename(filepath.Base(chunk))
		if seen[base] {
			continue
		}
		seen[base] = true
		if err := Rebuild(filepath.Join(dirname, base)); err != nil {
			return rebuilt, err
		}
		rebuilt = append(rebuilt, base)
	}
	return rebuilt, nil
}
