// Package transfer moves job files between local disk and the portal's
// presigned storage URIs: encrypt-then-upload, download-then-decrypt, and
// chunked-file reassembly, with an optional parallel worker pool.
package transfer

import "path/filepath"

// FileContext describes one local file moving through the transfer
// pipeline. Values are immutable; the With* methods return modified copies
// so concurrent workers never share mutable state.
type FileContext struct {
	// Name is the file name, possibly carrying a chunk suffix.
	Name string

	// Dirname is the directory holding the file at the current stage.
	Dirname string

	// OriginalName preserves the pre-cleaning name for display.
	OriginalName string

	// URI is the presigned download location, when downloading.
	URI string

	// Headers are sent with the download request. Presigned URIs carry
	// their auth in the URI and leave this nil; portal-served downloads
	// need the Authorization header here.
	Headers map[string]string

	// AESKey is the job's file encryption key.
	AESKey []byte

	// FileHash is the hex MD5 of the file contents, once computed.
	FileHash string
}

// Path returns the file's full path at its current stage.
func (f FileContext) Path() string {
	if f.Dirname == "" {
		return f.Name
	}
	return filepath.Join(f.Dirname, f.Name)
}

// WithDirname returns a copy located in dirname.
func (f FileContext) WithDirname(dirname string) FileContext {
	f.Dirname = dirname
	return f
}

// WithName returns a copy renamed to name.
func (f FileContext) WithName(name string) FileContext {
	f.Name = name
	return f
}

// WithHash returns a copy carrying a content hash.
func (f FileContext) WithHash(hash string) FileContext {
	f.FileHash = hash
	return f
}

// WithURI returns a copy pointing at a presigned URI.
func (f FileContext) WithURI(uri string) FileContext {
	f.URI = uri
	return f
}

// WithHeaders returns a copy carrying download request headers.
func (f FileContext) WithHeaders(headers map[string]string) FileContext {
	f.Headers = headers
	return f
}
