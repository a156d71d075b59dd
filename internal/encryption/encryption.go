// Package encryption implements the envelope crypto applied to job files:
// AES-CBC with a zero initialization vector and PKCS7 padding, keyed by the
// per-job symmetric key issued by the portal.
//
// The zero IV and always-applied padding are part of the platform's file
// format; files written here must decrypt with any other platform client.
package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/onscale/onscale-go/internal/constants"
)

// Valid AES key lengths in bytes.
const (
	KeySize128 = 16
	KeySize192 = 24
	KeySize256 = 32
)

var (
	// ErrInvalidPadding indicates ciphertext whose final block does not
	// carry well-formed PKCS7 padding.
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrSamePath indicates that a file operation was asked to write its
	// output over its own input.
	ErrSamePath = errors.New("input and output paths are the same")
)

// FileStatus is the outcome of DecryptFile. Results files that predate
// encryption, or that were written unencrypted server-side, are reported
// explicitly instead of as an error so the caller can move them as-is.
type FileStatus int

const (
	// Decrypted means the output file holds the decrypted plaintext.
	Decrypted FileStatus = iota

	// EmptyInput means the input file has zero length; no output written.
	EmptyInput

	// NotBlockAligned means the input length is not a multiple of the AES
	// block size so it cannot be CBC ciphertext; no output written.
	NotBlockAligned
)

// WasDecrypted reports whether an output file was produced.
func (s FileStatus) WasDecrypted() bool {
	return s == Decrypted
}

func newCBC(key []byte, encrypt bool) (cipher.BlockMode, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if encrypt {
		return cipher.NewCBCEncrypter(block, iv), nil
	}
	return cipher.NewCBCDecrypter(block, iv), nil
}

// pkcs7Pad appends PKCS7 padding. The pad length is always 1..BlockSize, so
// block-aligned input still gains a full padding block.
func pkcs7Pad(data []byte) []byte {
	padding := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// pkcs7Unpad strips PKCS7 padding, verifying every padding byte.
func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrInvalidPadding)
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(data) {
		return nil, fmt.Errorf("%w: pad length %d", ErrInvalidPadding, padding)
	}
	for i := 0; i < padding; i++ {
		if data[len(data)-1-i] != byte(padding) {
			return nil, fmt.Errorf("%w: inconsistent pad bytes", ErrInvalidPadding)
		}
	}
	return data[:len(data)-padding], nil
}

// Encrypt AES-CBC encrypts plaintext with a 16, 24 or 32 byte key.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	mode, err := newCBC(key, true)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext)
	ciphertext := make([]byte, len(padded))
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// Decrypt reverses Encrypt. Empty input decrypts to empty output.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return ciphertext, nil
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}
	mode, err := newCBC(key, false)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	mode.CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

// EncryptFile streams infile through AES-CBC into outfile, padding only the
// final chunk. Output is written through a temporary path and renamed into
// place so a failure never leaves a partial outfile behind.
func EncryptFile(key []byte, infile, outfile string) error {
	if infile == outfile {
		return fmt.Errorf("%w: %s", ErrSamePath, infile)
	}

	info, err := os.Stat(infile)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", infile, err)
	}
	filesize := info.Size()

	mode, err := newCBC(key, true)
	if err != nil {
		return err
	}

	source, err := os.Open(infile)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", infile, err)
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(outfile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpPath := outfile + ".part"
	sink, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}
	defer func() {
		sink.Close()
		os.Remove(tmpPath)
	}()

	// ReadFull keeps every chunk before the last a multiple of the block
	// size, which CryptBlocks requires.
	buf := make([]byte, constants.StreamBufferSize)
	var progress int64
	for {
		n, rerr := io.ReadFull(source, buf)
		if n > 0 {
			chunk := buf[:n]
			progress += int64(n)
			if progress == filesize {
				chunk = pkcs7Pad(chunk)
			}
			ciphertext := make([]byte, len(chunk))
			mode.CryptBlocks(ciphertext, chunk)
			if _, err := sink.Write(ciphertext); err != nil {
				return fmt.Errorf("failed to write ciphertext: %w", err)
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("failed to read %s: %w", infile, rerr)
		}
	}

	// Empty input still produces one padding block.
	if filesize == 0 {
		chunk := pkcs7Pad(nil)
		ciphertext := make([]byte, len(chunk))
		mode.CryptBlocks(ciphertext, chunk)
		if _, err := sink.Write(ciphertext); err != nil {
			return fmt.Errorf("failed to write ciphertext: %w", err)
		}
	}

	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, outfile); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", outfile, err)
	}
	return nil
}

// DecryptFile streams infile through AES-CBC into outfile, unpadding the
// final chunk. Inputs that cannot be ciphertext are reported by status so
// the caller can treat them as plaintext; nothing is written in that case.
func DecryptFile(key []byte, infile, outfile string) (FileStatus, error) {
	if infile == outfile {
		return Decrypted, fmt.Errorf("%w: %s", ErrSamePath, infile)
	}

	info, err := os.Stat(infile)
	if err != nil {
		return Decrypted, fmt.Errorf("failed to stat %s: %w", infile, err)
	}
	filesize := info.Size()
	if filesize == 0 {
		return EmptyInput, nil
	}
	if filesize%aes.BlockSize != 0 {
		return NotBlockAligned, nil
	}

	mode, err := newCBC(key, false)
	if err != nil {
		return Decrypted, err
	}

	source, err := os.Open(infile)
	if err != nil {
		return Decrypted, fmt.Errorf("failed to open %s: %w", infile, err)
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(outfile), 0o755); err != nil {
		return Decrypted, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpPath := outfile + ".part"
	sink, err := os.Create(tmpPath)
	if err != nil {
		return Decrypted, fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}
	defer func() {
		sink.Close()
		os.Remove(tmpPath)
	}()

	buf := make([]byte, constants.StreamBufferSize)
	var progress int64
	for {
		n, rerr := io.ReadFull(source, buf)
		if n > 0 {
			chunk := buf[:n]
			progress += int64(n)
			plaintext := make([]byte, len(chunk))
			mode.CryptBlocks(plaintext, chunk)
			if progress == filesize {
				plaintext, err = pkcs7Unpad(plaintext)
				if err != nil {
					return Decrypted, fmt.Errorf("failed to unpad %s: %w", infile, err)
				}
			}
			if _, err := sink.Write(plaintext); err != nil {
				return Decrypted, fmt.Errorf("failed to write plaintext: %w", err)
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return Decrypted, fmt.Errorf("failed to read %s: %w", infile, rerr)
		}
	}

	if err := sink.Close(); err != nil {
		return Decrypted, fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, outfile); err != nil {
		return Decrypted, fmt.Errorf("failed to finalize %s: %w", outfile, err)
	}
	return Decrypted, nil
}

// HashFile returns the hex MD5 digest of the file at path. This digest is
// the content address used for blob de-duplication.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// DecodeKey decodes the base64 AES key string issued by the portal and
// checks its length.
func DecodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode AES key: %w", err)
	}
	switch len(key) {
	case KeySize128, KeySize192, KeySize256:
		return key, nil
	}
	return nil, fmt.Errorf("invalid AES key length %d", len(key))
}
