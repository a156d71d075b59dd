package transfer

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	nethttp "net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/constants"
	"github.com/onscale/onscale-go/internal/encryption"
	"github.com/onscale/onscale-go/internal/filechunk"
	"github.com/onscale/onscale-go/internal/fileutil"
	httpclient "github.com/onscale/onscale-go/internal/http"
	"github.com/onscale/onscale-go/internal/logging"
	"github.com/onscale/onscale-go/internal/models"
	"github.com/onscale/onscale-go/internal/progress"
	"github.com/onscale/onscale-go/internal/retry"
)

// Engine moves files between local disk and presigned storage URIs.
type Engine struct {
	http    *nethttp.Client
	workers int
	quiet   bool
	log     *logging.Logger
	policy  retry.Policy
}

// NewEngine creates a transfer engine. workers controls parallelism: one
// worker processes files sequentially in order, more workers fan out.
func NewEngine(settings *config.Settings, workers int) (*Engine, error) {
	if settings == nil {
		settings = &config.Settings{}
	}
	if workers < 1 {
		workers = 1
	}
	client, err := httpclient.NewTransferClient(settings)
	if err != nil {
		return nil, err
	}
	return &Engine{
		http:    client,
		workers: workers,
		quiet:   settings.QuietMode,
		log:     logging.Global(),
		policy:  retry.Policy{Timeout: constants.TransferRetryTimeout},
	}, nil
}

// EncryptFiles encrypts each file into targetDir with its own AES key.
// With removeOrig set, plaintext originals are deleted after encryption.
func (e *Engine) EncryptFiles(files []FileContext, targetDir string, removeOrig bool) ([]FileContext, error) {
	encrypted := make([]FileContext, 0, len(files))
	for _, file := range files {
		outfile := filepath.Join(targetDir, file.Name)
		if err := encryption.EncryptFile(file.AESKey, file.Path(), outfile); err != nil {
			return nil, fmt.Errorf("failed to encrypt %s: %w", file.Name, err)
		}
		if removeOrig {
			if err := os.Remove(file.Path()); err != nil {
				return nil, fmt.Errorf("failed to remove %s: %w", file.Path(), err)
			}
		}
		encrypted = append(encrypted, file.WithDirname(targetDir))
	}
	return encrypted, nil
}

// UploadFiles pushes files to the portal's presigned upload target. The
// request template is resolved per file, substituting name and size
// placeholders. Uploads with form fields go as multipart posts, the rest as
// raw octet streams.
func (e *Engine) UploadFiles(ctx context.Context, files []FileContext, template *models.HTTPRequest) ([]FileContext, error) {
	transferID := uuid.NewString()
	e.log.Debug().Str("transfer", transferID).Int("files", len(files)).Msg("upload started")
	uploaded, err := runPool(ctx, files, e.workers, func(ctx context.Context, file FileContext) (FileContext, error) {
		err := e.policy.Do(ctx, func() error {
			return e.uploadOne(ctx, file, template)
		})
		if err != nil {
			return file, fmt.Errorf("failed to upload %s: %w", file.Name, err)
		}
		return file, nil
	})
	if err != nil {
		return uploaded, err
	}
	e.log.Debug().Str("transfer", transferID).Int("files", len(uploaded)).Msg("upload finished")
	return uploaded, nil
}

func (e *Engine) uploadOne(ctx context.Context, file FileContext, template *models.HTTPRequest) error {
	info, err := os.Stat(file.Path())
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file.Path(), err)
	}
	req := resolveUploadRequest(template, file.Name, info.Size())

	source, err := os.Open(file.Path())
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Path(), err)
	}
	defer source.Close()

	bar := progress.New(e.quiet)
	bar.Start(info.Size(), "> "+file.Name)
	defer bar.Finish()
	reader := &countingReader{r: source, bar: bar}

	var httpReq *nethttp.Request
	if len(req.FormFields) > 0 {
		httpReq, err = e.multipartRequest(ctx, req, file.Name, reader)
	} else {
		httpReq, err = nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, req.URI, reader)
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/octet-stream")
			httpReq.ContentLength = info.Size()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != nethttp.StatusOK && resp.StatusCode != nethttp.StatusNoContent {
		return fmt.Errorf("upload of %s returned status %d", file.Name, resp.StatusCode)
	}
	e.log.Debug().
		Str("file", file.Name).
		Int64("size", info.Size()).
		Msg("upload complete")
	return nil
}

// multipartRequest streams a multipart body through a pipe so large files
// never sit in memory whole.
func (e *Engine) multipartRequest(ctx context.Context, req *models.HTTPRequest, fileName string, source io.Reader) (*nethttp.Request, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()
		for key, value := range req.FormFields {
			if err = writer.WriteField(key, value); err != nil {
				return
			}
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		header.Set("Content-Type", GuessMimeType(fileName))
		var part io.Writer
		if part, err = writer.CreatePart(header); err != nil {
			return
		}
		if _, err = io.Copy(part, source); err != nil {
			return
		}
		err = writer.Close()
	}()

	httpReq, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, req.URI, pr)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	return httpReq, nil
}

// DownloadDecryptFiles downloads files into tmpDir, decrypts them into
// targetDir (files that were never encrypted are moved as-is), and rebuilds
// any chunked files. The returned contexts describe the final files in
// targetDir with their content hashes.
func (e *Engine) DownloadDecryptFiles(ctx context.Context, files []FileContext, tmpDir, targetDir string) ([]FileContext, error) {
	downloaded, err := e.DownloadFiles(ctx, files, tmpDir)
	if err != nil {
		return nil, err
	}
	decrypted, err := e.decryptFiles(ctx, downloaded, targetDir)
	if err != nil {
		return nil, err
	}
	return rebuildChunkedFiles(decrypted)
}

// DownloadFiles streams each file's presigned URI into targetDir and
// records its content hash.
func (e *Engine) DownloadFiles(ctx context.Context, files []FileContext, targetDir string) ([]FileContext, error) {
	transferID := uuid.NewString()
	e.log.Debug().Str("transfer", transferID).Int("files", len(files)).Msg("download started")
	return runPool(ctx, files, e.workers, func(ctx context.Context, file FileContext) (FileContext, error) {
		path := filepath.Join(targetDir, file.Name)
		err := e.policy.Do(ctx, func() error {
			return e.downloadOne(ctx, file, path)
		})
		if err != nil {
			return file, fmt.Errorf("failed to download %s: %w", file.Name, err)
		}
		hash, err := encryption.HashFile(path)
		if err != nil {
			return file, err
		}
		return file.WithDirname(targetDir).WithHash(hash), nil
	})
}

func (e *Engine) downloadOne(ctx context.Context, file FileContext, path string) error {
	name := file.Name
	if err := fileutil.MaybeMkdirs(filepath.Dir(path)); err != nil {
		return err
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, file.URI, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	for key, value := range file.Headers {
		req.Header.Set(key, value)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return fmt.Errorf("download of %s returned status %d", name, resp.StatusCode)
	}

	sink, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer sink.Close()

	bar := progress.New(e.quiet)
	bar.Start(resp.ContentLength, "> "+name)
	defer bar.Finish()

	written, err := io.Copy(io.MultiWriter(sink, &countingWriter{bar: bar}), resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	e.log.Debug().
		Str("file", name).
		Int64("size", written).
		Msg("download complete")
	return sink.Close()
}

// decryptFiles decrypts each downloaded file into targetDir. Files the
// portal stored unencrypted are moved over unchanged.
func (e *Engine) decryptFiles(ctx context.Context, files []FileContext, targetDir string) ([]FileContext, error) {
	return runPool(ctx, files, e.workers, func(_ context.Context, file FileContext) (FileContext, error) {
		outfile := filepath.Join(targetDir, file.Name)
		status, err := encryption.DecryptFile(file.AESKey, file.Path(), outfile)
		if err != nil {
			return file, fmt.Errorf("failed to decrypt %s: %w", file.Name, err)
		}
		if !status.WasDecrypted() {
			if err := fileutil.MaybeMkdirs(filepath.Dir(outfile)); err != nil {
				return file, err
			}
			if err := os.Rename(file.Path(), outfile); err != nil {
				return file, fmt.Errorf("failed to move %s: %w", file.Name, err)
			}
		}
		return file.WithDirname(targetDir), nil
	})
}

// rebuildChunkedFiles reassembles chunked downloads and drops the chunk
// entries from the result set, replacing them with the rebuilt whole files.
func rebuildChunkedFiles(files []FileContext) ([]FileContext, error) {
	type target struct{ name, dirname string }
	seen := make(map[target]FileContext)
	var whole []FileContext

	for _, file := range files {
		if !filechunk.IsChunk(file.Name) {
			whole = append(whole, file)
			continue
		}
		key := target{name: filechunk.Basename(file.Name), dirname: file.Dirname}
		if _, ok := seen[key]; !ok {
			seen[key] = file.WithName(key.name).WithHash("")
		}
	}

	for key, file := range seen {
		if err := filechunk.Rebuild(file.Path()); err != nil {
			return nil, fmt.Errorf("failed to rebuild %s: %w", key.name, err)
		}
		hash, err := encryption.HashFile(file.Path())
		if err != nil {
			return nil, err
		}
		whole = append(whole, file.WithHash(hash))
	}
	return whole, nil
}

// GuessMimeType returns the mime type for a file path, defaulting to
// application/octet-stream.
func GuessMimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

type countingReader struct {
	r   io.Reader
	bar progress.Reporter
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.bar.Add(int64(n))
	}
	return n, err
}

type countingWriter struct {
	bar progress.Reporter
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.bar.Add(int64(len(p)))
	return len(p), nil
}
