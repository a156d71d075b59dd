package transfer

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/constants"
	"github.com/onscale/onscale-go/internal/encryption"
	"github.com/onscale/onscale-go/internal/filechunk"
	"github.com/onscale/onscale-go/internal/models"
	"github.com/onscale/onscale-go/internal/retry"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestEngine(t *testing.T, workers int) *Engine {
	t.Helper()
	engine, err := NewEngine(&config.Settings{QuietMode: true}, workers)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	// Fail fast instead of sleeping through the transfer retry budget.
	engine.policy = retry.Policy{Timeout: time.Nanosecond}
	return engine
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	return data
}

func TestUploadFilesOctetStream(t *testing.T) {
	content := []byte("solver input deck")

	var (
		gotBody        []byte
		gotContentType string
		gotHeader      string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		gotHeader = r.Header.Get("x-file-name")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "input.flex"), content)

	engine := newTestEngine(t, 1)
	template := &models.HTTPRequest{
		Method:  "POST",
		URI:     server.URL + "/upload",
		Headers: map[string]string{"x-file-name": "#fileName#"},
	}

	files := []FileContext{{Name: "input.flex", Dirname: dir}}
	if _, err := engine.UploadFiles(context.Background(), files, template); err != nil {
		t.Fatalf("UploadFiles: %v", err)
	}
	if !bytes.Equal(gotBody, content) {
		t.Error("uploaded body does not match file content")
	}
	if gotContentType != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want application/octet-stream", gotContentType)
	}
	if gotHeader != "input.flex" {
		t.Errorf("x-file-name = %q, want input.flex", gotHeader)
	}
}

func TestUploadFilesMultipart(t *testing.T) {
	content := []byte("mesh data")

	var (
		gotFields   map[string]string
		gotFileName string
		gotFileBody []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotFields = make(map[string]string)
		for key, values := range r.MultipartForm.Value {
			gotFields[key] = values[0]
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotFileName = header.Filename
		gotFileBody, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mesh.bincad"), content)

	engine := newTestEngine(t, 1)
	template := &models.HTTPRequest{
		Method: "POST",
		URI:    server.URL + "/upload",
		FormFields: map[string]string{
			"key":            "jobs/j1/#fileName#",
			"content-length": "#fileSize#",
		},
	}

	files := []FileContext{{Name: "mesh.bincad", Dirname: dir}}
	if _, err := engine.UploadFiles(context.Background(), files, template); err != nil {
		t.Fatalf("UploadFiles: %v", err)
	}
	if gotFields["key"] != "jobs/j1/mesh.bincad" {
		t.Errorf("key field = %q", gotFields["key"])
	}
	if gotFields["content-length"] != "9" {
		t.Errorf("content-length field = %q", gotFields["content-length"])
	}
	if gotFileName != "mesh.bincad" {
		t.Errorf("file part name = %q", gotFileName)
	}
	if !bytes.Equal(gotFileBody, content) {
		t.Error("file part body does not match")
	}
}

func TestUploadFilesBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("x"))

	engine := newTestEngine(t, 1)
	template := &models.HTTPRequest{Method: "POST", URI: server.URL}

	_, err := engine.UploadFiles(context.Background(), []FileContext{{Name: "a.txt", Dirname: dir}}, template)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("err = %v, want status 500", err)
	}
}

func TestEncryptFilesRemovesOriginals(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	content := randomBytes(t, 1000)
	writeFile(t, filepath.Join(srcDir, "model.flex"), content)

	engine := newTestEngine(t, 1)
	files := []FileContext{{Name: "model.flex", Dirname: srcDir, AESKey: testKey}}

	encrypted, err := engine.EncryptFiles(files, dstDir, true)
	if err != nil {
		t.Fatalf("EncryptFiles: %v", err)
	}
	if len(encrypted) != 1 || encrypted[0].Dirname != dstDir {
		t.Fatalf("unexpected result contexts: %+v", encrypted)
	}
	if _, err := os.Stat(filepath.Join(srcDir, "model.flex")); !os.IsNotExist(err) {
		t.Error("plaintext original was not removed")
	}

	roundTrip := filepath.Join(t.TempDir(), "model.flex")
	status, err := encryption.DecryptFile(testKey, encrypted[0].Path(), roundTrip)
	if err != nil {
		t.Fatalf("DecryptFile: %v", err)
	}
	if !status.WasDecrypted() {
		t.Fatalf("status = %v, want decrypted", status)
	}
	got, err := os.ReadFile(roundTrip)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("round-tripped content does not match")
	}
}

func TestDownloadDecryptFilesRebuildsChunks(t *testing.T) {
	workDir := t.TempDir()
	remoteDir := t.TempDir()

	// A file spanning three stream buffers splits into three chunks at the
	// minimum chunk size.
	content := randomBytes(t, 2*constants.StreamBufferSize+5000)
	srcPath := filepath.Join(workDir, "results.tar")
	writeFile(t, srcPath, content)

	chunks, err := filechunk.Chunk(srcPath, constants.StreamBufferSize)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}

	var files []FileContext
	server := httptest.NewServer(http.FileServer(http.Dir(remoteDir)))
	defer server.Close()
	for _, chunk := range chunks {
		name := filepath.Base(chunk)
		if err := encryption.EncryptFile(testKey, chunk, filepath.Join(remoteDir, name)); err != nil {
			t.Fatalf("EncryptFile: %v", err)
		}
		files = append(files, FileContext{
			Name:   name,
			URI:    server.URL + "/" + name,
			AESKey: testKey,
		})
	}

	engine := newTestEngine(t, 2)
	tmpDir := t.TempDir()
	targetDir := t.TempDir()

	results, err := engine.DownloadDecryptFiles(context.Background(), files, tmpDir, targetDir)
	if err != nil {
		t.Fatalf("DownloadDecryptFiles: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 rebuilt file", len(results))
	}
	if results[0].Name != "results.tar" {
		t.Errorf("result name = %q, want results.tar", results[0].Name)
	}

	got, err := os.ReadFile(filepath.Join(targetDir, "results.tar"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("rebuilt content does not match original")
	}

	wantHash, err := encryption.HashFile(filepath.Join(targetDir, "results.tar"))
	if err != nil {
		t.Fatal(err)
	}
	if results[0].FileHash != wantHash {
		t.Errorf("result hash = %q, want %q", results[0].FileHash, wantHash)
	}

	leftover, err := filechunk.FindAllChunks(targetDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(leftover) != 0 {
		t.Errorf("chunk files left behind: %v", leftover)
	}
}

func TestDownloadDecryptFilesMovesUnencrypted(t *testing.T) {
	remoteDir := t.TempDir()
	// Not a multiple of the AES block size, so it cannot be ciphertext.
	content := []byte("plain log output\n")
	writeFile(t, filepath.Join(remoteDir, "run.log"), content)

	server := httptest.NewServer(http.FileServer(http.Dir(remoteDir)))
	defer server.Close()

	engine := newTestEngine(t, 1)
	tmpDir := t.TempDir()
	targetDir := t.TempDir()

	files := []FileContext{{Name: "run.log", URI: server.URL + "/run.log", AESKey: testKey}}
	results, err := engine.DownloadDecryptFiles(context.Background(), files, tmpDir, targetDir)
	if err != nil {
		t.Fatalf("DownloadDecryptFiles: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	got, err := os.ReadFile(filepath.Join(targetDir, "run.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("moved content does not match")
	}
}

func TestDownloadFilesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	engine := newTestEngine(t, 1)
	files := []FileContext{{Name: "missing.dat", URI: server.URL + "/missing.dat"}}

	_, err := engine.DownloadFiles(context.Background(), files, t.TempDir())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("err = %v, want status 404", err)
	}
}

func TestDownloadFilesSendsHeaders(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("served"))
	}))
	defer server.Close()

	engine := newTestEngine(t, 1)
	files := []FileContext{{
		Name:    "guarded.dat",
		URI:     server.URL + "/guarded.dat",
		Headers: map[string]string{"Authorization": "token-9"},
	}}

	targetDir := t.TempDir()
	downloaded, err := engine.DownloadFiles(context.Background(), files, targetDir)
	if err != nil {
		t.Fatalf("DownloadFiles: %v", err)
	}
	if gotAuth != "token-9" {
		t.Errorf("Authorization = %q, want token-9", gotAuth)
	}
	data, err := os.ReadFile(filepath.Join(targetDir, "guarded.dat"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "served" {
		t.Errorf("content = %q", data)
	}
	if downloaded[0].FileHash == "" {
		t.Error("download did not record a content hash")
	}
}
