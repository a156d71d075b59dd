package api

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onscale/onscale-go/internal/models"
)

func init() {
	backoffUnit = time.Millisecond
}

func newTestClient(t *testing.T, handler nethttp.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClientWithBaseURL(server.URL, "test-token", nil)
	if err != nil {
		t.Fatalf("NewClientWithBaseURL failed: %v", err)
	}
	return client, server
}

func TestAuthorizationHeader(t *testing.T) {
	var gotAuth, gotContentType string
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(models.User{UserID: "u1"})
	}))

	user, err := client.UserDetails(context.Background())
	if err != nil {
		t.Fatalf("UserDetails failed: %v", err)
	}
	if user.UserID != "u1" {
		t.Errorf("user id = %q, want u1", user.UserID)
	}
	if gotAuth != "test-token" {
		t.Errorf("Authorization = %q, want bare token", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestRetryOn5xx(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(models.JobCreateResponse{JobID: "job-1"})
	}))

	jobID, err := client.JobInit(context.Background(), "acct-1", "hpc-1")
	if err != nil {
		t.Fatalf("JobInit failed: %v", err)
	}
	if jobID != "job-1" {
		t.Errorf("job id = %q, want job-1", jobID)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusInternalServerError)
	}))

	_, err := client.JobLoad(context.Background(), "job-1", false, false)
	if err == nil {
		t.Fatal("expected error after retry budget")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("expected 500 APIError, got %v", err)
	}
	// One initial attempt plus MaxRetries retries.
	if got := calls.Load(); got != 6 {
		t.Errorf("server saw %d calls, want 6", got)
	}
}

func Test4xxIsTerminal(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusNotFound)
	}))

	_, err := client.JobLoad(context.Background(), "missing", false, false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 4xx)", got)
	}
}

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, ErrUnauthorized},
		{403, ErrForbidden},
		{404, ErrNotFound},
	}
	for _, tc := range tests {
		err := &APIError{StatusCode: tc.status, Endpoint: "/job/load"}
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d should match %v", tc.status, tc.want)
		}
	}

	// 400 matches no sentinel but is still an APIError.
	err := &APIError{StatusCode: 400, Endpoint: "/job/load"}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
		t.Error("400 should not match the 401/404 sentinels")
	}
}

func TestJobSubmitPayload(t *testing.T) {
	var got models.Job
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/job/submit" {
			t.Errorf("path = %s, want /job/submit", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		got.JobStatus = models.JobStatusQueued
		json.NewEncoder(w).Encode(got)
	}))

	job := &models.Job{
		JobID:         "job-1",
		AccountID:     "acct-1",
		MainFile:      "model.flxinp",
		CoresRequired: 8,
	}
	submitted, err := client.JobSubmit(context.Background(), job)
	if err != nil {
		t.Fatalf("JobSubmit failed: %v", err)
	}
	if got.MainFile != "model.flxinp" || got.CoresRequired != 8 {
		t.Errorf("payload mismatch: %+v", got)
	}
	if submitted.JobStatus != models.JobStatusQueued {
		t.Errorf("status = %s, want QUEUED", submitted.JobStatus)
	}
}

func TestJobStopResponseList(t *testing.T) {
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		json.NewEncoder(w).Encode([]models.StopSimulationResponse{
			{SimulationID: "sim-1", Status: models.SimStatusStopped},
			{SimulationID: "sim-2", Status: models.SimStatusNotFound},
		})
	}))

	stopped, err := client.JobStop(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("JobStop failed: %v", err)
	}
	if len(stopped) != 2 {
		t.Fatalf("got %d rows, want 2", len(stopped))
	}
	if stopped[1].Status != models.SimStatusNotFound {
		t.Errorf("second row status = %s, want NOTFOUND", stopped[1].Status)
	}
}

func TestAESKey(t *testing.T) {
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/job/key" {
			t.Errorf("path = %s, want /job/key", r.URL.Path)
		}
		w.Write([]byte(`{"key":{"plaintextKey":"c2VjcmV0"}}`))
	}))

	key, err := client.AESKey(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("AESKey failed: %v", err)
	}
	if key != "c2VjcmV0" {
		t.Errorf("key = %q", key)
	}
}

func TestBlobUploadMultipart(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "model.py")
	if err := os.WriteFile(filePath, []byte("print('hi')"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not a multipart request: %v", err)
		}
		if got := r.FormValue("blobType"); got != "SIMAPI" {
			t.Errorf("blobType field = %q, want SIMAPI", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		file.Close()
		if header.Filename != "model.py" {
			t.Errorf("file name = %q, want model.py", header.Filename)
		}
		json.NewEncoder(w).Encode(models.Blob{BlobID: "blob-1", BlobType: models.BlobTypeSimAPI})
	}))

	blob := &models.Blob{
		ObjectID:   "job-1",
		ObjectType: models.ObjectTypeJob,
		BlobType:   models.BlobTypeSimAPI,
	}
	uploaded, err := client.BlobUpload(context.Background(), filePath, blob)
	if err != nil {
		t.Fatalf("BlobUpload failed: %v", err)
	}
	if uploaded.BlobID != "blob-1" {
		t.Errorf("blob id = %q, want blob-1", uploaded.BlobID)
	}
}

func TestUntagUsesDelete(t *testing.T) {
	var gotMethod string
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotMethod = r.Method
		json.NewEncoder(w).Encode([]models.Tag{})
	}))

	if _, err := client.UntagJob(context.Background(), "job-1", "nightly"); err != nil {
		t.Fatalf("UntagJob failed: %v", err)
	}
	if gotMethod != nethttp.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
}

func TestContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusInternalServerError)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.JobLoad(ctx, "job-1", false, false); err == nil {
		t.Error("expected error for cancelled context")
	}
}
