package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/onscale/onscale-go/internal/encryption"
	"github.com/onscale/onscale-go/internal/fileutil"
	"github.com/onscale/onscale-go/internal/models"
	"github.com/onscale/onscale-go/internal/transfer"
)

// stageDir returns a fresh private scratch directory for one transfer.
// Namespacing by job id keeps concurrently in-flight jobs apart; the
// per-transfer suffix keeps concurrent transfers of the same job from
// deleting each other's staging files.
func (j *Job) stageDir() string {
	return filepath.Join(fileutil.TempDir(), j.data.JobID, uuid.NewString())
}

// downloadRoot is the per-job directory every download helper nests
// under, named after the job when it has a name.
func (j *Job) downloadRoot(downloadDir string) string {
	name := j.data.JobName
	if name == "" {
		name = j.data.JobID
	}
	return filepath.Join(downloadDir, name)
}

// UploadBlob uploads a typed file for this job. Blobs are content-addressed:
// when a blob of the same type with the same content hash already exists,
// the existing blob id is returned and nothing is uploaded.
func (j *Job) UploadBlob(ctx context.Context, blobType models.BlobType, path string) (string, error) {
	hash, err := encryption.HashFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	existing, err := j.svc.api.BlobList(ctx, j.data.JobID)
	if err != nil {
		return "", fmt.Errorf("failed to list blobs of job %s: %w", j.data.JobID, err)
	}
	for _, blob := range existing {
		if blob.BlobType == blobType && blob.Hash == hash {
			j.svc.log.Debug().
				Str("blobId", blob.BlobID).
				Str("file", filepath.Base(path)).
				Msg("blob content already uploaded")
			return blob.BlobID, nil
		}
	}

	uploaded, err := j.svc.api.BlobUpload(ctx, path, &models.Blob{
		ObjectID:   j.data.JobID,
		ObjectType: models.ObjectTypeJob,
		BlobType:   blobType,
		Hash:       hash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %s: %w", filepath.Base(path), err)
	}
	return uploaded.BlobID, nil
}

// UploadBlobChild uploads a file attached to an existing blob, such as
// metadata for a CAD or SimAPI blob.
func (j *Job) UploadBlobChild(ctx context.Context, parentBlobID string, blobType models.BlobType, path string) (string, error) {
	uploaded, err := j.svc.api.BlobChildUpload(ctx, path, &models.Blob{
		ParentBlobID: parentBlobID,
		ObjectType:   models.ObjectTypeJob,
		BlobType:     blobType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload child blob %s: %w", filepath.Base(path), err)
	}
	return uploaded.BlobID, nil
}

// Blobs lists the blobs attached to this job.
func (j *Job) Blobs(ctx context.Context) ([]models.Blob, error) {
	return j.svc.api.BlobList(ctx, j.data.JobID)
}

// UploadFile encrypts a local file with the job's key and pushes it to the
// job's working directory through a presigned upload target.
func (j *Job) UploadFile(ctx context.Context, path string) error {
	key, err := j.AESKey(ctx)
	if err != nil {
		return err
	}
	template, err := j.svc.api.JobUploadURL(ctx, j.data.JobID)
	if err != nil {
		return fmt.Errorf("failed to get upload target for job %s: %w", j.data.JobID, err)
	}

	stageDir := j.stageDir()
	if err := fileutil.MaybeMkdirs(stageDir); err != nil {
		return err
	}
	defer os.RemoveAll(stageDir)

	files := []transfer.FileContext{{
		Name:         filepath.Base(path),
		Dirname:      filepath.Dir(path),
		OriginalName: filepath.Base(path),
		AESKey:       key,
	}}

	encrypted, err := j.svc.transfer.EncryptFiles(files, stageDir, false)
	if err != nil {
		return err
	}
	if _, err := j.svc.transfer.UploadFiles(ctx, encrypted, template); err != nil {
		return err
	}
	j.svc.log.Info().
		Str("jobId", j.data.JobID).
		Str("file", filepath.Base(path)).
		Msg("file uploaded")
	return nil
}

// Files lists the job's stored files, download targets included.
func (j *Job) Files(ctx context.Context) ([]models.JobFile, error) {
	return j.svc.api.JobFilesList(ctx, j.data.JobID)
}

// downloadDecrypt pulls the listed files through the transfer engine,
// decrypting and reassembling chunked files into downloadDir. Files
// without a download target are skipped.
func (j *Job) downloadDecrypt(ctx context.Context, listed []models.JobFile, downloadDir string) ([]transfer.FileContext, error) {
	key, err := j.AESKey(ctx)
	if err != nil {
		return nil, err
	}

	var files []transfer.FileContext
	for _, file := range listed {
		if file.DownloadRequest == nil || file.DownloadRequest.URI == "" {
			j.svc.log.Debug().Str("file", file.FileName).Msg("no download target, skipping")
			continue
		}
		files = append(files, transfer.FileContext{
			Name:   file.FileName,
			URI:    file.DownloadRequest.URI,
			AESKey: key,
		})
	}
	if len(files) == 0 {
		return nil, nil
	}

	tmpDir := j.stageDir()
	if err := fileutil.MaybeMkdirs(tmpDir); err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)
	if err := fileutil.MaybeMkdirs(downloadDir); err != nil {
		return nil, err
	}
	return j.svc.transfer.DownloadDecryptFiles(ctx, files, tmpDir, downloadDir)
}

// DownloadResults downloads every result file of the job into downloadDir,
// decrypting and reassembling chunked files along the way.
func (j *Job) DownloadResults(ctx context.Context, downloadDir string) ([]transfer.FileContext, error) {
	listed, err := j.svc.api.JobFilesList(ctx, j.data.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of job %s: %w", j.data.JobID, err)
	}
	results, err := j.downloadDecrypt(ctx, listed, downloadDir)
	if err != nil {
		return results, fmt.Errorf("failed to download results of job %s: %w", j.data.JobID, err)
	}
	j.svc.log.Info().
		Str("jobId", j.data.JobID).
		Int("files", len(results)).
		Str("dir", downloadDir).
		Msg("results downloaded")
	return results, nil
}

// DownloadSimulationFiles downloads one simulation's files into downloadDir.
func (j *Job) DownloadSimulationFiles(ctx context.Context, simulationID, downloadDir string) ([]transfer.FileContext, error) {
	listed, err := j.svc.api.SimFilesList(ctx, j.data.JobID, simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of simulation %s: %w", simulationID, err)
	}
	return j.downloadDecrypt(ctx, listed, downloadDir)
}

// DownloadJobFiles downloads the job's input files, the ones it was
// submitted with, into downloadDir under the job's job_files directory.
// Result files living in subdirectories are left out.
func (j *Job) DownloadJobFiles(ctx context.Context, downloadDir string) ([]transfer.FileContext, error) {
	listed, err := j.svc.api.JobRootFilesList(ctx, j.data.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of job %s: %w", j.data.JobID, err)
	}

	var rootFiles []models.JobFile
	for _, file := range listed {
		if strings.Contains(file.FileName, "/") {
			continue
		}
		rootFiles = append(rootFiles, file)
	}
	return j.downloadDecrypt(ctx, rootFiles, filepath.Join(j.downloadRoot(downloadDir), "job_files"))
}

// DownloadFile downloads one named input file of the job into downloadDir
// under the job's job_files directory.
func (j *Job) DownloadFile(ctx context.Context, fileName, downloadDir string) ([]transfer.FileContext, error) {
	listed, err := j.svc.api.JobRootFilesList(ctx, j.data.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of job %s: %w", j.data.JobID, err)
	}
	for _, file := range listed {
		if strings.Contains(file.FileName, "/") || file.FileName != fileName {
			continue
		}
		return j.downloadDecrypt(ctx, []models.JobFile{file}, filepath.Join(j.downloadRoot(downloadDir), "job_files"))
	}
	return nil, fmt.Errorf("job %s has no file named %s", j.data.JobID, fileName)
}

// DownloadBlobFile downloads one stored blob into downloadDir, nested
// under the job's blob_files directory and the blob's type. Blobs are
// served decrypted by the portal, so the file lands as-is. A file that
// was already downloaded is skipped.
func (j *Job) DownloadBlobFile(ctx context.Context, blob models.Blob, downloadDir string) (string, error) {
	dir := filepath.Join(j.downloadRoot(downloadDir), "blob_files", string(blob.BlobType))
	path := filepath.Join(dir, blob.OriginalFileName)
	if _, err := os.Stat(path); err == nil {
		j.svc.log.Debug().Str("file", path).Msg("blob file already downloaded")
		return path, nil
	}

	files := []transfer.FileContext{{
		Name:         blob.OriginalFileName,
		OriginalName: blob.OriginalFileName,
		URI:          j.svc.api.BaseURL() + "/blob/download/" + blob.BlobID,
		Headers:      map[string]string{"Authorization": j.svc.token},
	}}
	if _, err := j.svc.transfer.DownloadFiles(ctx, files, dir); err != nil {
		return "", fmt.Errorf("failed to download blob %s: %w", blob.BlobID, err)
	}
	return path, nil
}

// DownloadBlobFiles downloads every blob attached to this job into
// downloadDir, organized by blob type. It returns the local path of each
// downloaded file.
func (j *Job) DownloadBlobFiles(ctx context.Context, downloadDir string) ([]string, error) {
	blobs, err := j.Blobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs of job %s: %w", j.data.JobID, err)
	}

	var paths []string
	for _, blob := range blobs {
		path, err := j.DownloadBlobFile(ctx, blob, downloadDir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	j.svc.log.Info().
		Str("jobId", j.data.JobID).
		Int("files", len(paths)).
		Msg("blob files downloaded")
	return paths, nil
}

// DownloadAll downloads the job's input files, its blobs, and its results
// into downloadDir.
func (j *Job) DownloadAll(ctx context.Context, downloadDir string) error {
	if _, err := j.DownloadJobFiles(ctx, downloadDir); err != nil {
		return err
	}
	if _, err := j.DownloadBlobFiles(ctx, downloadDir); err != nil {
		return err
	}
	_, err := j.DownloadResults(ctx, downloadDir)
	return err
}
