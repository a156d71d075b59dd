package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onscale/onscale-go/internal/models"
)

// newFileCmd creates the 'file' command group.
func newFileCmd() *cobra.Command {
	fileCmd := &cobra.Command{
		Use:   "file",
		Short: "Job file operations (upload, download, list)",
	}

	fileCmd.AddCommand(newFileUploadCmd())
	fileCmd.AddCommand(newFileDownloadCmd())
	fileCmd.AddCommand(newFileListCmd())

	return fileCmd
}

// newFileUploadCmd creates the 'file upload' command.
func newFileUploadCmd() *cobra.Command {
	var jobID string
	var asBlob bool

	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload files into a job's working directory",
		Long: `Encrypt and upload files into a job's working directory. With --blob the
file is instead stored as a typed design blob (inferred from the extension)
and skipped entirely when the same content was uploaded before.

Example:
  onscale file upload --job-id j-123 input.flex extra.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("--job-id is required")
			}
			svc, _, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()

			j, err := svc.Load(ctx, jobID)
			if err != nil {
				return err
			}

			for _, path := range args {
				if asBlob {
					blobType := models.BlobTypeForFile(path)
					if blobType == "" {
						return fmt.Errorf("%s has no blob type, upload it without --blob", path)
					}
					blobID, err := j.UploadBlob(ctx, blobType, path)
					if err != nil {
						return err
					}
					fmt.Printf("%s -> blob %s (%s)\n", path, blobID, blobType)
					continue
				}
				if err := j.UploadFile(ctx, path); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")
	cmd.Flags().BoolVar(&asBlob, "blob", false, "Store as a typed design blob with content de-duplication")

	return cmd
}

// newFileDownloadCmd creates the 'file download' command.
func newFileDownloadCmd() *cobra.Command {
	var jobID string
	var simulationID string
	var outDir string
	var blobs bool
	var all bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download and decrypt a job's result files",
		Long: `Download a job's result files into a local directory. Files are decrypted
and chunked files are reassembled on the way. With --blobs the job's design
blobs are fetched instead, organized by blob type; --all grabs input files,
blobs and results in one go.

Example:
  onscale file download --job-id j-123 --out results/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("--job-id is required")
			}
			svc, _, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()

			j, err := svc.Load(ctx, jobID)
			if err != nil {
				return err
			}

			if all {
				if err := j.DownloadAll(ctx, outDir); err != nil {
					return err
				}
				fmt.Printf("Downloaded all job files to %s\n", outDir)
				return nil
			}

			var downloaded int
			if blobs {
				paths, err := j.DownloadBlobFiles(ctx, outDir)
				if err != nil {
					return err
				}
				downloaded = len(paths)
			} else if simulationID != "" {
				files, err := j.DownloadSimulationFiles(ctx, simulationID, outDir)
				if err != nil {
					return err
				}
				downloaded = len(files)
			} else {
				files, err := j.DownloadResults(ctx, outDir)
				if err != nil {
					return err
				}
				downloaded = len(files)
			}
			fmt.Printf("Downloaded %d file(s) to %s\n", downloaded, outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")
	cmd.Flags().StringVar(&simulationID, "simulation-id", "", "Download one simulation's files only")
	cmd.Flags().StringVar(&outDir, "out", ".", "Local target directory")
	cmd.Flags().BoolVar(&blobs, "blobs", false, "Download the job's design blobs instead of results")
	cmd.Flags().BoolVar(&all, "all", false, "Download input files, blobs and results")

	return cmd
}

// newFileListCmd creates the 'file list' command.
func newFileListCmd() *cobra.Command {
	var jobID string
	var blobs bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a job's stored files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobID == "" {
				return fmt.Errorf("--job-id is required")
			}
			svc, _, err := getJobService()
			if err != nil {
				return err
			}
			ctx := GetContext()

			j, err := svc.Load(ctx, jobID)
			if err != nil {
				return err
			}

			if blobs {
				list, err := j.Blobs(ctx)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Println("No blobs")
					return nil
				}
				for _, blob := range list {
					fmt.Printf("%-36s %-12s %10d  %s\n", blob.BlobID, blob.BlobType, blob.FileSize, blob.OriginalFileName)
				}
				return nil
			}

			files, err := j.Files(ctx)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No files")
				return nil
			}
			for _, file := range files {
				fmt.Printf("%10d  %s\n", file.FileSize, file.FileName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (required)")
	cmd.Flags().BoolVar(&blobs, "blobs", false, "List design blobs instead of working-directory files")

	return cmd
}
