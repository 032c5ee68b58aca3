package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"webplayer/services"
	"webplayer/types"
)

var flagFolderID string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the configured Drive folder into the media root once",
	RunE: func(cmd *cobra.Command, args []string) error {
		folderID := cfg.DriveFolderID
		if flagFolderID != "" {
			folderID = flagFolderID
		}
		if folderID == "" {
			return fmt.Errorf("no folder id: set DRIVE_FOLDER_ID or pass --folder")
		}
		if err := os.MkdirAll(cfg.MediaRoot, 0755); err != nil {
			return fmt.Errorf("create media root: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source := services.NewDriveSource(folderID)
		source.WrapWriter = func(name string, size int64, w io.Writer) io.Writer {
			bar := progressbar.DefaultBytes(size, name)
			return io.MultiWriter(w, bar)
		}

		queue := services.NewSyncQueue(cfg.MediaRoot, 1, nil, source)
		queue.Start(ctx)

		job, err := queue.AddJob(source.Name())
		if err != nil {
			return err
		}
		job, err = queue.Wait(ctx, job.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch job.Status {
		case types.JobStatusCompleted:
			fmt.Fprintf(out, "Synced %d files into %s, %d new\n", job.Total, cfg.MediaRoot, len(job.Added))
			for _, name := range job.Added {
				fmt.Fprintf(out, "  + %s\n", name)
			}
			return nil
		case types.JobStatusCancelled:
			return fmt.Errorf("sync cancelled")
		default:
			return fmt.Errorf("sync failed: %s", job.Error)
		}
	},
}

func init() {
	syncCmd.Flags().StringVar(&flagFolderID, "folder", "", "public Drive folder id (overrides DRIVE_FOLDER_ID)")
}
