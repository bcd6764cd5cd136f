// Package cli provides file operation commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dfslink/dfslink/internal/api"
	"github.com/dfslink/dfslink/internal/dfspath"
	"github.com/dfslink/dfslink/internal/diskspace"
	"github.com/dfslink/dfslink/internal/events"
	dfshttp "github.com/dfslink/dfslink/internal/http"
	"github.com/dfslink/dfslink/internal/listing"
	"github.com/dfslink/dfslink/internal/models"
	"github.com/dfslink/dfslink/internal/progress"
	"github.com/dfslink/dfslink/internal/transfer"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Long: `List the contents of a directory on the gateway.

Examples:
  dfslink ls
  dfslink ls /docs/reports
  dfslink ls -l /docs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			dir := dfspath.Root()
			if len(args) == 1 {
				dir = dfspath.Normalize(args[0])
			}

			fetcher := listing.NewFetcher(client)
			result, err := fetcher.List(GetContext(), dir)
			if err != nil {
				if api.IsNotFound(err) {
					return fmt.Errorf("%s: no such directory", dir.Display())
				}
				if api.IsAuthError(err) {
					return fmt.Errorf("access denied for %s (check your token with 'dfslink config test')", dir.Display())
				}
				return fmt.Errorf("list %s: %w", dir.Display(), err)
			}

			printListing(result, long)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show sizes and modification times")
	return cmd
}

func printListing(l models.Listing, long bool) {
	for _, d := range l.Directories {
		if long {
			fmt.Printf("%10s  %s/\n", "-", d.Name)
		} else {
			fmt.Printf("%s/\n", d.Name)
		}
	}
	for _, f := range l.Files {
		if long {
			modified := "-"
			if !f.ModifiedAt.IsZero() {
				modified = f.ModifiedAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("%10s  %-16s  %s\n", humanSize(f.Size), modified, f.Name)
		} else {
			fmt.Println(f.Name)
		}
	}
	if l.TotalEntries() == 0 {
		fmt.Println("(empty)")
	}
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload files to the gateway",
		Long: `Upload one or more files concurrently to a remote directory.

All files are launched as one batch; a failure of one file never stops
the others. Failed files are listed at the end with their errors.

Examples:
  dfslink upload data.tar.gz
  dfslink upload *.dat --dir /incoming
  dfslink upload report.pdf notes.txt --dir /docs/reports`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			dest := dfspath.Normalize(destDir)
			bus := events.NewEventBus(1000)
			defer bus.Close()

			orch := transfer.NewOrchestrator(GetContext(), client, dest, bus)
			defer orch.Close()

			ids := orch.AddFiles(args...)
			if len(ids) == 0 {
				return fmt.Errorf("no files queued")
			}

			ui := progress.NewBatchUI(len(ids))
			allEvents := bus.SubscribeAll()
			done := make(chan *events.BatchEvent, 1)
			go func() {
				done <- ui.Listen(allEvents)
			}()

			if n := orch.StartBatch(); n == 0 {
				return fmt.Errorf("no files eligible for upload")
			}

			summary := <-done
			if summary == nil {
				return fmt.Errorf("upload interrupted")
			}

			fmt.Fprintf(ui.Writer(), "Uploaded %d/%d file(s) to %s\n",
				summary.Succeeded, summary.BatchSize, dest.Display())

			if summary.Failed > 0 {
				for _, item := range orch.Items() {
					if item.Status == transfer.StatusFailed {
						fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", item.Name, item.Err)
					}
				}
				return fmt.Errorf("%d of %d uploads failed", summary.Failed, summary.BatchSize)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&destDir, "dir", "d", "/", "Remote destination directory")
	return cmd
}

// newGetCmd creates the 'get' command.
func newGetCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "get <remote-path>",
		Short: "Download a file from the gateway",
		Long: `Download a remote file to the local filesystem.

Examples:
  dfslink get /docs/report.pdf
  dfslink get /docs/report.pdf -o ./downloads/report.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			remote := dfspath.Normalize(args[0])
			if remote.IsRoot() {
				return fmt.Errorf("cannot download the root directory")
			}
			remotePath := remote.Display()
			remotePath = remotePath[:len(remotePath)-1] // Files carry no trailing slash

			local := outputPath
			if local == "" {
				local = remote.Base()
			}

			// When the parent listing knows the file size, make sure it
			// fits locally before streaming.
			fetcher := listing.NewFetcher(client)
			if parent, err := fetcher.List(GetContext(), remote.Parent()); err == nil {
				for _, f := range parent.Files {
					if f.Path == remotePath {
						if err := diskspace.CheckAvailableSpace(local, f.Size, 1.1); err != nil {
							return err
						}
						break
					}
				}
			}

			out, err := os.Create(local)
			if err != nil {
				return fmt.Errorf("create %s: %w", local, err)
			}
			defer out.Close()

			bar := progress.NewSingleBar()
			bar.Start(-1, filepath.Base(local))

			retryCfg := dfshttp.DefaultConfig()
			retryCfg.OnRetry = func(attempt int, err error, errType dfshttp.ErrorType) {
				GetLogger().Warn().
					Int("attempt", attempt).
					Str("class", dfshttp.ErrorTypeName(errType)).
					Err(err).
					Msg("Retrying download")
			}
			err = dfshttp.ExecuteWithRetry(GetContext(), retryCfg, func() error {
				if _, err := out.Seek(0, io.SeekStart); err != nil {
					return err
				}
				if err := out.Truncate(0); err != nil {
					return err
				}
				return client.Download(GetContext(), remotePath, out, func(received int64) {
					bar.Update(received)
				})
			})
			if err != nil {
				bar.Error(err)
				os.Remove(local)
				return fmt.Errorf("download %s: %w", remotePath, err)
			}
			bar.Finish()

			fmt.Printf("Downloaded %s -> %s\n", remotePath, local)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Local output path (default: remote filename)")
	return cmd
}

// newRenameCmd creates the 'rename' command.
func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old-path> <new-path>",
		Short: "Rename or move a remote file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			oldPath := trimDirSlash(dfspath.Normalize(args[0]))
			newPath := trimDirSlash(dfspath.Normalize(args[1]))

			resp, err := client.Rename(GetContext(), oldPath, newPath)
			if err != nil {
				return fmt.Errorf("rename: %w", err)
			}
			if resp.Message != "" {
				fmt.Println(resp.Message)
			} else {
				fmt.Printf("Renamed %s -> %s\n", oldPath, newPath)
			}
			return nil
		},
	}
}

// newDeleteCmd creates the 'delete' command.
func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <remote-path>",
		Short: "Delete a remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			path := trimDirSlash(dfspath.Normalize(args[0]))
			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete %s?", path))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			resp, err := client.Delete(GetContext(), path)
			if err != nil {
				return fmt.Errorf("delete %s: %w", path, err)
			}
			if resp.Message != "" {
				fmt.Println(resp.Message)
			} else {
				fmt.Printf("Deleted %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <remote-path>",
		Short: "Create a remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			path := trimDirSlash(dfspath.Normalize(args[0]))
			resp, err := client.CreateDirectory(GetContext(), path)
			if err != nil {
				return fmt.Errorf("mkdir %s: %w", path, err)
			}
			if resp.Message != "" {
				fmt.Println(resp.Message)
			} else {
				fmt.Printf("Created %s\n", path)
			}
			return nil
		},
	}
}

// trimDirSlash renders a path for gateway operations that address a
// single entry, which take no trailing slash.
func trimDirSlash(p dfspath.Path) string {
	s := p.Display()
	if len(s) > 1 {
		return s[:len(s)-1]
	}
	return s
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
