package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/queue"
	"subforge/internal/storage"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Submit and inspect transcription jobs",
	}

	jobCmd.AddCommand(newJobAddCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobRetryCommand(ctx))
	jobCmd.AddCommand(newJobTranslateCommand(ctx))

	return jobCmd
}

func newJobAddCommand(ctx *commandContext) *cobra.Command {
	var language string
	var subtitleSource string
	var stopAfter string
	var preferSubtitles bool

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Queue a video or audio file for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				path, err := config.ExpandPath(args[0])
				if err != nil {
					return err
				}
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("inspect file %q: %w", args[0], err)
				}
				if info.IsDir() {
					return fmt.Errorf("%q is a directory", args[0])
				}

				meta := map[string]any{}
				if value := strings.TrimSpace(language); value != "" {
					meta["source_language"] = strings.ToLower(value)
				}
				if value := strings.TrimSpace(subtitleSource); value != "" {
					meta["subtitle_source"] = strings.ToLower(value)
				}
				if value := strings.TrimSpace(stopAfter); value != "" {
					meta["stop_after"] = strings.ToLower(value)
				}
				if cmd.Flags().Changed("prefer-subtitles") {
					meta["prefer_subtitles"] = preferSubtitles
				}

				ext := filepath.Ext(path)
				contentType := mime.TypeByExtension(ext)
				if contentType == "" {
					contentType = "application/octet-stream"
				}

				job, err := store.NewJob(cmd.Context(), queue.NewJobParams{
					OriginalFilename: filepath.Base(path),
					ContentType:      contentType,
					SizeBytes:        info.Size(),
					Meta:             meta,
				})
				if err != nil {
					return err
				}

				blob, err := ctx.openBlob(cfg)
				if err != nil {
					return err
				}
				storagePath := fmt.Sprintf("%s/%s/source%s",
					strings.Trim(cfg.Paths.StoragePrefix, "/"), job.PublicID, ext)
				if err := storage.StoreFromLocal(blob, path, storagePath); err != nil {
					return fmt.Errorf("store source media: %w", err)
				}

				job.StoragePath = storagePath
				job.Status = queue.StatusUploaded
				if err := store.Update(cmd.Context(), job); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s (%s, %s)\n",
					job.PublicID, job.OriginalFilename, formatSize(job.SizeBytes))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Source language code (default from config)")
	cmd.Flags().StringVar(&subtitleSource, "source", "", "Subtitle source: auto, embedded, ocr, or audio")
	cmd.Flags().StringVar(&stopAfter, "stop-after", "", "Stop the pipeline early: chunks or transcribe")
	cmd.Flags().BoolVar(&preferSubtitles, "prefer-subtitles", false, "Prefer extracting existing subtitles over audio transcription")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				var statuses []queue.Status
				for _, raw := range statusFilters {
					status, ok := queue.ParseStatus(raw)
					if !ok {
						return fmt.Errorf("unknown status %q", raw)
					}
					statuses = append(statuses, status)
				}

				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs found")
					return nil
				}

				rows := buildJobListRows(jobs, shouldColorize(out))
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Job", "File", "Status", "Progress", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var showURLs bool

	cmd := &cobra.Command{
		Use:   "show <job>",
		Short: "Show one job with its chunks and outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				job, err := resolveJob(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Job:       %s (#%d)\n", job.PublicID, job.ID)
				fmt.Fprintf(out, "File:      %s (%s)\n", job.OriginalFilename, formatSize(job.SizeBytes))
				fmt.Fprintf(out, "Status:    %s\n", formatStatusLabel(job.Status, colorize))
				fmt.Fprintf(out, "Duration:  %s\n", formatDuration(job.DurationSeconds))
				fmt.Fprintf(out, "Progress:  %s\n", formatProgress(job))
				if source := job.MetaString("subtitle_source"); source != "" {
					fmt.Fprintf(out, "Subtitles: %s\n", source)
				}
				if job.SRTPath != "" {
					fmt.Fprintf(out, "SRT:       %s\n", job.SRTPath)
				}
				if job.VTTPath != "" {
					fmt.Fprintf(out, "VTT:       %s\n", job.VTTPath)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
				}
				if showURLs {
					if err := printOutputURLs(ctx, cfg, out, job); err != nil {
						return err
					}
				}

				segments, err := store.ListSegments(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Segments:  %d\n", len(segments))

				chunks, err := store.ListChunks(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				if len(chunks) == 0 {
					return nil
				}

				rows := make([][]string, 0, len(chunks))
				for _, chunk := range chunks {
					detail := ""
					if chunk.ErrorMessage != "" {
						detail = chunk.ErrorMessage
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", chunk.Sequence),
						fmt.Sprintf("%.1fs - %.1fs", chunk.StartSeconds, chunk.EndSeconds),
						string(chunk.Status),
						fmt.Sprintf("%d", chunk.SegmentCount),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Chunk", "Window", "Status", "Segments", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showURLs, "urls", false, "Resolve output paths to fetchable URLs")
	return cmd
}

func printOutputURLs(ctx *commandContext, cfg *config.Config, out io.Writer, job *queue.Job) error {
	if job.SRTPath == "" && job.VTTPath == "" {
		return nil
	}
	blob, err := ctx.openBlob(cfg)
	if err != nil {
		return err
	}
	for _, output := range []struct {
		label string
		path  string
	}{
		{"SRT URL", job.SRTPath},
		{"VTT URL", job.VTTPath},
	} {
		if output.path == "" {
			continue
		}
		u, err := blob.TemporaryURL(output.path, time.Hour)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", output.path, err)
		}
		fmt.Fprintf(out, "%s:   %s\n", output.label, u)
	}
	return nil
}

func newJobRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job>",
		Short: "Requeue a failed job from the start of the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				job, err := resolveJob(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if job.Status != queue.StatusFailed {
					return fmt.Errorf("job %s is %s; only failed jobs can be retried", job.PublicID, job.Status)
				}

				job.Status = queue.StatusUploaded
				job.ErrorMessage = ""
				if err := store.Update(cmd.Context(), job); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s requeued; the daemon will pick it up\n", job.PublicID)
				return nil
			})
		},
	}
}

func newJobTranslateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <job>",
		Short: "Request translation for a job that stopped after transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				job, err := resolveJob(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if job.Status != queue.StatusAwaitingTranslation {
					return fmt.Errorf("job %s is %s; only awaiting-translation jobs can be translated", job.PublicID, job.Status)
				}

				job.SetMeta("translate_requested", true)
				job.SetMeta("stop_after", "translate")
				if err := store.Update(cmd.Context(), job); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Translation requested for job %s\n", job.PublicID)
				return nil
			})
		},
	}
}

// resolveJob accepts either a public ID or a numeric row ID.
func resolveJob(ctx context.Context, store *queue.Store, arg string) (*queue.Job, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("job identifier is required")
	}

	job, err := store.GetByPublicID(ctx, arg)
	if err != nil {
		return nil, err
	}
	if job == nil {
		if id, convErr := strconv.ParseInt(arg, 10, 64); convErr == nil {
			job, err = store.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
		}
	}
	if job == nil {
		return nil, fmt.Errorf("no job found for %q", arg)
	}
	return job, nil
}
