package main

import (
	"fmt"
	"strings"
	"time"

	"subforge/internal/queue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiBlue   = "\x1b[34m"
)

func formatStatusLabel(status queue.Status, colorize bool) string {
	parts := strings.Split(string(status), "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	label := strings.Join(parts, " ")
	if !colorize {
		return label
	}
	switch status {
	case queue.StatusCompleted:
		return ansiGreen + label + ansiReset
	case queue.StatusFailed:
		return ansiRed + label + ansiReset
	case queue.StatusProcessing:
		return ansiYellow + label + ansiReset
	default:
		return ansiBlue + label + ansiReset
	}
}

// formatProgress summarizes how far a job has come: chunk counts for the
// audio path, the OCR percentage for subtitle extraction, otherwise a dash.
func formatProgress(job *queue.Job) string {
	if job.ChunksTotal > 0 {
		return fmt.Sprintf("%d/%d chunks", job.ChunksCompleted, job.ChunksTotal)
	}
	if percent := job.MetaFloat("subtitle_progress_percent"); percent > 0 {
		return fmt.Sprintf("%.1f%%", percent)
	}
	return "-"
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	value := float64(bytes)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	for _, suffix := range suffixes {
		value /= unit
		if value < unit || suffix == suffixes[len(suffixes)-1] {
			return fmt.Sprintf("%.1f %s", value, suffix)
		}
	}
	return fmt.Sprintf("%d B", bytes)
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}

func shortID(publicID string) string {
	if len(publicID) > 8 {
		return publicID[:8]
	}
	return publicID
}

func buildJobListRows(jobs []*queue.Job, colorize bool) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			shortID(job.PublicID),
			job.OriginalFilename,
			formatStatusLabel(job.Status, colorize),
			formatProgress(job),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}
