package pipeline

import (
	"os"
	"path/filepath"

	"subforge/internal/logging"
	"subforge/internal/queue"
)

// scratchGuard tracks the intermediate files a stage creates inside the
// per-job scratch directory and removes them on release. Only tracked files
// are removed: concurrent chunk tasks share the job directory, so a stage
// must never delete the whole tree while the job is still in flight.
type scratchGuard struct {
	files []string
}

func (g *scratchGuard) track(path string) string {
	g.files = append(g.files, path)
	return path
}

func (g *scratchGuard) release() {
	for _, file := range g.files {
		os.Remove(file)
	}
}

// jobScratchDir returns (and creates) the job's scratch directory, optionally
// descending into subdirectories.
func (o *Orchestrator) jobScratchDir(job *queue.Job, parts ...string) (string, error) {
	elems := append([]string{o.cfg.Paths.ScratchDir, job.PublicID}, parts...)
	dir := filepath.Join(elems...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// removeJobScratch deletes the job's entire scratch tree. Safe once no stage
// for the job can still be running.
func (o *Orchestrator) removeJobScratch(job *queue.Job) {
	dir := filepath.Join(o.cfg.Paths.ScratchDir, job.PublicID)
	if err := os.RemoveAll(dir); err != nil {
		o.logger.Warn("failed to remove job scratch directory",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String("path", dir),
			logging.Error(err),
		)
	}
}
