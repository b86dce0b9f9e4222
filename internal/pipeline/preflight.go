package pipeline

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"subforge/internal/config"
	"subforge/internal/stage"
)

// minScratchFreeBytes is the scratch free-space floor below which the daemon
// refuses to start processing: one source download plus extracted audio and
// frames can easily exceed a few gigabytes.
const minScratchFreeBytes = 2 << 30

// Preflight verifies the external tools and the scratch filesystem before
// any stage runs.
func Preflight(cfg *config.Config) []stage.Health {
	checks := []stage.Health{
		checkBinary("ffmpeg", cfg.FFmpegBinary()),
		checkBinary("ffprobe", cfg.FFprobeBinary()),
	}
	if cfg.OCR.Enabled {
		checks = append(checks, checkBinary("tesseract", cfg.TesseractBinary()))
	}
	checks = append(checks, checkScratchSpace(cfg.Paths.ScratchDir))
	return checks
}

// Ready reports whether every preflight check passed.
func Ready(checks []stage.Health) bool {
	for _, check := range checks {
		if !check.Ready {
			return false
		}
	}
	return true
}

func checkBinary(name, binary string) stage.Health {
	path, err := exec.LookPath(binary)
	if err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("%s not found in PATH", binary))
	}
	return stage.Health{Name: name, Ready: true, Detail: path}
}

func checkScratchSpace(dir string) stage.Health {
	const name = "scratch space"
	if dir == "" {
		return stage.Unhealthy(name, "scratch directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("%s: %v", dir, err))
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("statfs %s: %v", dir, err))
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minScratchFreeBytes {
		return stage.Unhealthy(name, fmt.Sprintf("%s: %.1f GiB free, need at least %.1f GiB",
			dir, float64(free)/(1<<30), float64(minScratchFreeBytes)/(1<<30)))
	}
	return stage.Health{Name: name, Ready: true, Detail: fmt.Sprintf("%s (%.1f GiB free)", dir, float64(free)/(1<<30))}
}
