// Package stage defines the pipeline's stage vocabulary: which stages exist,
// how often each may be retried, and how long a run may take.
package stage

import (
	"time"

	"subforge/internal/config"
)

// Kind identifies a pipeline stage.
type Kind string

const (
	KindStart        Kind = "start"
	KindProcessChunk Kind = "process-chunk"
	KindTranslate    Kind = "translate"
	KindFinalize     Kind = "finalize"
)

// Policy is the retry and timeout budget for one stage kind.
type Policy struct {
	MaxAttempts int
	Backoff     []time.Duration
	Timeout     time.Duration
}

// BackoffFor returns the delay before the given retry. attempt counts from 1
// for the first retry; past the schedule's end the last delay repeats.
func (p Policy) BackoffFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 || attempt < 1 {
		return 0
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt-1]
}

func seconds(values ...int) []time.Duration {
	out := make([]time.Duration, len(values))
	for i, v := range values {
		out[i] = time.Duration(v) * time.Second
	}
	return out
}

// PolicyFor returns the budget of a stage kind. Chunk processing gets an extra
// attempt because transcription providers fail transiently far more often than
// local media work.
func PolicyFor(kind Kind, cfg config.Pipeline) Policy {
	switch kind {
	case KindStart:
		return Policy{
			MaxAttempts: 3,
			Backoff:     seconds(60, 300, 600),
			Timeout:     time.Duration(cfg.StartTimeoutSeconds) * time.Second,
		}
	case KindProcessChunk:
		return Policy{
			MaxAttempts: 4,
			Backoff:     seconds(60, 180, 300, 600),
			Timeout:     time.Duration(cfg.ChunkTimeoutSeconds) * time.Second,
		}
	case KindTranslate:
		return Policy{
			MaxAttempts: 3,
			Backoff:     seconds(120, 300, 600),
			Timeout:     time.Duration(cfg.TranslateTimeoutSeconds) * time.Second,
		}
	case KindFinalize:
		return Policy{
			MaxAttempts: 3,
			Backoff:     seconds(120, 300, 600),
			Timeout:     time.Duration(cfg.FinalizeTimeoutSeconds) * time.Second,
		}
	default:
		return Policy{MaxAttempts: 1}
	}
}
