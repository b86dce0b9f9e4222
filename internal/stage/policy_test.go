package stage

import (
	"testing"
	"time"

	"subforge/internal/config"
)

func TestPolicyBudgets(t *testing.T) {
	cfg := config.Pipeline{
		StartTimeoutSeconds:     3600,
		ChunkTimeoutSeconds:     1800,
		TranslateTimeoutSeconds: 3600,
		FinalizeTimeoutSeconds:  600,
	}

	cases := []struct {
		kind     Kind
		attempts int
		backoff  []time.Duration
		timeout  time.Duration
	}{
		{KindStart, 3, []time.Duration{60 * time.Second, 300 * time.Second, 600 * time.Second}, time.Hour},
		{KindProcessChunk, 4, []time.Duration{60 * time.Second, 180 * time.Second, 300 * time.Second, 600 * time.Second}, 30 * time.Minute},
		{KindTranslate, 3, []time.Duration{120 * time.Second, 300 * time.Second, 600 * time.Second}, time.Hour},
		{KindFinalize, 3, []time.Duration{120 * time.Second, 300 * time.Second, 600 * time.Second}, 10 * time.Minute},
	}
	for _, tc := range cases {
		p := PolicyFor(tc.kind, cfg)
		if p.MaxAttempts != tc.attempts {
			t.Errorf("%s: attempts = %d, want %d", tc.kind, p.MaxAttempts, tc.attempts)
		}
		if len(p.Backoff) != len(tc.backoff) {
			t.Errorf("%s: backoff = %v, want %v", tc.kind, p.Backoff, tc.backoff)
			continue
		}
		for i := range p.Backoff {
			if p.Backoff[i] != tc.backoff[i] {
				t.Errorf("%s: backoff[%d] = %v, want %v", tc.kind, i, p.Backoff[i], tc.backoff[i])
			}
		}
		if p.Timeout != tc.timeout {
			t.Errorf("%s: timeout = %v, want %v", tc.kind, p.Timeout, tc.timeout)
		}
	}
}

func TestBackoffForClampsToSchedule(t *testing.T) {
	p := PolicyFor(KindStart, config.Pipeline{})
	if got := p.BackoffFor(0); got != 0 {
		t.Errorf("attempt 0 = %v", got)
	}
	if got := p.BackoffFor(1); got != 60*time.Second {
		t.Errorf("attempt 1 = %v", got)
	}
	if got := p.BackoffFor(99); got != 600*time.Second {
		t.Errorf("attempt 99 = %v", got)
	}
}
