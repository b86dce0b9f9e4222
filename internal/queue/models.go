package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusUploading           Status = "uploading"
	StatusUploaded            Status = "uploaded"
	StatusProcessing          Status = "processing"
	StatusAwaitingTranslation Status = "awaiting-translation"
	StatusCompleted           Status = "completed"
	StatusFailed              Status = "failed"
)

var allStatuses = []Status{
	StatusUploading,
	StatusUploaded,
	StatusProcessing,
	StatusAwaitingTranslation,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known job statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a job status admits no further work.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ChunkStatus represents the lifecycle of a single audio chunk.
type ChunkStatus string

const (
	ChunkPending    ChunkStatus = "pending"
	ChunkProcessing ChunkStatus = "processing"
	ChunkCompleted  ChunkStatus = "completed"
	ChunkFailed     ChunkStatus = "failed"
)

// Job is a transcription job persisted in SQLite.
type Job struct {
	ID               int64
	PublicID         string
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	StoragePath      string
	Status           Status
	DurationSeconds  float64
	AudioPath        string
	SRTPath          string
	VTTPath          string
	ChunksTotal      int
	ChunksCompleted  int
	ErrorMessage     string
	Meta             map[string]any
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MetaString returns a string-valued meta key, or empty when absent.
func (j *Job) MetaString(key string) string {
	if j == nil || j.Meta == nil {
		return ""
	}
	if v, ok := j.Meta[key].(string); ok {
		return v
	}
	return ""
}

// MetaFloat returns a numeric meta key, or 0 when absent.
func (j *Job) MetaFloat(key string) float64 {
	if j == nil || j.Meta == nil {
		return 0
	}
	switch v := j.Meta[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// SetMeta stores a meta key, allocating the map on first use.
func (j *Job) SetMeta(key string, value any) {
	if j.Meta == nil {
		j.Meta = map[string]any{}
	}
	j.Meta[key] = value
}

// Chunk is one audio window of a job.
type Chunk struct {
	ID           int64
	JobID        int64
	Sequence     int
	StartSeconds float64
	EndSeconds   float64
	Status       ChunkStatus
	AudioPath    string
	SegmentCount int
	ErrorMessage string
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Segment is one subtitle cue. SourceText holds the transcribed or extracted
// text, TranslatedText the translation (initially a copy of the source), and
// FormattedText the line-wrapped display form.
type Segment struct {
	ID             int64
	JobID          int64
	ChunkID        *int64
	Sequence       int
	StartSeconds   float64
	EndSeconds     float64
	SourceText     string
	TranslatedText string
	FormattedText  string
}
