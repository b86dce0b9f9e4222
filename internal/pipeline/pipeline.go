// Package pipeline drives jobs through the four processing stages: Start,
// ProcessChunk, Translate, and Finalize. Each stage is a worker task; the
// orchestrator owns the collaborators the stages share and the routing
// between them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/media/audio"
	"subforge/internal/ocr"
	"subforge/internal/queue"
	"subforge/internal/services"
	"subforge/internal/stage"
	"subforge/internal/storage"
	"subforge/internal/stt"
	"subforge/internal/subtitles"
	"subforge/internal/translate"
	"subforge/internal/worker"
)

const (
	stopAfterChunks     = "chunks"
	stopAfterTranscribe = "transcribe"
	stopAfterTranslate  = "translate"
)

// Submitter enqueues follow-up stage tasks. *worker.Pool satisfies it.
type Submitter interface {
	Submit(ctx context.Context, task worker.Task) error
}

// Orchestrator wires the stage handlers to the queue store, the storage
// backend, and the media/STT/translation collaborators.
type Orchestrator struct {
	cfg        *config.Config
	store      *queue.Store
	blob       storage.Store
	logger     *slog.Logger
	audio      *audio.Processor
	ocr        *ocr.Extractor
	embedded   *subtitles.Extractor
	stt        stt.Transcriber
	translator translate.Translator
	formatter  *subtitles.Formatter
	submit     Submitter

	seedMu sync.Mutex
	seeded map[int64]stage.Kind
}

// Option overrides a collaborator, primarily for tests.
type Option func(*Orchestrator)

// WithTranscriber replaces the configured speech-to-text provider.
func WithTranscriber(t stt.Transcriber) Option {
	return func(o *Orchestrator) { o.stt = t }
}

// WithTranslator replaces the configured translation provider.
func WithTranslator(t translate.Translator) Option {
	return func(o *Orchestrator) { o.translator = t }
}

// WithAudioProcessor replaces the ffmpeg audio processor.
func WithAudioProcessor(p *audio.Processor) Option {
	return func(o *Orchestrator) { o.audio = p }
}

// WithOCRExtractor replaces the OCR extractor.
func WithOCRExtractor(e *ocr.Extractor) Option {
	return func(o *Orchestrator) { o.ocr = e }
}

// WithEmbeddedExtractor replaces the embedded-subtitle extractor.
func WithEmbeddedExtractor(e *subtitles.Extractor) Option {
	return func(o *Orchestrator) { o.embedded = e }
}

// New constructs the orchestrator, building the STT and translation providers
// from configuration. Unknown drivers fail here, before any stage runs.
func New(cfg *config.Config, store *queue.Store, blob storage.Store, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	componentLogger := logging.NewComponentLogger(logger, "pipeline")

	o := &Orchestrator{
		cfg:       cfg,
		store:     store,
		blob:      blob,
		logger:    componentLogger,
		audio:     audio.NewProcessor(cfg.FFmpegBinary(), cfg.FFprobeBinary(), logger),
		ocr:       ocr.NewExtractor(cfg.FFmpegBinary(), cfg.TesseractBinary(), cfg.OCR, logger),
		embedded:  subtitles.NewExtractor(cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.Subtitle.FallbackToFirstStream, logger),
		formatter: subtitles.NewFormatter(cfg.Subtitle),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.stt == nil {
		transcriber, err := stt.New(cfg.STT, logger)
		if err != nil {
			return nil, err
		}
		o.stt = transcriber
	}
	if o.translator == nil {
		translator, err := translate.New(cfg.Translation, logger)
		if err != nil {
			return nil, err
		}
		o.translator = translator
	}
	return o, nil
}

// Attach registers the stage handlers on the pool and uses it for follow-up
// task submission.
func (o *Orchestrator) Attach(pool *worker.Pool) {
	o.submit = pool
	pool.Register(stage.KindStart, worker.HandlerFunc(o.runStart))
	pool.Register(stage.KindProcessChunk, worker.HandlerFunc(o.runProcessChunk))
	pool.Register(stage.KindTranslate, worker.HandlerFunc(o.runTranslate))
	pool.Register(stage.KindFinalize, worker.HandlerFunc(o.runFinalize))
}

func (o *Orchestrator) enqueue(ctx context.Context, task worker.Task) error {
	if o.submit == nil {
		return fmt.Errorf("no task submitter attached")
	}
	if err := o.submit.Submit(ctx, task); err != nil {
		return err
	}
	o.markDispatched(task)
	return nil
}

func (o *Orchestrator) loadJob(ctx context.Context, jobID int64) (*queue.Job, error) {
	job, err := o.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "load job", fmt.Sprintf("job %d not found", jobID), nil)
	}
	return job, nil
}

// failJob records a terminal failure. Completed jobs are left untouched by
// the store's sticky-failure rule.
func (o *Orchestrator) failJob(ctx context.Context, job *queue.Job, message string) {
	o.logger.Error("job failed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("error_message", message),
	)
	if err := o.store.Fail(ctx, job.ID, message); err != nil {
		o.logger.Error("failed to persist job failure",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) resolveStopAfter(job *queue.Job) string {
	value := strings.ToLower(strings.TrimSpace(job.MetaString("stop_after")))
	if value == "" {
		value = o.cfg.Pipeline.StopAfter
	}
	switch value {
	case stopAfterChunks, stopAfterTranscribe:
		return value
	default:
		return stopAfterTranslate
	}
}

// resolveSourceLanguage returns the job's source language restricted to the
// configured allow-list, preferring ja as the fallback.
func (o *Orchestrator) resolveSourceLanguage(job *queue.Job) string {
	language := strings.ToLower(strings.TrimSpace(job.MetaString("source_language")))
	if language == "" {
		language = o.cfg.Languages.Default
	}
	if _, ok := o.cfg.Languages.Supported[language]; ok {
		return language
	}
	if _, ok := o.cfg.Languages.Supported["ja"]; ok {
		return "ja"
	}
	supported := make([]string, 0, len(o.cfg.Languages.Supported))
	for code := range o.cfg.Languages.Supported {
		supported = append(supported, code)
	}
	if len(supported) == 0 {
		return "ja"
	}
	sort.Strings(supported)
	return supported[0]
}

// resolveSubtitleSource picks where subtitles come from: an explicit
// per-job request wins, otherwise the configured default source.
func (o *Orchestrator) resolveSubtitleSource(job *queue.Job) string {
	requested := strings.ToLower(strings.TrimSpace(job.MetaString("subtitle_source")))
	switch requested {
	case "auto", "embedded", "ocr", "audio":
		return requested
	}
	if job.Meta != nil {
		if prefer, ok := job.Meta["prefer_subtitles"].(bool); ok {
			if prefer {
				return "auto"
			}
			return "audio"
		}
	}
	switch o.cfg.Subtitle.Source {
	case "auto", "embedded", "ocr", "audio":
		return o.cfg.Subtitle.Source
	}
	return "auto"
}

// translationSourceCode maps the internal language code to what the active
// translation provider expects (e.g. zh -> zh-Hans for one provider, ZH for
// another).
func (o *Orchestrator) translationSourceCode(language string) string {
	if entry, ok := o.cfg.Languages.Supported[language]; ok {
		if code := strings.TrimSpace(entry.Translation[o.cfg.Translation.Driver]); code != "" {
			return code
		}
		if code := strings.TrimSpace(entry.Translation["default"]); code != "" {
			return code
		}
	}
	return language
}

func (o *Orchestrator) translationTarget() string {
	target := strings.TrimSpace(o.cfg.Translation.Target)
	if target == "" {
		target = "en"
	}
	return target
}

func (o *Orchestrator) storagePrefix() string {
	return strings.Trim(o.cfg.Paths.StoragePrefix, "/")
}

func (o *Orchestrator) audioStoragePath(job *queue.Job) string {
	return fmt.Sprintf("%s/%s/audio.wav", o.storagePrefix(), job.PublicID)
}

func (o *Orchestrator) chunkStoragePath(job *queue.Job, sequence int) string {
	return fmt.Sprintf("%s/%s/chunks/%d.wav", o.storagePrefix(), job.PublicID, sequence)
}

func (o *Orchestrator) outputStoragePaths(job *queue.Job, languageSuffix string) (srtPath, vttPath string) {
	base := outputBaseName(job.OriginalFilename)
	prefix := fmt.Sprintf("%s/%s/output/%s_%s", o.storagePrefix(), job.PublicID, base, strings.ToLower(languageSuffix))
	return prefix + ".srt", prefix + ".vtt"
}

func outputBaseName(filename string) string {
	base := strings.TrimSpace(filepath.Base(filename))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		return "transcription"
	}
	replacer := strings.NewReplacer("..", "-", "/", "-", "\\", "-")
	return replacer.Replace(base)
}

func (o *Orchestrator) downloadOptions() storage.DownloadOptions {
	return storage.DownloadOptions{
		MaxAttempts:    o.cfg.Download.MaxAttempts,
		BackoffSeconds: o.cfg.Download.BackoffSeconds,
	}
}
