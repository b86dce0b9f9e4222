package config

const (
	defaultScratchDir    = "~/.local/share/subforge/scratch"
	defaultLogDir        = "~/.local/share/subforge/logs"
	defaultStorageDir    = "~/.local/share/subforge/storage"
	defaultStoragePrefix = "transcriptions"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"

	defaultSilenceMinSeconds = 0.6
	defaultSilenceNoise      = "-30dB"

	defaultChunkMinSeconds     = 30
	defaultChunkMaxSeconds     = 90
	defaultChunkOverlapSeconds = 2

	defaultMaxCharsPerLine   = 42
	defaultMaxLines          = 2
	defaultMinDuration       = 1
	defaultMaxDuration       = 6
	defaultMaxCharsPerSecond = 17
	defaultGapSeconds        = 0.05

	defaultOCRLanguage            = "jpn"
	defaultOCRPSM                 = 6
	defaultOCROEM                 = 1
	defaultOCRFPS                 = 2.0
	defaultOCRScale               = 2
	defaultOCRMinChars            = 2
	defaultOCRMinConfidence       = 30
	defaultOCRCropWidthRatio      = 0.8
	defaultOCRCropHeightRatio     = 0.2
	defaultOCRCropBottomPadding   = 0.02
	defaultOCRLogEvery            = 50
	defaultOCRMinLineConfidence   = 55
	defaultOCRMinLineHeightRatio  = 0.55
	defaultOCRMinLineBottomRatio  = 0.55
	defaultOCRSimilarityThreshold = 90
	defaultOCRMinSegmentSeconds   = 0.9
	defaultOCRMaxBlankSeconds     = 0.5
	defaultOCRMergeGapSeconds     = 0.1

	defaultDownloadMaxAttempts    = 3
	defaultDownloadBackoffSeconds = 5
	defaultDownloadMaxInMemoryMB  = 200
	defaultDownloadChunkBytes     = 8 << 20
	defaultDownloadURLMinutes     = 60
	defaultDownloadHTTPTimeout    = 3600

	defaultSTTDriver            = "whisper"
	defaultWhisperBaseURL       = "https://api.openai.com"
	defaultWhisperModel         = "whisper-1"
	defaultWhisperCppBinary     = "whisper-cli"
	defaultWhisperCppFormat     = "srt"
	defaultWhisperCppTimeout    = 1800
	defaultTranslationDriver    = "deepl"
	defaultTranslationTarget    = "en"
	defaultTranslationBatch     = 50
	defaultTranslationThrottle  = 300
	defaultDeepLBaseURL         = "https://api.deepl.com"
	defaultAzureBaseURL         = "https://api.cognitive.microsofttranslator.com"
	defaultAzureAPIVersion      = "3.0"
	defaultPipelineWorkers      = 4
	defaultStopAfter            = "translate"
	defaultStartTimeoutSecs     = 3600
	defaultChunkTimeoutSecs     = 1800
	defaultTranslateTimeoutSecs = 600
	defaultFinalizeTimeoutSecs  = 600
	defaultProcessTimeoutSecs   = 1200
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir:    defaultScratchDir,
			LogDir:        defaultLogDir,
			StorageDir:    defaultStorageDir,
			StoragePrefix: defaultStoragePrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Silence: Silence{
			MinSeconds: defaultSilenceMinSeconds,
			Noise:      defaultSilenceNoise,
		},
		Chunk: Chunk{
			MinSeconds:     defaultChunkMinSeconds,
			MaxSeconds:     defaultChunkMaxSeconds,
			OverlapSeconds: defaultChunkOverlapSeconds,
		},
		Subtitle: Subtitle{
			MaxCharsPerLine:       defaultMaxCharsPerLine,
			MaxLines:              defaultMaxLines,
			MinDuration:           defaultMinDuration,
			MaxDuration:           defaultMaxDuration,
			MaxCharsPerSecond:     defaultMaxCharsPerSecond,
			GapSeconds:            defaultGapSeconds,
			Source:                "auto",
			FallbackToFirstStream: true,
		},
		OCR: OCR{
			Enabled:             true,
			Language:            defaultOCRLanguage,
			PSM:                 defaultOCRPSM,
			OEM:                 defaultOCROEM,
			FPS:                 defaultOCRFPS,
			Scale:               defaultOCRScale,
			MinChars:            defaultOCRMinChars,
			MinConfidence:       defaultOCRMinConfidence,
			CropWidthRatio:      defaultOCRCropWidthRatio,
			CropHeightRatio:     defaultOCRCropHeightRatio,
			CropBottomPadding:   defaultOCRCropBottomPadding,
			LogEvery:            defaultOCRLogEvery,
			MinLineConfidence:   defaultOCRMinLineConfidence,
			MinLineHeightRatio:  defaultOCRMinLineHeightRatio,
			MinLineBottomRatio:  defaultOCRMinLineBottomRatio,
			SimilarityThreshold: defaultOCRSimilarityThreshold,
			MinSegmentSeconds:   defaultOCRMinSegmentSeconds,
			MaxBlankSeconds:     defaultOCRMaxBlankSeconds,
			MergeGapSeconds:     defaultOCRMergeGapSeconds,
		},
		Languages: Languages{
			Default: "ja",
			Supported: map[string]Language{
				"ja": {
					Name:        "Japanese",
					Translation: map[string]string{"deepl": "JA", "azure": "ja"},
				},
				"zh": {
					Name:        "Chinese",
					Translation: map[string]string{"deepl": "ZH", "azure": "zh-Hans"},
				},
				"ko": {
					Name:        "Korean",
					Translation: map[string]string{"deepl": "KO", "azure": "ko"},
				},
			},
		},
		Download: Download{
			MaxAttempts:          defaultDownloadMaxAttempts,
			BackoffSeconds:       defaultDownloadBackoffSeconds,
			MaxInMemoryMB:        defaultDownloadMaxInMemoryMB,
			ChunkBytes:           defaultDownloadChunkBytes,
			URLExpirationMinutes: defaultDownloadURLMinutes,
			HTTPTimeoutSeconds:   defaultDownloadHTTPTimeout,
		},
		STT: STT{
			Driver: defaultSTTDriver,
			Whisper: Whisper{
				BaseURL: defaultWhisperBaseURL,
				Model:   defaultWhisperModel,
			},
			WhisperCpp: WhisperCpp{
				Binary:         defaultWhisperCppBinary,
				OutputFormat:   defaultWhisperCppFormat,
				TimeoutSeconds: defaultWhisperCppTimeout,
			},
		},
		Translation: Translation{
			Driver:     defaultTranslationDriver,
			Target:     defaultTranslationTarget,
			BatchSize:  defaultTranslationBatch,
			ThrottleMS: defaultTranslationThrottle,
			DeepL: DeepL{
				BaseURL: defaultDeepLBaseURL,
			},
			Azure: Azure{
				BaseURL:       defaultAzureBaseURL,
				APIVersion:    defaultAzureAPIVersion,
				RetryDelaysMS: []int{1000, 2000, 4000, 8000},
			},
		},
		Pipeline: Pipeline{
			Workers:                 defaultPipelineWorkers,
			StopAfter:               defaultStopAfter,
			StartTimeoutSeconds:     defaultStartTimeoutSecs,
			ChunkTimeoutSeconds:     defaultChunkTimeoutSecs,
			TranslateTimeoutSeconds: defaultTranslateTimeoutSecs,
			FinalizeTimeoutSeconds:  defaultFinalizeTimeoutSecs,
			ProcessTimeoutSeconds:   defaultProcessTimeoutSecs,
		},
	}
}
