package config

import "slices"

const (
	defaultLogDir               = "~/.local/share/intohear/logs"
	defaultHistoryDB            = "~/.local/share/intohear/history.db"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultLogMaxSizeMB         = 10
	defaultYTDLP                = "yt-dlp"
	defaultFFmpeg               = "ffmpeg"
	defaultFFprobe              = "ffprobe"
	defaultWhisperCPP           = "whisper-cli"
	defaultUVX                  = "uvx"
	defaultModel                = "medium"
	defaultLanguage             = "auto"
	defaultModelBaseURL         = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"
	defaultModelDownloadTimeout = 1800
	defaultVADMethod            = "silero"
	defaultBatchConcurrency     = 2

	// EngineWhisperCPP runs whisper.cpp's whisper-cli against a cached ggml model.
	EngineWhisperCPP = "whisper-cpp"
	// EngineWhisperX runs WhisperX through uvx; it manages its own weights.
	EngineWhisperX = "whisperx"
)

// modelNames lists the accepted transcription.model values in menu order.
var modelNames = []string{"tiny", "small", "base", "medium", "large"}

// ModelNames returns the accepted transcription.model values.
func ModelNames() []string {
	return slices.Clone(modelNames)
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ModelDir:  defaultModelDir(),
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Tools: Tools{
			YTDLP:      defaultYTDLP,
			FFmpeg:     defaultFFmpeg,
			FFprobe:    defaultFFprobe,
			WhisperCPP: defaultWhisperCPP,
			UVX:        defaultUVX,
		},
		Transcription: Transcription{
			Model:                defaultModel,
			Engine:               EngineWhisperCPP,
			Language:             defaultLanguage,
			ModelBaseURL:         defaultModelBaseURL,
			ModelDownloadTimeout: defaultModelDownloadTimeout,
		},
		WhisperX: WhisperX{
			VADMethod: defaultVADMethod,
		},
		Batch: Batch{
			Concurrency: defaultBatchConcurrency,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
		},
	}
}
