package config

import (
	"errors"
	"fmt"
	"strings"

	"intohear/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWhisperX(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Engine {
	case EngineWhisperCPP, EngineWhisperX:
	default:
		return fmt.Errorf("transcription.engine must be %q or %q (got %q)", EngineWhisperCPP, EngineWhisperX, c.Transcription.Engine)
	}
	if err := ValidateLanguage(c.Transcription.Language); err != nil {
		return err
	}
	if c.Transcription.Threads < 0 {
		return errors.New("transcription.threads must be >= 0")
	}
	if c.Transcription.ModelDownloadTimeout < 0 {
		return errors.New("transcription.model_download_timeout must be >= 0")
	}
	if !strings.HasPrefix(c.Transcription.ModelBaseURL, "http://") && !strings.HasPrefix(c.Transcription.ModelBaseURL, "https://") {
		return fmt.Errorf("transcription.model_base_url must be an http(s) URL (got %q)", c.Transcription.ModelBaseURL)
	}
	return nil
}

// ValidateLanguage accepts "auto", a language code or word, or a BCP 47 tag.
func ValidateLanguage(value string) error {
	if _, err := language.Resolve(value); err != nil {
		return fmt.Errorf("transcription.language must be \"auto\" or a language tag (got %q)", value)
	}
	return nil
}

func (c *Config) validateWhisperX() error {
	switch c.WhisperX.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("whisperx.vad_method must be \"silero\" or \"pyannote\" (got %q)", c.WhisperX.VADMethod)
	}
	if c.Transcription.Engine == EngineWhisperX && c.WhisperX.VADMethod == "pyannote" && c.WhisperX.HFToken == "" {
		return errors.New("whisperx.hf_token is required when whisperx.vad_method is \"pyannote\". Set HF_TOKEN or edit the config")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Concurrency < 1 {
		return errors.New("batch.concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\" (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	if c.Logging.MaxSizeMB < 0 {
		return errors.New("logging.max_size_mb must be >= 0")
	}
	return nil
}
