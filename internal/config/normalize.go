package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeTranscription()
	c.normalizeWhisperX()
	c.normalizeLogging()
	return nil
}

// applyEnv lets environment variables override file values.
func (c *Config) applyEnv() {
	if value, ok := lookupEnv("INTOHEAR_MODEL"); ok {
		c.Transcription.Model = value
	}
	if value, ok := lookupEnv("INTOHEAR_ENGINE"); ok {
		c.Transcription.Engine = value
	}
	if value, ok := lookupEnv("INTOHEAR_LANGUAGE"); ok {
		c.Transcription.Language = value
	}
	if value, ok := lookupEnv("INTOHEAR_TEMP_DIR"); ok {
		c.Paths.TempDir = value
	}
	if value, ok := lookupEnv("INTOHEAR_MODEL_DIR"); ok {
		c.Paths.ModelDir = value
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelDir) == "" {
		c.Paths.ModelDir = defaultModelDir()
	}
	if c.Paths.ModelDir, err = expandPath(c.Paths.ModelDir); err != nil {
		return fmt.Errorf("paths.model_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.YTDLP = defaultString(c.Tools.YTDLP, defaultYTDLP)
	c.Tools.FFmpeg = defaultString(c.Tools.FFmpeg, defaultFFmpeg)
	c.Tools.FFprobe = defaultString(c.Tools.FFprobe, defaultFFprobe)
	c.Tools.WhisperCPP = defaultString(c.Tools.WhisperCPP, defaultWhisperCPP)
	c.Tools.UVX = defaultString(c.Tools.UVX, defaultUVX)
	exts := make([]string, 0, len(c.Tools.PathExtensions))
	for _, ext := range c.Tools.PathExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Tools.PathExtensions = exts
}

// normalizeTranscription maps unknown model names to the default model rather
// than failing, matching the interactive and positional surfaces.
func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.ToLower(strings.TrimSpace(c.Transcription.Model))
	if !slices.Contains(modelNames, c.Transcription.Model) {
		c.Transcription.Model = defaultModel
	}
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	switch c.Transcription.Engine {
	case "", "whisper.cpp", "whispercpp", "whisper-cli":
		c.Transcription.Engine = EngineWhisperCPP
	}
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultLanguage
	}
	c.Transcription.ModelBaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.ModelBaseURL), "/")
	if c.Transcription.ModelBaseURL == "" {
		c.Transcription.ModelBaseURL = defaultModelBaseURL
	}
}

func (c *Config) normalizeWhisperX() {
	c.WhisperX.VADMethod = strings.ToLower(strings.TrimSpace(c.WhisperX.VADMethod))
	if c.WhisperX.VADMethod == "" {
		c.WhisperX.VADMethod = defaultVADMethod
	}
	c.WhisperX.HFToken = strings.TrimSpace(c.WhisperX.HFToken)
	if c.WhisperX.HFToken == "" {
		if value, ok := lookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.WhisperX.HFToken = value
		} else if value, ok := lookupEnv("HF_TOKEN"); ok {
			c.WhisperX.HFToken = value
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
