package transcribe

import (
	"context"
	"log/slog"
	"time"

	"intohear/internal/language"
	"intohear/internal/logging"
	"intohear/internal/models"
	"intohear/internal/services"
	"intohear/internal/subtitles"
)

// ModelCache provides model artifacts on demand. *models.Store satisfies it.
type ModelCache interface {
	Ensure(ctx context.Context, sel models.Selection) (path string, fetched bool, err error)
}

// Stage runs one engine with the configured model and language.
type Stage struct {
	Engine   Engine
	Models   ModelCache
	Model    models.Selection
	Language string
	Threads  int
	Logger   *slog.Logger
	// Verify checks a model artifact before it is handed to the engine.
	// Nil selects models.Verify.
	Verify func(path string) error
}

// NewStage builds a Stage. lang is resolved to "auto" or an ISO 639-1 code;
// an unknown value falls back to automatic detection.
func NewStage(engine Engine, cache ModelCache, model models.Selection, lang string, threads int, logger *slog.Logger) *Stage {
	resolved, err := language.Resolve(lang)
	if err != nil {
		resolved = language.Auto
	}
	return &Stage{
		Engine:   engine,
		Models:   cache,
		Model:    model,
		Language: resolved,
		Threads:  threads,
		Logger:   logging.NewComponentLogger(logger, "transcription"),
	}
}

// Run recognizes speech in audioPath and returns the ordered segments.
// Engine output files are written under workBase. Segments are returned in
// engine order without re-sorting.
func (s *Stage) Run(ctx context.Context, audioPath, workBase string) ([]subtitles.Segment, error) {
	logger := logging.WithContext(ctx, s.Logger)
	req := Request{
		AudioPath: audioPath,
		Model:     s.Model,
		Language:  s.Language,
		WorkBase:  workBase,
		Threads:   s.Threads,
	}

	if s.Engine.UsesModelArtifact() {
		path, fetched, err := s.Models.Ensure(ctx, s.Model)
		if err != nil {
			return nil, err
		}
		verify := s.Verify
		if verify == nil {
			verify = models.Verify
		}
		if err := verify(path); err != nil {
			return nil, err
		}
		req.ModelPath = path
		attrs := []logging.Attr{
			logging.String("model", s.Model.String()),
			logging.String("model_path", path),
			logging.Bool("fetched", fetched),
		}
		if s.Model.Aliased() {
			attrs = append(attrs, logging.String("artifact", s.Model.Artifact().String()))
		}
		logger.Debug("model artifact ready", logging.Args(attrs...)...)
	}

	started := time.Now()
	seq, err := s.Engine.Recognize(ctx, req)
	if err != nil {
		return nil, err
	}
	segments, err := Collect(seq)
	if err != nil {
		return nil, services.Wrap(services.KindTranscription, "transcription", "decode segments", s.Engine.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.KindCanceled, "transcription", "decode segments", s.Engine.Name(), err)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "segments_collected"),
		logging.String("engine", s.Engine.Name()),
		logging.Int("segments", len(segments)),
		logging.Duration("duration", time.Since(started)),
	}
	if language.IsAuto(s.Language) && len(segments) > 0 {
		if detected := DetectedLanguage(segments); detected != "" {
			attrs = append(attrs, logging.String("detected_language", language.DisplayName(detected)))
		}
	}
	logger.Info("transcription finished", logging.Args(attrs...)...)
	return segments, nil
}

// DetectedLanguage guesses the spoken language from the recognized text.
func DetectedLanguage(segments []subtitles.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, seg.Text)
	}
	return language.DetectText(lines)
}
