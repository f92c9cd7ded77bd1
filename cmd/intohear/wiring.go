package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"intohear/internal/acquire"
	"intohear/internal/config"
	"intohear/internal/deps"
	"intohear/internal/history"
	"intohear/internal/language"
	"intohear/internal/logging"
	"intohear/internal/models"
	"intohear/internal/normalize"
	"intohear/internal/pipeline"
	"intohear/internal/procexec"
	"intohear/internal/transcribe"
)

// runOptions are per-invocation overrides of the configured transcription
// settings. Empty fields keep the config value.
type runOptions struct {
	Model    string
	Engine   string
	Language string
}

// resolve applies opts on top of cfg and returns the effective model,
// engine, and language.
func (o runOptions) resolve(cfg *config.Config) (models.Selection, string, string, error) {
	model := models.Parse(cfg.Transcription.Model)
	if strings.TrimSpace(o.Model) != "" {
		model = models.Parse(o.Model)
	}

	engine := cfg.Transcription.Engine
	if value := strings.ToLower(strings.TrimSpace(o.Engine)); value != "" {
		switch value {
		case config.EngineWhisperCPP, "whisper.cpp", "whispercpp", "whisper-cli":
			engine = config.EngineWhisperCPP
		case config.EngineWhisperX:
			engine = config.EngineWhisperX
		default:
			return 0, "", "", fmt.Errorf("engine must be %q or %q (got %q)", config.EngineWhisperCPP, config.EngineWhisperX, o.Engine)
		}
	}

	lang := cfg.Transcription.Language
	if value := strings.TrimSpace(o.Language); value != "" {
		if err := config.ValidateLanguage(value); err != nil {
			return 0, "", "", err
		}
		lang = value
	}
	return model, engine, lang, nil
}

// pipelineSet bundles a coordinator with the resources it holds open.
type pipelineSet struct {
	coordinator *pipeline.Coordinator
	models      *models.Store
	history     *history.Store
	model       models.Selection
	engine      transcribe.Engine
	language    string
}

func (p *pipelineSet) Close() error {
	if p == nil || p.history == nil {
		return nil
	}
	return p.history.Close()
}

// buildPipeline wires the stages for cfg and opts. progressOut receives
// model download progress when it is a terminal.
func buildPipeline(cfg *config.Config, logger *slog.Logger, opts runOptions, progressOut io.Writer) (*pipelineSet, error) {
	model, engineName, lang, err := opts.resolve(cfg)
	if err != nil {
		return nil, err
	}

	runner := procexec.NewExecRunner(logger)
	locator := deps.NewLocator(cfg.Tools.PathExtensions)

	downloader := acquire.NewDownloader(cfg.Tools.YTDLP, runner, locator, logger)
	converter := normalize.NewConverter(cfg.Tools.FFmpeg, runner, locator, logger)
	converter.Prober = normalize.NewProber(cfg.Tools.FFprobe, runner)

	var engine transcribe.Engine
	switch engineName {
	case config.EngineWhisperX:
		engine = transcribe.NewWhisperX(transcribe.WhisperXConfig{
			CUDAEnabled: cfg.WhisperX.CUDAEnabled,
			VADMethod:   cfg.WhisperX.VADMethod,
			HFToken:     cfg.WhisperX.HFToken,
		}, cfg.Tools.UVX, runner, locator, logger)
	default:
		engine = transcribe.NewWhisperCPP(cfg.Tools.WhisperCPP, runner, locator, logger)
	}

	store := newModelStore(cfg, logger, progressOut)
	stage := transcribe.NewStage(engine, store, model, lang, cfg.Transcription.Threads, logger)

	coordinator := pipeline.New(downloader, converter, stage, cfg.Paths.TempDir, logger)
	coordinator.Model = model.String()
	coordinator.Engine = engine.Name()

	set := &pipelineSet{
		coordinator: coordinator,
		models:      store,
		model:       model,
		engine:      engine,
		language:    stage.Language,
	}
	if cfg.History.Enabled {
		hist, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.history_db or set [history] enabled = false"),
				logging.String(logging.FieldImpact, "runs are not recorded"),
			)
		} else {
			coordinator.History = hist
			set.history = hist
		}
	}
	if model.Aliased() {
		logger.Info("model alias in effect",
			logging.String("requested", model.String()),
			logging.String("artifact", model.Artifact().String()),
		)
	}
	logger.Debug("pipeline wired",
		logging.String("engine", engine.Name()),
		logging.String("model", model.String()),
		logging.String("language", language.DisplayName(stage.Language)),
	)
	return set, nil
}

func newModelStore(cfg *config.Config, logger *slog.Logger, progressOut io.Writer) *models.Store {
	store := models.NewStore(cfg.Paths.ModelDir, cfg.Transcription.ModelBaseURL, logger)
	store.Timeout = cfg.ModelDownloadTimeout()
	if file, ok := progressOut.(*os.File); ok && isTerminal(file) {
		store.Progress = newDownloadProgress(progressOut)
	}
	return store
}
