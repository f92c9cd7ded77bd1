package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"intohear/internal/acquire"
	"intohear/internal/history"
	"intohear/internal/logging"
	"intohear/internal/services"
	"intohear/internal/subtitles"
)

// Acquirer fetches audio for a remote source into tempBase.<ext>.
type Acquirer interface {
	Fetch(ctx context.Context, source, tempBase string) (string, error)
}

// Normalizer converts input into the fixed-format waveform at output.
type Normalizer interface {
	Convert(ctx context.Context, input, output string) error
}

// Transcriber recognizes speech in a normalized waveform.
type Transcriber interface {
	Run(ctx context.Context, audioPath, workBase string) ([]subtitles.Segment, error)
}

// Recorder persists run outcomes. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Request is one coordinator invocation.
type Request struct {
	Source string
}

// StageTiming records how long one state lasted.
type StageTiming struct {
	State    State
	Duration time.Duration
}

// Result describes a finished run. Document is empty unless the run reached
// StateDone.
type Result struct {
	RunID       string
	Source      string
	LocalSource bool
	Document    string
	Segments    int
	State       State
	FailedStage State
	Stages      []StageTiming
	StartedAt   time.Time
	Duration    time.Duration
}

// Coordinator sequences the pipeline stages for one source at a time. A
// Coordinator holds no per-run state and may serve concurrent Run calls.
type Coordinator struct {
	Acquirer    Acquirer
	Normalizer  Normalizer
	Transcriber Transcriber
	// TempDir holds run artifacts. Empty selects os.TempDir().
	TempDir string
	Logger  *slog.Logger
	History Recorder
	// Model and Engine label history entries.
	Model  string
	Engine string

	newRunID func() string
}

// New returns a Coordinator for the given stages.
func New(acquirer Acquirer, normalizer Normalizer, transcriber Transcriber, tempDir string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		Acquirer:    acquirer,
		Normalizer:  normalizer,
		Transcriber: transcriber,
		TempDir:     tempDir,
		Logger:      logging.NewComponentLogger(logger, "pipeline"),
	}
}

// run carries the per-invocation state of Coordinator.Run.
type run struct {
	machine *fsm.FSM
	result  *Result
	logger  *slog.Logger
}

// Run drives req.Source through every stage and returns the subtitle
// document. Temporary artifacts are removed before Run returns on every
// path, including failure, cancellation, and panic. Stage errors are
// returned unchanged; no partial document is returned with an error.
func (c *Coordinator) Run(ctx context.Context, req Request) (res Result, err error) {
	runID := c.runID()
	source := strings.TrimSpace(req.Source)
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithSource(ctx, source)
	logger := logging.WithContext(ctx, c.logger())

	res = Result{RunID: runID, Source: source, State: StateIdle, StartedAt: time.Now()}
	r := &run{result: &res, logger: logger}
	r.machine = newMachine(func(_ context.Context, from, to State) {
		res.State = to
		logger.Debug("pipeline state changed",
			logging.String("from", string(from)),
			logging.String("to", string(to)),
			logging.String(logging.FieldEventType, "state_transition"),
		)
	})

	scope, err := NewArtifacts(c.TempDir, runID)
	if err != nil {
		r.fail(ctx, StateIdle)
		return res, services.Wrap(services.KindAcquisition, "pipeline", "prepare temp dir", c.TempDir, err)
	}

	completed := false
	defer func() {
		if cleanupErr := scope.Cleanup(); cleanupErr != nil {
			logging.WarnWithContext(logger, "temporary artifact cleanup incomplete", "cleanup_failed",
				logging.Error(cleanupErr),
				logging.String(logging.FieldErrorHint, "remove intohear-"+runID+"-* from the temp directory"),
				logging.String(logging.FieldImpact, "temporary audio files remain on disk"),
			)
		}
		if err == nil && !completed {
			// panicking; the panic continues after cleanup
			return
		}
		res.Duration = time.Since(res.StartedAt)
		if err != nil {
			res.Document = ""
		}
		c.finish(ctx, logger, res, err)
	}()

	logger.Info("pipeline run started", logging.String(logging.FieldEventType, "run_started"))

	if source == "" {
		err = services.Wrap(services.KindAcquisition, string(StateAcquiring), "validate", "empty source reference", nil)
		r.fail(ctx, StateIdle)
		return res, err
	}

	var rawPath string
	err = r.stage(ctx, eventAcquire, services.KindAcquisition, func(ctx context.Context) error {
		if local, ok := acquire.ResolveLocal(source); ok {
			res.LocalSource = true
			rawPath = local
			logger.Info("using local audio file", logging.String("path", local))
			return nil
		}
		path, fetchErr := c.Acquirer.Fetch(ctx, source, scope.Base()+"-source")
		if fetchErr != nil {
			return fetchErr
		}
		scope.Track(path)
		rawPath = path
		return nil
	})
	if err != nil {
		return res, err
	}

	wavPath := scope.Path("audio.wav")
	err = r.stage(ctx, eventNormalize, services.KindNormalization, func(ctx context.Context) error {
		return c.Normalizer.Convert(ctx, rawPath, wavPath)
	})
	if err != nil {
		return res, err
	}

	var segments []subtitles.Segment
	err = r.stage(ctx, eventTranscribe, services.KindTranscription, func(ctx context.Context) error {
		var runErr error
		segments, runErr = c.Transcriber.Run(ctx, wavPath, scope.Base()+"-transcript")
		return runErr
	})
	if err != nil {
		return res, err
	}

	var document string
	err = r.stage(ctx, eventFormat, services.KindTranscription, func(context.Context) error {
		document = subtitles.FormatSRT(segments)
		return nil
	})
	if err != nil {
		return res, err
	}

	if transitionErr := r.machine.Event(context.WithoutCancel(ctx), eventFinish); transitionErr != nil {
		err = services.Wrap(services.KindTranscription, "pipeline", "finish", "invalid state transition", transitionErr)
		return res, err
	}
	res.Document = document
	res.Segments = len(segments)
	completed = true
	return res, nil
}

// stage enters the state for event, runs fn, and moves to failed when fn
// errors. Cancellation observed before the stage starts fails the run
// without entering it.
func (r *run) stage(ctx context.Context, event string, kind services.Kind, fn func(context.Context) error) error {
	current := State(r.machine.Current())
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.fail(ctx, current)
		return services.Wrap(services.KindCanceled, string(current), "cancel", "run canceled", ctxErr)
	}
	if err := r.machine.Event(context.WithoutCancel(ctx), event); err != nil {
		r.fail(ctx, current)
		return services.Wrap(kind, event, "transition", "invalid state transition", err)
	}
	state := State(r.machine.Current())
	started := time.Now()
	err := fn(services.WithStage(ctx, string(state)))
	r.result.Stages = append(r.result.Stages, StageTiming{State: state, Duration: time.Since(started)})
	if err != nil {
		r.fail(ctx, state)
		return asStageError(kind, state, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.fail(ctx, state)
		return services.Wrap(services.KindCanceled, string(state), "cancel", "run canceled", ctxErr)
	}
	return nil
}

func (r *run) fail(ctx context.Context, stage State) {
	r.result.FailedStage = stage
	// fsm drops transitions on a done context; failing must still land
	if err := r.machine.Event(context.WithoutCancel(ctx), eventFail); err != nil {
		r.logger.Debug("fail transition rejected", logging.Error(err))
		r.result.State = StateFailed
	}
}

// asStageError keeps StageErrors intact and tags anything else with the
// taxonomy of the stage that produced it.
func asStageError(kind services.Kind, state State, err error) error {
	if _, ok := services.Details(err); ok {
		return err
	}
	return services.Wrap(kind, string(state), "run", "stage failed", err)
}

func (c *Coordinator) finish(ctx context.Context, logger *slog.Logger, res Result, runErr error) {
	entry := history.Entry{
		RunID:       res.RunID,
		Source:      res.Source,
		LocalSource: res.LocalSource,
		Model:       c.Model,
		Engine:      c.Engine,
		Status:      history.StatusSucceeded,
		Segments:    res.Segments,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.StartedAt.Add(res.Duration),
	}
	if runErr != nil {
		entry.Status = history.StatusFailed
		entry.FailedStage = string(res.FailedStage)
		entry.ErrorMessage = runErr.Error()
		kind, _ := services.KindOf(runErr)
		entry.ErrorKind = string(kind)
		if kind == services.KindCanceled || errors.Is(runErr, context.Canceled) {
			entry.Status = history.StatusCanceled
			logger.Info("pipeline run canceled",
				logging.String("failed_stage", string(res.FailedStage)),
				logging.String(logging.FieldEventType, "run_canceled"),
			)
		} else {
			attrs := append([]logging.Attr{logging.String("failed_stage", string(res.FailedStage))}, logging.Failure(runErr)...)
			logging.ErrorWithContext(logger, "pipeline run failed", "run_failed", attrs...)
		}
	} else {
		logger.Info("pipeline run finished",
			logging.String(logging.FieldEventType, "run_completed"),
			logging.Int("segments", res.Segments),
			logging.Bool("local_source", res.LocalSource),
			logging.Duration("duration", res.Duration),
		)
	}

	if c.History == nil {
		return
	}
	if err := c.History.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "run history not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db permissions or disable [history]"),
			logging.String(logging.FieldImpact, "this run is missing from intohear history"),
		)
	}
}

func (c *Coordinator) runID() string {
	if c.newRunID != nil {
		return c.newRunID()
	}
	return uuid.NewString()
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger == nil {
		return logging.NewNop()
	}
	return c.Logger
}

// String renders a Result for one-line terminal summaries.
func (r Result) String() string {
	if r.State == StateDone {
		return fmt.Sprintf("%s: %d segments in %s", r.Source, r.Segments, r.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s: %s at %s", r.Source, r.State, r.FailedStage)
}
