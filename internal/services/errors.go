package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure by the stage contract it violated.
type Kind string

const (
	KindLaunch        Kind = "launch"
	KindAcquisition   Kind = "acquisition"
	KindNormalization Kind = "normalization"
	KindModelDownload Kind = "model_download"
	KindModelLoad     Kind = "model_load"
	KindTranscription Kind = "transcription"
	KindCanceled      Kind = "canceled"
)

var (
	ErrLaunch        = errors.New("launch error")
	ErrAcquisition   = errors.New("acquisition error")
	ErrNormalization = errors.New("normalization error")
	ErrModelDownload = errors.New("model download error")
	ErrModelLoad     = errors.New("model load error")
	ErrTranscription = errors.New("transcription error")
	ErrCanceled      = errors.New("canceled")
)

var markers = map[Kind]error{
	KindLaunch:        ErrLaunch,
	KindAcquisition:   ErrAcquisition,
	KindNormalization: ErrNormalization,
	KindModelDownload: ErrModelDownload,
	KindModelLoad:     ErrModelLoad,
	KindTranscription: ErrTranscription,
	KindCanceled:      ErrCanceled,
}

// StageError is the single error shape every pipeline stage returns. It keeps
// the captured diagnostics of the external tool next to the wrapped cause so
// callers can surface both without string parsing.
type StageError struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Stderr    string
	Hint      string
	ExitCode  int
	Err       error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.marker(), detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.marker(), detail)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match the sentinel marker for the error's kind.
func (e *StageError) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == e.marker()
}

func (e *StageError) marker() error {
	if marker, ok := markers[e.Kind]; ok {
		return marker
	}
	return ErrTranscription
}

// WithStderr attaches captured standard error text verbatim.
func (e *StageError) WithStderr(stderr string) *StageError {
	e.Stderr = stderr
	return e
}

// WithHint attaches a human-actionable remediation hint.
func (e *StageError) WithHint(hint string) *StageError {
	e.Hint = strings.TrimSpace(hint)
	return e
}

// WithExitCode records the exit status of the failing tool.
func (e *StageError) WithExitCode(code int) *StageError {
	e.ExitCode = code
	return e
}

// Wrap builds a StageError tagged with kind. Context cancellation always wins
// over the supplied kind so callers can tell a user abort from a tool failure.
func Wrap(kind Kind, stage, operation, message string, err error) *StageError {
	if err != nil && kind != KindCanceled && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		kind = KindCanceled
	}
	return &StageError{
		Kind:      kind,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// KindOf reports the kind of the first StageError in err's chain.
func KindOf(err error) (Kind, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind, true
	}
	return "", false
}

// Details extracts the first StageError in err's chain.
func Details(err error) (*StageError, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
