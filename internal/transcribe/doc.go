// Package transcribe runs speech recognition over a normalized waveform.
//
// An Engine wraps one external recognizer (whisper.cpp's whisper-cli or
// WhisperX through uvx) and yields a lazy, one-shot sequence of segments
// decoded from the engine's JSON output. Stage ties an engine to the model
// artifact cache: it fetches and verifies the model when the engine needs
// one, then materializes the sequence into an ordered slice. Stage imposes
// no timeout; long recordings are expected to take long.
package transcribe
