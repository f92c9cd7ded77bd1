// Package language normalizes the transcription language setting.
//
// Users may pass "auto", an ISO 639 code, an English word form, or a BCP 47
// tag; Resolve reduces any of them to the code whisper.cpp and WhisperX take
// on their command lines. DisplayName renders codes for terminal output.
package language
