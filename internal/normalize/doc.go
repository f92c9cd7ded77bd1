// Package normalize converts arbitrary audio into the waveform the
// recognition engines expect: mono, 16 kHz, signed 16-bit little-endian PCM
// in a WAV container.
//
// Key types:
//   - Converter: runs ffmpeg and checks the output exists
//   - Prober: optional ffprobe wrapper that confirms the produced format
package normalize
