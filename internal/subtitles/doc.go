// Package subtitles renders recognized speech segments as SubRip (SRT) text.
//
// FormatSRT is a pure function: the same segments always produce
// byte-identical output, using the HH:MM:SS,mmm timing punctuation SRT players
// require. ParseSRT and Validate read documents back for checks.
package subtitles
