// Package acquire fetches the best available audio stream for a source
// reference with yt-dlp and locates the file the tool produced.
//
// yt-dlp picks the real file extension, so Fetch passes a templated output
// name and then scans the temp directory for the matching base name. Local
// files bypass the download tool entirely; see ResolveLocal.
package acquire
