// Package logs reads the JSON run log written by the logging package.
//
// Tail returns the last lines of the active log file together with the byte
// offset where reading stopped, and Follow streams lines appended after that
// offset until the context ends. Both tolerate a missing file, since the log
// only exists after the first run with a log directory configured.
package logs
