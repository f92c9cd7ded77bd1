// Package procexec runs external tools from an executable name and an
// argument list, never a shell string.
//
// ExecRunner drains standard output and standard error concurrently while the
// child runs so a chatty tool cannot fill a pipe and deadlock. A non-zero exit
// is reported through Result.ExitCode; only spawn failures (LaunchError) and
// cancellation are returned as errors. Cancelling the context kills the
// child's whole process group.
package procexec
