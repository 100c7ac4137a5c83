// Package progress carries human readable status events out of a run.
//
// The synthesizer only knows the Sink interface. What happens to an event
// (a log line, a socket.io message, a test recorder) is decided by whoever
// wires the run together. Sinks never influence control flow: Emit has no
// error result and implementations swallow their own failures.
package progress
