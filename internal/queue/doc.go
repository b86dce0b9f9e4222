// Package queue persists transcription jobs, their audio chunks, and the
// subtitle segments produced from them. State lives in a SQLite database so
// the daemon can resume interrupted work after a restart.
package queue
