// Package stt turns chunk audio into timed text segments. Two providers are
// available: the hosted Whisper transcription API and a local whisper.cpp
// binary.
package stt
