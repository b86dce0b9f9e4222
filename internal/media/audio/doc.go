// Package audio shells out to ffmpeg for the audio-side media work: WAV
// extraction, silence detection, and cutting chunk windows for transcription.
package audio
