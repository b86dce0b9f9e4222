// Package chunking plans how long audio is cut into bounded, overlapping
// chunks for independent transcription.
//
// Silence intervals parsed from ffmpeg silencedetect output steer the cut
// points: each chunk ends at the latest detected silence inside its allowed
// size window, so speech is cut mid-pause instead of mid-word. Chunks after
// the first start slightly before the previous chunk's end; the overlap lets
// the deduplicator stitch the seam back together later.
package chunking
