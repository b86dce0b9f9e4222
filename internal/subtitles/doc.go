// Package subtitles turns timed text segments into display-ready subtitle
// cues and serializes them as SRT or WebVTT.
//
// Key responsibilities:
//   - Formatting raw segments under reading-speed, cue-duration, and
//     line-length constraints, splitting long segments at word boundaries.
//   - Collapsing duplicate cues where adjacent transcription chunks overlap.
//   - Parsing SRT produced by external tools and extracting embedded subtitle
//     streams from source video via ffmpeg.
//
// The formatter never lets consecutive cues touch: each cue starts at least
// the configured gap after the previous one ends.
package subtitles
