// Package ocr recovers burned-in subtitles from video by sampling frames with
// ffmpeg, reading each frame with tesseract, and collapsing per-frame text
// into time-aligned segments. A second pass with a different crop window can
// be merged into the first to catch subtitles rendered outside the usual band.
package ocr
