// Package textutil provides text processing utilities for subtitle
// comparison, CJK-aware text selection, and byte-stream sanitization.
//
// The primary use cases are:
//   - Normalizing recognized subtitle text for fuzzy comparison
//   - Computing a percentage similarity between two strings
//   - Counting Han characters to pick the better of two OCR readings
//   - Scrubbing external tool output down to valid UTF-8
//
// Similarity uses the longest-common-substring decomposition, so small OCR
// glitches in otherwise identical lines still score high.
package textutil
