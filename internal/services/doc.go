// Package services defines shared utilities consumed by the pipeline stage
// handlers and provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, chunk sequences, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     as retryable or permanent for the worker retry loop.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
