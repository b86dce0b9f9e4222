// Package main hosts the subforge CLI entrypoint and command graph.
//
// The Cobra-based command tree covers job submission and inspection, queue
// maintenance, configuration scaffolding, preflight checks, and running the
// processing daemon in the foreground. Configuration resolution and store
// access are centralized in the command context so subcommands stay
// declarative; the heavy lifting lives in the internal packages.
package main
