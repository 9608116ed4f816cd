// Package services provides the shared error taxonomy and context plumbing
// used by every pipeline stage. Stages tag failures with a sentinel marker so
// the orchestrator can distinguish fatal input problems from recoverable
// per-window analysis faults.
package services
