// Package pipeline orchestrates one edit: PCM extraction feeds spectral
// analysis, classification and beat detection consume the feature stream in
// parallel, and the decision engine joins them back into ordered decisions
// that the assembler and plan builder turn into a composition plan. Stages
// run concurrently over bounded channels; cancellation tears everything down
// without emitting a partial plan.
package pipeline
