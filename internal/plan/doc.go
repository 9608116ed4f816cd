// Package plan defines the composition plan emitted at the end of an edit:
// the approved segments, the automation that plays them back cleanly, and the
// statistics of what was cut. The builder validates ordering, overlap, and
// duration accounting before anything is emitted; plans are immutable
// afterwards.
package plan
