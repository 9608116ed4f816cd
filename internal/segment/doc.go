// Package segment assembles per-window keep decisions into approved source
// time ranges. Consecutive keeps become one segment, speech boundaries get
// asymmetric breath padding, near-adjacent segments coalesce, and segments
// below the minimum duration never survive standalone.
package segment
