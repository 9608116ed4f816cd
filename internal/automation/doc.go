// Package automation emits gain automation for the assembled timeline:
// short crossfades at every segment boundary and voice ducking where speech
// overlaps music. Curves are ordered (time, gain) points with ramped
// transitions, never step changes.
package automation
