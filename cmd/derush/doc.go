// Command derush analyzes a recording and emits a non-destructive edit plan:
// silences and hesitations removed, speech preserved, cuts snapped to beats
// or zero crossings, with crossfade and ducking automation attached. The
// source media is never modified.
package main
