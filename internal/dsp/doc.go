// Package dsp holds the signal-processing primitives shared by the analysis
// stages: an in-place radix-2 FFT with precomputed window coefficients, RMS
// helpers, and zero-crossing search.
package dsp
