// Package analysis computes per-window spectral features: peak frequency,
// centroid, spread, energy, and RMS level. The stage is purely descriptive;
// silence policy lives in the decision engine so that identical buffers and
// configuration always produce identical features.
package analysis
