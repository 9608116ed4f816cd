// Package classify assigns speech/music/noise probabilities to analysis
// windows. The classifier is a swappable capability; the bundled
// implementation is a spectral/RMS heuristic with temporal smoothing over a
// short rolling history.
package classify
