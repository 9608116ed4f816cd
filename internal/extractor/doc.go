// Package extractor decodes an asset's audio track into fixed-size PCM
// windows by streaming from an ffmpeg subprocess. Memory use is bounded by
// the window size regardless of asset length, and cancellation tears the
// decoder down deterministically.
package extractor
