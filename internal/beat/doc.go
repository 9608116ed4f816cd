// Package beat detects percussive transients in instrument-characteristic
// frequency bands and estimates tempo from inter-beat intervals. The
// detector keeps a bounded rolling history and must consume windows in
// timestamp order.
package beat
