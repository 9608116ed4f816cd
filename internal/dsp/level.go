package dsp

import "math"

// epsilon keeps log conversion finite for digital silence.
const epsilon = 1e-10

// RMS returns the root-mean-square amplitude of the samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// LinearToDB converts a linear amplitude to dBFS, floored to avoid -Inf.
func LinearToDB(level float64) float64 {
	return 20.0 * math.Log10(math.Max(level, epsilon))
}

// DBToLinear converts a dB value to linear gain.
func DBToLinear(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// NearestZeroCrossing returns the sample index closest to center where the
// signal crosses zero, searching at most radius samples each way. When no
// crossing exists in range, center is returned.
func NearestZeroCrossing(samples []float32, center, radius int) int {
	if len(samples) < 2 {
		return center
	}
	if center < 0 {
		center = 0
	}
	if center >= len(samples) {
		center = len(samples) - 1
	}
	for offset := 0; offset <= radius; offset++ {
		for _, idx := range []int{center - offset, center + offset} {
			if idx < 1 || idx >= len(samples) {
				continue
			}
			if crossesZero(samples[idx-1], samples[idx]) {
				return idx
			}
		}
	}
	return center
}

func crossesZero(a, b float32) bool {
	return (a <= 0 && b > 0) || (a >= 0 && b < 0)
}
