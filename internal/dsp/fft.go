package dsp

import "math"

// WindowFunc selects the analysis window applied before the transform.
type WindowFunc int

const (
	RectangularWindow WindowFunc = iota
	HannWindow
	HammingWindow
)

// FFT performs a radix-2 forward transform over fixed-size real input.
// The instance owns its scratch buffers so repeated calls allocate nothing;
// it is not safe for concurrent use.
type FFT struct {
	size       int
	windowData []float64
	real       []float64
	imag       []float64
	magnitude  []float64
}

// NewFFT creates an FFT processor. Size must be a power of two.
func NewFFT(size int, window WindowFunc) *FFT {
	f := &FFT{
		size:       size,
		windowData: make([]float64, size),
		real:       make([]float64, size),
		imag:       make([]float64, size),
		magnitude:  make([]float64, size/2+1),
	}
	f.calculateWindow(window)
	return f
}

// Size returns the transform length.
func (f *FFT) Size() int { return f.size }

func (f *FFT) calculateWindow(window WindowFunc) {
	n := float64(f.size)
	for i := 0; i < f.size; i++ {
		switch window {
		case HannWindow:
			f.windowData[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/(n-1.0)))
		case HammingWindow:
			f.windowData[i] = 0.54 - 0.46*math.Cos(2.0*math.Pi*float64(i)/(n-1.0))
		default:
			f.windowData[i] = 1.0
		}
	}
}

// Forward windows the input, transforms it, and returns the magnitude
// spectrum (size/2+1 bins). The returned slice is reused across calls;
// callers must not retain it past the next Forward.
func (f *FFT) Forward(input []float32) []float64 {
	for i := 0; i < f.size; i++ {
		if i < len(input) {
			f.real[i] = float64(input[i]) * f.windowData[i]
		} else {
			f.real[i] = 0
		}
		f.imag[i] = 0
	}

	f.transform(f.real, f.imag)

	for i := 0; i <= f.size/2; i++ {
		f.magnitude[i] = math.Sqrt(f.real[i]*f.real[i] + f.imag[i]*f.imag[i])
	}
	return f.magnitude
}

// transform runs the in-place Cooley-Tukey butterfly.
func (f *FFT) transform(real, imag []float64) {
	n := f.size

	j := 0
	for i := 0; i < n; i++ {
		if i < j {
			real[i], real[j] = real[j], real[i]
			imag[i], imag[j] = imag[j], imag[i]
		}
		m := n >> 1
		for m >= 1 && j >= m {
			j -= m
			m >>= 1
		}
		j += m
	}

	for span := 2; span <= n; span <<= 1 {
		theta := -2.0 * math.Pi / float64(span)
		wReal := math.Cos(theta)
		wImag := math.Sin(theta)

		for k := 0; k < n; k += span {
			twReal := 1.0
			twImag := 0.0
			for idx := 0; idx < span/2; idx++ {
				i1 := k + idx
				i2 := i1 + span/2

				tReal := twReal*real[i2] - twImag*imag[i2]
				tImag := twReal*imag[i2] + twImag*real[i2]

				real[i2] = real[i1] - tReal
				imag[i2] = imag[i1] - tImag
				real[i1] += tReal
				imag[i1] += tImag

				oldReal := twReal
				twReal = oldReal*wReal - twImag*wImag
				twImag = oldReal*wImag + twImag*wReal
			}
		}
	}
}

// BinFrequency returns the center frequency of an FFT bin.
func (f *FFT) BinFrequency(bin int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(f.size)
}
