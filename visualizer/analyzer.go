// Package visualizer renders a live frequency spectrum of the playing audio.
package visualizer

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// FFTSize matches the analyser configured by the web client
	FFTSize = 256
	// Smoothing blends each frame with the previous spectrum
	Smoothing = 0.8
	// MinDecibels and MaxDecibels bound the byte scale
	MinDecibels = -100.0
	MaxDecibels = -30.0
)

// Analyzer keeps the most recent FFTSize mono samples of a 16-bit PCM stream
// and computes smoothed byte magnitudes on demand.
type Analyzer struct {
	mu sync.Mutex

	fft      *fourier.FFT
	window   []float64
	channels int

	samples []float64 // ring buffer
	pos     int
	carry   []byte // incomplete frame from the last Write

	smoothed []float64
}

// NewAnalyzer creates an analyzer for interleaved little-endian 16-bit PCM
func NewAnalyzer(channels int) *Analyzer {
	if channels < 1 {
		channels = 1
	}

	// Blackman window with alpha 0.16
	window := make([]float64, FFTSize)
	for i := range window {
		x := float64(i) / float64(FFTSize)
		window[i] = 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	}

	return &Analyzer{
		fft:      fourier.NewFFT(FFTSize),
		window:   window,
		channels: channels,
		samples:  make([]float64, FFTSize),
		smoothed: make([]float64, FFTSize/2),
	}
}

// FrequencyBinCount is half the FFT size
func (a *Analyzer) FrequencyBinCount() int {
	return FFTSize / 2
}

// Write feeds PCM bytes; frames split across writes are joined. It never fails.
func (a *Analyzer) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	frameSize := 2 * a.channels
	data := p
	if len(a.carry) > 0 {
		data = append(a.carry, p...)
		a.carry = nil
	}

	i := 0
	for ; i+frameSize <= len(data); i += frameSize {
		var sum float64
		for ch := 0; ch < a.channels; ch++ {
			off := i + 2*ch
			sample := int16(uint16(data[off]) | uint16(data[off+1])<<8)
			sum += float64(sample) / 32768.0
		}
		a.samples[a.pos] = sum / float64(a.channels)
		a.pos = (a.pos + 1) % FFTSize
	}
	if i < len(data) {
		a.carry = append([]byte(nil), data[i:]...)
	}
	return len(p), nil
}

// ByteFrequencyData writes the current spectrum into dst, scaled to 0..255 between
// MinDecibels and MaxDecibels, and returns the number of bins written.
func (a *Analyzer) ByteFrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	windowed := make([]float64, FFTSize)
	for i := range windowed {
		windowed[i] = a.samples[(a.pos+i)%FFTSize] * a.window[i]
	}
	coeffs := a.fft.Coefficients(nil, windowed)

	n := min(len(dst), len(a.smoothed))
	for k := range a.smoothed {
		magnitude := math.Hypot(real(coeffs[k]), imag(coeffs[k])) / FFTSize
		a.smoothed[k] = Smoothing*a.smoothed[k] + (1-Smoothing)*magnitude
		if k < n {
			dst[k] = toByte(a.smoothed[k])
		}
	}
	return n
}

// Reset clears buffered samples and smoothing history
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.samples)
	clear(a.smoothed)
	a.pos = 0
	a.carry = nil
}

func toByte(magnitude float64) byte {
	if magnitude <= 0 {
		return 0
	}
	db := 20 * math.Log10(magnitude)
	scaled := 255 * (db - MinDecibels) / (MaxDecibels - MinDecibels)
	switch {
	case scaled <= 0:
		return 0
	case scaled >= 255:
		return 255
	}
	return byte(scaled)
}
