// Package audio describes a small Web Audio shaped platform: a context that
// creates nodes, nodes that connect into a graph, and automatable params.
// Graph is the pure Go implementation; other backends live in subpackages.
package audio

import (
	"math"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
)

// ErrNonPositiveRamp is returned when an exponential ramp targets zero or a
// negative value.
var ErrNonPositiveRamp = errors.New("exponential ramp target must be positive")

type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Sawtooth Waveform = "sawtooth"
	Triangle Waveform = "triangle"
)

func ParseWaveform(s string) (Waveform, error) {
	switch w := Waveform(strings.ToLower(s)); w {
	case Sine, Square, Sawtooth, Triangle:
		return w, nil
	}
	return "", errors.Errorf("unknown waveform %q", s)
}

type FilterType string

const (
	Lowpass   FilterType = "lowpass"
	Highpass  FilterType = "highpass"
	Lowshelf  FilterType = "lowshelf"
	Highshelf FilterType = "highshelf"
	Peaking   FilterType = "peaking"
)

// Param is an automatable value. Times are in seconds on the context clock.
type Param interface {
	Value() float64
	ValueAt(t float64) float64
	SetValueAtTime(v, t float64)
	LinearRampToValueAtTime(v, t float64)
	ExponentialRampToValueAtTime(v, t float64) error
	SetTargetAtTime(target, t, timeConstant float64)
	CancelScheduledValues(t float64)
}

type Node interface {
	Connect(dst Node)
	Disconnect()
}

type Oscillator interface {
	Node
	SetType(w Waveform)
	Frequency() Param
	Start(t float64)
	Stop(t float64)
}

type Gain interface {
	Node
	Gain() Param
}

type BiquadFilter interface {
	Node
	SetType(t FilterType)
	Frequency() Param
	Q() Param
	Gain() Param
}

type Convolver interface {
	Node
	SetBuffer(b *Buffer)
}

type Compressor interface {
	Node
	Threshold() Param
	Knee() Param
	Ratio() Param
	Attack() Param
	Release() Param
	// Reduction is the current gain reduction in dB (zero or negative).
	Reduction() float64
}

type Analyser interface {
	Node
	SetFFTSize(n int)
	SetSmoothing(tau float64)
	FrequencyBinCount() int
	// FrequencyData returns smoothed magnitudes in dB, one per bin.
	FrequencyData() []float64
	TimeDomainData() []float64
}

type Context interface {
	CurrentTime() float64
	SampleRate() float64
	Destination() Node
	NewOscillator() Oscillator
	NewGain() Gain
	NewBiquadFilter() BiquadFilter
	NewConvolver() Convolver
	NewCompressor() Compressor
	NewAnalyser() Analyser
}

// Buffer is mono sample data.
type Buffer struct {
	SampleRate float64
	Data       []float64
}

func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Data)) / b.SampleRate
}

// DecayingNoise builds a synthetic reverb impulse response: white noise
// shaped by (1 - i/n)^decay.
func DecayingNoise(sampleRate, seconds, decay float64, rng *rand.Rand) *Buffer {
	n := int(sampleRate * seconds)
	if n < 1 {
		n = 1
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * math.Pow(1-float64(i)/float64(n), decay)
	}
	return &Buffer{SampleRate: sampleRate, Data: data}
}

// Frequency converts a MIDI note number to Hz, A4 (69) = 440.
func Frequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}
