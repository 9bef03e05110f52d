package audio

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	DefaultFFTSize   = 2048
	DefaultSmoothing = 0.8
	minDecibels      = -100.0
)

// analyserProc passes its input through untouched while keeping the most
// recent fftSize samples for inspection.
type analyserProc struct {
	fftSize   int
	smoothing float64
	ring      []float64
	pos       int
	smoothed  []float64
}

func (p *analyserProc) resize(n int) {
	if n < 32 {
		n = 32
	}
	// round up to a power of two
	size := 1
	for size < n {
		size <<= 1
	}
	p.fftSize = size
	p.ring = make([]float64, size)
	p.pos = 0
	p.smoothed = make([]float64, size/2)
}

func (p *analyserProc) process(in, out []float64, _ float64) {
	copy(out, in)
	for _, s := range in {
		p.ring[p.pos] = s
		p.pos = (p.pos + 1) % len(p.ring)
	}
}

func (p *analyserProc) timeDomain() []float64 {
	res := make([]float64, len(p.ring))
	for i := range res {
		res[i] = p.ring[(p.pos+i)%len(p.ring)]
	}
	return res
}

func blackman(i, n int) float64 {
	x := 2 * math.Pi * float64(i) / float64(n)
	return 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
}

func (p *analyserProc) frequencyData() []float64 {
	samples := p.timeDomain()
	for i := range samples {
		samples[i] *= blackman(i, len(samples))
	}
	spectrum := fft.FFTReal(samples)
	res := make([]float64, len(p.smoothed))
	for k := range res {
		mag := cmplx.Abs(spectrum[k]) / float64(len(samples))
		p.smoothed[k] = p.smoothing*p.smoothed[k] + (1-p.smoothing)*mag
		db := minDecibels
		if p.smoothed[k] > 0 {
			db = math.Max(minDecibels, 20*math.Log10(p.smoothed[k]))
		}
		res[k] = db
	}
	return res
}

type analyserNode struct {
	*node
	p *analyserProc
}

// NewAnalyser returns a pass-through node that is rendered every pass even
// when nothing downstream pulls from it.
func (g *Graph) NewAnalyser() Analyser {
	p := &analyserProc{smoothing: DefaultSmoothing}
	p.resize(DefaultFFTSize)
	n := &analyserNode{node: g.newNode(p), p: p}
	g.mu.Lock()
	g.taps = append(g.taps, n.node)
	g.mu.Unlock()
	return n
}

func (n *analyserNode) SetFFTSize(size int) {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.p.resize(size)
}

func (n *analyserNode) SetSmoothing(tau float64) {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.p.smoothing = math.Max(0, math.Min(1, tau))
}

func (n *analyserNode) FrequencyBinCount() int {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	return n.p.fftSize / 2
}

func (n *analyserNode) FrequencyData() []float64 {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	return n.p.frequencyData()
}

func (n *analyserNode) TimeDomainData() []float64 {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	return n.p.timeDomain()
}
