package audio

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Impulse responses are scaled so their RMS matches this level.
const convolverCalibration = 0.00125

// convolverProc runs uniformly partitioned overlap-save convolution: the
// impulse response is cut into Quantum-sized blocks, each transformed once,
// and every input block is multiplied against a frequency domain delay line
// of past input spectra.
type convolverProc struct {
	normalize  bool
	partitions [][]complex128
	fdl        [][]complex128
	head       int
	window     []float64
}

func (p *convolverProc) setBuffer(b *Buffer) {
	p.partitions = nil
	p.fdl = nil
	p.head = 0
	p.window = make([]float64, 2*Quantum)
	if b == nil || len(b.Data) == 0 {
		return
	}

	scale := 1.0
	if p.normalize {
		var power float64
		for _, s := range b.Data {
			power += s * s
		}
		rms := math.Sqrt(power / float64(len(b.Data)))
		if rms > 0 {
			scale = convolverCalibration / rms
		}
	}

	for start := 0; start < len(b.Data); start += Quantum {
		block := make([]float64, 2*Quantum)
		end := start + Quantum
		if end > len(b.Data) {
			end = len(b.Data)
		}
		for i, s := range b.Data[start:end] {
			block[i] = s * scale
		}
		p.partitions = append(p.partitions, fft.FFTReal(block))
	}
	p.fdl = make([][]complex128, len(p.partitions))
}

func (p *convolverProc) process(in, out []float64, _ float64) {
	if len(p.partitions) == 0 {
		for i := range out {
			out[i] = 0
		}
		return
	}

	// slide the input window: previous block then the current one
	copy(p.window, p.window[Quantum:])
	copy(p.window[Quantum:], in)
	p.head = (p.head + len(p.fdl) - 1) % len(p.fdl)
	p.fdl[p.head] = fft.FFTReal(p.window)

	acc := make([]complex128, 2*Quantum)
	for k, h := range p.partitions {
		x := p.fdl[(p.head+k)%len(p.fdl)]
		if x == nil {
			continue
		}
		for i := range acc {
			acc[i] += x[i] * h[i]
		}
	}
	y := fft.IFFT(acc)
	for i := range out {
		out[i] = real(y[Quantum+i])
	}
}

type convolverNode struct {
	*node
	p *convolverProc
}

func (g *Graph) NewConvolver() Convolver {
	p := &convolverProc{normalize: true}
	p.setBuffer(nil)
	return &convolverNode{node: g.newNode(p), p: p}
}

func (n *convolverNode) SetBuffer(b *Buffer) {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.p.setBuffer(b)
}

// SetNormalize toggles RMS normalisation of buffers set afterwards.
func (n *convolverNode) SetNormalize(on bool) {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.p.normalize = on
}
