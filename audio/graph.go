package audio

import (
	"math"
	"sync"
)

// Quantum is the number of frames rendered per pass through the graph.
const Quantum = 128

// processor is the per-node signal code. in is the mix of every connected
// input for this quantum; t0 is the time of its first frame.
type processor interface {
	process(in, out []float64, t0 float64)
}

type node struct {
	g       *Graph
	proc    processor
	inputs  []*node
	outputs []*node
	pass    uint64
	buf     []float64
	mix     []float64
}

func (g *Graph) newNode(proc processor) *node {
	return &node{
		g:    g,
		proc: proc,
		buf:  make([]float64, Quantum),
		mix:  make([]float64, Quantum),
	}
}

// graphNode is implemented by every node a Graph hands out.
type graphNode interface {
	inner() *node
}

func (n *node) inner() *node {
	return n
}

// Connect routes n's output into dst. Connecting a node from another
// context is ignored.
func (n *node) Connect(dst Node) {
	d, ok := dst.(graphNode)
	if !ok || d.inner().g != n.g {
		return
	}
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	target := d.inner()
	for _, o := range n.outputs {
		if o == target {
			return
		}
	}
	n.outputs = append(n.outputs, target)
	target.inputs = append(target.inputs, n)
}

func (n *node) Disconnect() {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	for _, o := range n.outputs {
		o.inputs = removeNode(o.inputs, n)
	}
	n.outputs = nil
}

func removeNode(list []*node, n *node) []*node {
	for i, v := range list {
		if v == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// pull renders the node once per pass and caches the result.
func (n *node) pull() []float64 {
	if n.pass == n.g.pass {
		return n.buf
	}
	n.pass = n.g.pass
	for i := range n.mix {
		n.mix[i] = 0
	}
	for _, in := range n.inputs {
		src := in.pull()
		for i, s := range src {
			n.mix[i] += s
		}
	}
	n.proc.process(n.mix, n.buf, n.g.now())
	return n.buf
}

type passthrough struct{}

func (passthrough) process(in, out []float64, _ float64) {
	copy(out, in)
}

// Graph is an offline render context. Nothing happens until Render is
// called; the caller (a speaker loop or a test) drives the clock.
type Graph struct {
	mu         sync.Mutex
	sampleRate float64
	frame      int64
	pass       uint64
	dest       *node
	taps       []*node
	carry      []float64
}

func NewGraph(sampleRate float64) *Graph {
	g := &Graph{sampleRate: sampleRate}
	g.dest = g.newNode(passthrough{})
	return g
}

func (g *Graph) now() float64 {
	return float64(g.frame) / g.sampleRate
}

func (g *Graph) CurrentTime() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now()
}

func (g *Graph) SampleRate() float64 {
	return g.sampleRate
}

func (g *Graph) Destination() Node {
	return g.dest
}

func (g *Graph) param(initial, min, max float64) *param {
	return newParam(g, initial, min, max)
}

// Render produces the next frames samples at the destination and advances
// the clock. frames is rounded up to a whole number of quanta.
func (g *Graph) Render(frames int) []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	res := make([]float64, 0, frames+Quantum)
	res = append(res, g.carry...)
	for len(res) < frames {
		g.pass++
		res = append(res, g.dest.pull()...)
		for _, tap := range g.taps {
			tap.pull()
		}
		g.frame += Quantum
	}
	// frames past the request belong to the next call
	g.carry = append(g.carry[:0], res[frames:]...)
	return res[:frames]
}

type gainProc struct {
	gain *param
	g    *Graph
}

func (p *gainProc) process(in, out []float64, t0 float64) {
	dt := 1 / p.g.sampleRate
	for i, s := range in {
		out[i] = s * p.gain.valueAt(t0+float64(i)*dt)
	}
	p.gain.compact(t0)
}

type gainNode struct {
	*node
	p *gainProc
}

func (g *Graph) NewGain() Gain {
	p := &gainProc{gain: g.param(1, math.Inf(-1), math.Inf(1)), g: g}
	return &gainNode{node: g.newNode(p), p: p}
}

func (n *gainNode) Gain() Param {
	return n.p.gain
}

type oscProc struct {
	g         *Graph
	waveform  Waveform
	frequency *param
	phase     float64
	start     float64
	stop      float64
	started   bool
}

func (p *oscProc) sample() float64 {
	switch p.waveform {
	case Square:
		if p.phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*p.phase - 1
	case Triangle:
		return 1 - 4*math.Abs(p.phase-0.5)
	}
	return math.Sin(2 * math.Pi * p.phase)
}

func (p *oscProc) process(_, out []float64, t0 float64) {
	dt := 1 / p.g.sampleRate
	freq := p.frequency.valueAt(t0)
	p.frequency.compact(t0)
	for i := range out {
		t := t0 + float64(i)*dt
		if !p.started || t < p.start || t >= p.stop {
			out[i] = 0
			continue
		}
		out[i] = p.sample()
		p.phase += freq * dt
		p.phase -= math.Floor(p.phase)
	}
}

type oscillatorNode struct {
	*node
	p *oscProc
}

func (g *Graph) NewOscillator() Oscillator {
	p := &oscProc{
		g:         g,
		waveform:  Sine,
		frequency: g.param(440, 0, g.sampleRate/2),
		stop:      math.Inf(1),
	}
	return &oscillatorNode{node: g.newNode(p), p: p}
}

func (n *oscillatorNode) SetType(w Waveform) {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.p.waveform = w
}

func (n *oscillatorNode) Frequency() Param {
	return n.p.frequency
}

func (n *oscillatorNode) Start(t float64) {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.p.started = true
	n.p.start = t
}

func (n *oscillatorNode) Stop(t float64) {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.p.stop = t
}
