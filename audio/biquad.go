package audio

import "math"

type biquadProc struct {
	g          *Graph
	filterType FilterType
	frequency  *param
	q          *param
	gain       *param

	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// coefficients follows the RBJ audio EQ cookbook with shelf slope 1.
func (p *biquadProc) coefficients(t float64) {
	fs := p.g.sampleRate
	f := math.Max(1, math.Min(p.frequency.valueAt(t), fs/2-1))
	q := math.Max(p.q.valueAt(t), 1e-4)
	a := math.Pow(10, p.gain.valueAt(t)/40)
	w0 := 2 * math.Pi * f / fs
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / (2 * q)

	var b0, b1, b2, a0, a1, a2 float64
	switch p.filterType {
	case Highpass:
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case Peaking:
		b0, b1, b2 = 1+alpha*a, -2*cos, 1-alpha*a
		a0, a1, a2 = 1+alpha/a, -2*cos, 1-alpha/a
	case Lowshelf:
		shelf := 2 * math.Sqrt(a) * sin / 2 * math.Sqrt2
		b0 = a * ((a + 1) - (a-1)*cos + shelf)
		b1 = 2 * a * ((a - 1) - (a+1)*cos)
		b2 = a * ((a + 1) - (a-1)*cos - shelf)
		a0 = (a + 1) + (a-1)*cos + shelf
		a1 = -2 * ((a - 1) + (a+1)*cos)
		a2 = (a + 1) + (a-1)*cos - shelf
	case Highshelf:
		shelf := 2 * math.Sqrt(a) * sin / 2 * math.Sqrt2
		b0 = a * ((a + 1) + (a-1)*cos + shelf)
		b1 = -2 * a * ((a - 1) + (a+1)*cos)
		b2 = a * ((a + 1) + (a-1)*cos - shelf)
		a0 = (a + 1) - (a-1)*cos + shelf
		a1 = 2 * ((a - 1) - (a+1)*cos)
		a2 = (a + 1) - (a-1)*cos - shelf
	default:
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	}
	p.b0, p.b1, p.b2 = b0/a0, b1/a0, b2/a0
	p.a1, p.a2 = a1/a0, a2/a0
}

func (p *biquadProc) process(in, out []float64, t0 float64) {
	p.coefficients(t0)
	p.frequency.compact(t0)
	p.q.compact(t0)
	p.gain.compact(t0)
	for i, x := range in {
		y := p.b0*x + p.b1*p.x1 + p.b2*p.x2 - p.a1*p.y1 - p.a2*p.y2
		p.x2, p.x1 = p.x1, x
		p.y2, p.y1 = p.y1, y
		out[i] = y
	}
}

type biquadNode struct {
	*node
	p *biquadProc
}

func (g *Graph) NewBiquadFilter() BiquadFilter {
	p := &biquadProc{
		g:          g,
		filterType: Lowpass,
		frequency:  g.param(350, 0, g.sampleRate/2),
		q:          g.param(1, 1e-4, 1000),
		gain:       g.param(0, -40, 40),
	}
	return &biquadNode{node: g.newNode(p), p: p}
}

func (n *biquadNode) SetType(t FilterType) {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	n.p.filterType = t
}

func (n *biquadNode) Frequency() Param { return n.p.frequency }
func (n *biquadNode) Q() Param         { return n.p.q }
func (n *biquadNode) Gain() Param      { return n.p.gain }
