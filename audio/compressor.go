package audio

import "math"

// compressorProc is a feed-forward peak compressor with a soft knee and
// one-pole attack/release smoothing of the gain reduction.
type compressorProc struct {
	g         *Graph
	threshold *param
	knee      *param
	ratio     *param
	attack    *param
	release   *param
	reduction float64
}

func gainComputer(x, threshold, knee, ratio float64) float64 {
	over := x - threshold
	switch {
	case 2*over < -knee:
		return x
	case knee > 0 && 2*math.Abs(over) <= knee:
		d := over + knee/2
		return x + (1/ratio-1)*d*d/(2*knee)
	default:
		return threshold + over/ratio
	}
}

func smoothing(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * sampleRate))
}

func (p *compressorProc) process(in, out []float64, t0 float64) {
	threshold := p.threshold.valueAt(t0)
	knee := p.knee.valueAt(t0)
	ratio := math.Max(1, p.ratio.valueAt(t0))
	attack := smoothing(p.attack.valueAt(t0), p.g.sampleRate)
	release := smoothing(p.release.valueAt(t0), p.g.sampleRate)
	for _, prm := range []*param{p.threshold, p.knee, p.ratio, p.attack, p.release} {
		prm.compact(t0)
	}

	for i, x := range in {
		level := math.Abs(x)
		db := -120.0
		if level > 1e-6 {
			db = 20 * math.Log10(level)
		}
		target := gainComputer(db, threshold, knee, ratio) - db
		coeff := release
		if target < p.reduction {
			coeff = attack
		}
		p.reduction = coeff*p.reduction + (1-coeff)*target
		out[i] = x * math.Pow(10, p.reduction/20)
	}
}

type compressorNode struct {
	*node
	p *compressorProc
}

func (g *Graph) NewCompressor() Compressor {
	p := &compressorProc{
		g:         g,
		threshold: g.param(-24, -100, 0),
		knee:      g.param(30, 0, 40),
		ratio:     g.param(12, 1, 20),
		attack:    g.param(0.003, 0, 1),
		release:   g.param(0.25, 0, 1),
	}
	return &compressorNode{node: g.newNode(p), p: p}
}

func (n *compressorNode) Threshold() Param { return n.p.threshold }
func (n *compressorNode) Knee() Param      { return n.p.knee }
func (n *compressorNode) Ratio() Param     { return n.p.ratio }
func (n *compressorNode) Attack() Param    { return n.p.attack }
func (n *compressorNode) Release() Param   { return n.p.release }

func (n *compressorNode) Reduction() float64 {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	return n.p.reduction
}
