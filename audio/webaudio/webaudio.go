//go:build js

// Package webaudio binds the audio interfaces to the browser's Web Audio
// API through GopherJS.
package webaudio

import (
	"github.com/gopherjs/gopherjs/js"
	"github.com/jsphweid/chordsmith/audio"
	"github.com/pkg/errors"
)

type Context struct {
	ctx *js.Object
}

// New creates an AudioContext, falling back to the webkit prefix.
func New() (*Context, error) {
	ctor := js.Global.Get("AudioContext")
	if ctor == js.Undefined {
		ctor = js.Global.Get("webkitAudioContext")
	}
	if ctor == js.Undefined {
		return nil, errors.New("web audio is not available")
	}
	return &Context{ctx: ctor.New()}, nil
}

// Resume wakes a context the browser suspended until a user gesture.
func (c *Context) Resume() {
	if c.ctx.Get("state").String() == "suspended" {
		c.ctx.Call("resume")
	}
}

func (c *Context) CurrentTime() float64 {
	return c.ctx.Get("currentTime").Float()
}

func (c *Context) SampleRate() float64 {
	return c.ctx.Get("sampleRate").Float()
}

func (c *Context) Destination() audio.Node {
	return &node{obj: c.ctx.Get("destination")}
}

func (c *Context) NewOscillator() audio.Oscillator {
	return &oscillator{node{obj: c.ctx.Call("createOscillator")}}
}

func (c *Context) NewGain() audio.Gain {
	return &gain{node{obj: c.ctx.Call("createGain")}}
}

func (c *Context) NewBiquadFilter() audio.BiquadFilter {
	return &biquad{node{obj: c.ctx.Call("createBiquadFilter")}}
}

func (c *Context) NewConvolver() audio.Convolver {
	return &convolver{node: node{obj: c.ctx.Call("createConvolver")}, ctx: c.ctx}
}

func (c *Context) NewCompressor() audio.Compressor {
	return &compressor{node{obj: c.ctx.Call("createDynamicsCompressor")}}
}

func (c *Context) NewAnalyser() audio.Analyser {
	return &analyser{node{obj: c.ctx.Call("createAnalyser")}}
}

type node struct {
	obj *js.Object
}

func (n *node) jsObject() *js.Object {
	return n.obj
}

type jsNode interface {
	jsObject() *js.Object
}

func (n *node) Connect(dst audio.Node) {
	if d, ok := dst.(jsNode); ok {
		n.obj.Call("connect", d.jsObject())
	}
}

func (n *node) Disconnect() {
	n.obj.Call("disconnect")
}

type param struct {
	obj *js.Object
}

func (p param) Value() float64 {
	return p.obj.Get("value").Float()
}

// ValueAt only knows the current value; the browser does not expose the
// automation timeline.
func (p param) ValueAt(float64) float64 {
	return p.Value()
}

func (p param) SetValueAtTime(v, t float64) {
	p.obj.Call("setValueAtTime", v, t)
}

func (p param) LinearRampToValueAtTime(v, t float64) {
	p.obj.Call("linearRampToValueAtTime", v, t)
}

func (p param) ExponentialRampToValueAtTime(v, t float64) error {
	if v <= 0 {
		return audio.ErrNonPositiveRamp
	}
	p.obj.Call("exponentialRampToValueAtTime", v, t)
	return nil
}

func (p param) SetTargetAtTime(target, t, timeConstant float64) {
	p.obj.Call("setTargetAtTime", target, t, timeConstant)
}

func (p param) CancelScheduledValues(t float64) {
	p.obj.Call("cancelScheduledValues", t)
}

type oscillator struct{ node }

func (o *oscillator) SetType(w audio.Waveform) { o.obj.Set("type", string(w)) }
func (o *oscillator) Frequency() audio.Param   { return param{o.obj.Get("frequency")} }
func (o *oscillator) Start(t float64)          { o.obj.Call("start", t) }
func (o *oscillator) Stop(t float64)           { o.obj.Call("stop", t) }

type gain struct{ node }

func (g *gain) Gain() audio.Param { return param{g.obj.Get("gain")} }

type biquad struct{ node }

func (b *biquad) SetType(t audio.FilterType) { b.obj.Set("type", string(t)) }
func (b *biquad) Frequency() audio.Param     { return param{b.obj.Get("frequency")} }
func (b *biquad) Q() audio.Param             { return param{b.obj.Get("Q")} }
func (b *biquad) Gain() audio.Param          { return param{b.obj.Get("gain")} }

type convolver struct {
	node
	ctx *js.Object
}

func (c *convolver) SetBuffer(b *audio.Buffer) {
	if b == nil || len(b.Data) == 0 {
		c.obj.Set("buffer", nil)
		return
	}
	buf := c.ctx.Call("createBuffer", 2, len(b.Data), b.SampleRate)
	for ch := 0; ch < 2; ch++ {
		data := buf.Call("getChannelData", ch)
		for i, s := range b.Data {
			data.SetIndex(i, s)
		}
	}
	c.obj.Set("buffer", buf)
}

type compressor struct{ node }

func (c *compressor) Threshold() audio.Param { return param{c.obj.Get("threshold")} }
func (c *compressor) Knee() audio.Param      { return param{c.obj.Get("knee")} }
func (c *compressor) Ratio() audio.Param     { return param{c.obj.Get("ratio")} }
func (c *compressor) Attack() audio.Param    { return param{c.obj.Get("attack")} }
func (c *compressor) Release() audio.Param   { return param{c.obj.Get("release")} }
func (c *compressor) Reduction() float64     { return c.obj.Get("reduction").Float() }

type analyser struct{ node }

func (a *analyser) SetFFTSize(n int)         { a.obj.Set("fftSize", n) }
func (a *analyser) SetSmoothing(tau float64) { a.obj.Set("smoothingTimeConstant", tau) }
func (a *analyser) FrequencyBinCount() int   { return a.obj.Get("frequencyBinCount").Int() }

func (a *analyser) FrequencyData() []float64 {
	arr := js.Global.Get("Float32Array").New(a.FrequencyBinCount())
	a.obj.Call("getFloatFrequencyData", arr)
	return floats(arr)
}

func (a *analyser) TimeDomainData() []float64 {
	arr := js.Global.Get("Float32Array").New(a.obj.Get("fftSize").Int())
	a.obj.Call("getFloatTimeDomainData", arr)
	return floats(arr)
}

func floats(arr *js.Object) []float64 {
	res := make([]float64, arr.Length())
	for i := range res {
		res[i] = arr.Index(i).Float()
	}
	return res
}
