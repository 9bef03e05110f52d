package synth

import (
	"math/rand"

	"github.com/jsphweid/chordsmith/audio"
	"github.com/jsphweid/chordsmith/util"
)

const (
	// SmoothingTime is the time constant for every live control change.
	SmoothingTime = 0.01

	lowShelfFrequency  = 320
	midFrequency       = 1000
	midQ               = 0.8
	highShelfFrequency = 3200

	impulseSeconds = 1.1
	impulseDecay   = 2.2

	analyserFFTSize   = 1024
	analyserSmoothing = 0.8

	maxEQGain = 24
)

// Effects are the live controls of the shared signal chain. EQ gains are in
// dB; compressor fields mirror a dynamics compressor's params.
type Effects struct {
	LowGain   float64 `json:"low_gain" yaml:"low_gain"`
	MidGain   float64 `json:"mid_gain" yaml:"mid_gain"`
	HighGain  float64 `json:"high_gain" yaml:"high_gain"`
	Reverb    float64 `json:"reverb" yaml:"reverb"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Knee      float64 `json:"knee" yaml:"knee"`
	Ratio     float64 `json:"ratio" yaml:"ratio"`
	Attack    float64 `json:"attack" yaml:"attack"`
	Release   float64 `json:"release" yaml:"release"`
	Master    float64 `json:"master" yaml:"master"`
}

func DefaultEffects() Effects {
	return Effects{
		Reverb:    0.2,
		Threshold: -18,
		Knee:      30,
		Ratio:     4,
		Attack:    0.003,
		Release:   0.25,
		Master:    0.9,
	}
}

func (e Effects) Clamp() Effects {
	e.LowGain = util.Clamp(e.LowGain, -maxEQGain, maxEQGain)
	e.MidGain = util.Clamp(e.MidGain, -maxEQGain, maxEQGain)
	e.HighGain = util.Clamp(e.HighGain, -maxEQGain, maxEQGain)
	e.Reverb = util.Clamp(e.Reverb, 0, 1)
	e.Threshold = util.Clamp(e.Threshold, -100, 0)
	e.Knee = util.Clamp(e.Knee, 0, 40)
	e.Ratio = util.Clamp(e.Ratio, 1, 20)
	e.Attack = util.Clamp(e.Attack, 0, 1)
	e.Release = util.Clamp(e.Release, 0, 1)
	e.Master = util.Clamp(e.Master, 0, 1)
	return e
}

// chain is the fixed routing every voice feeds:
//
//	bus -> low -> mid -> high -> compressor -> master -> destination
//	                      high -> wet -> reverb -> compressor
//	                                        master -> analyser
type chain struct {
	bus      audio.Gain
	low      audio.BiquadFilter
	mid      audio.BiquadFilter
	high     audio.BiquadFilter
	wet      audio.Gain
	reverb   audio.Convolver
	comp     audio.Compressor
	master   audio.Gain
	analyser audio.Analyser
}

func newChain(ctx audio.Context, fx Effects, rng *rand.Rand) *chain {
	now := ctx.CurrentTime()
	c := &chain{
		bus:      ctx.NewGain(),
		low:      ctx.NewBiquadFilter(),
		mid:      ctx.NewBiquadFilter(),
		high:     ctx.NewBiquadFilter(),
		wet:      ctx.NewGain(),
		reverb:   ctx.NewConvolver(),
		comp:     ctx.NewCompressor(),
		master:   ctx.NewGain(),
		analyser: ctx.NewAnalyser(),
	}

	c.low.SetType(audio.Lowshelf)
	c.low.Frequency().SetValueAtTime(lowShelfFrequency, now)
	c.mid.SetType(audio.Peaking)
	c.mid.Frequency().SetValueAtTime(midFrequency, now)
	c.mid.Q().SetValueAtTime(midQ, now)
	c.high.SetType(audio.Highshelf)
	c.high.Frequency().SetValueAtTime(highShelfFrequency, now)

	c.reverb.SetBuffer(audio.DecayingNoise(ctx.SampleRate(), impulseSeconds, impulseDecay, rng))
	c.analyser.SetFFTSize(analyserFFTSize)
	c.analyser.SetSmoothing(analyserSmoothing)

	c.bus.Connect(c.low)
	c.low.Connect(c.mid)
	c.mid.Connect(c.high)
	c.high.Connect(c.comp)
	c.high.Connect(c.wet)
	c.wet.Connect(c.reverb)
	c.reverb.Connect(c.comp)
	c.comp.Connect(c.master)
	c.master.Connect(ctx.Destination())
	c.master.Connect(c.analyser)

	c.set(fx, now, 0)
	return c
}

// set moves every control toward fx. A zero time constant jumps.
func (c *chain) set(fx Effects, now, tc float64) {
	params := []struct {
		p audio.Param
		v float64
	}{
		{c.low.Gain(), fx.LowGain},
		{c.mid.Gain(), fx.MidGain},
		{c.high.Gain(), fx.HighGain},
		{c.wet.Gain(), fx.Reverb},
		{c.comp.Threshold(), fx.Threshold},
		{c.comp.Knee(), fx.Knee},
		{c.comp.Ratio(), fx.Ratio},
		{c.comp.Attack(), fx.Attack},
		{c.comp.Release(), fx.Release},
		{c.master.Gain(), fx.Master},
	}
	for _, x := range params {
		if tc <= 0 {
			x.p.SetValueAtTime(x.v, now)
			continue
		}
		x.p.SetTargetAtTime(x.v, now, tc)
	}
}
