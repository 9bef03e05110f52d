//go:build js
// +build js

// Command web runs the chord widget in a browser on the Web Audio API. Build
// it with gopherjs; it exposes a Chordsmith object to the page.
package main

import (
	"github.com/gopherjs/gopherjs/js"
	"github.com/jsphweid/chordsmith/audio/webaudio"
	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/controller"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/scheduler"
	"github.com/jsphweid/chordsmith/synth"
	"github.com/jsphweid/chordsmith/voicing"
)

// errString turns an error into something a page can test for truthiness.
func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func main() {
	ctx, err := webaudio.New()
	if err != nil {
		js.Global.Get("console").Call("error", err.Error())
		return
	}
	c := clock.Real{}
	engine := synth.New(ctx, c)
	sched := scheduler.New(c, engine)
	ctrl := controller.New(sched, controller.WithVoices(engine))

	update := func(f func(p *controller.Params) error) string {
		p := ctrl.Params()
		if err := f(&p); err != nil {
			return err.Error()
		}
		return errString(ctrl.SetParams(p))
	}

	js.Global.Set("Chordsmith", map[string]interface{}{
		// browsers keep audio suspended until a gesture
		"press": func() string {
			ctx.Resume()
			return string(ctrl.Press())
		},
		"release": func() {
			ctrl.Release()
		},
		"trigger": func() string {
			ctx.Resume()
			return string(ctrl.Trigger())
		},
		"stop": func() {
			ctrl.Stop()
		},
		"chord": func() []string {
			pitches, err := ctrl.Chord()
			if err != nil {
				return nil
			}
			return chord.NoteNames(pitches)
		},
		"setSymbol": func(symbol string) string {
			return update(func(p *controller.Params) error {
				root, q, err := chord.ParseSymbol(symbol, p.Octave)
				if err != nil {
					return err
				}
				p.Root, p.Quality = chord.PitchClass(root), q
				return nil
			})
		},
		"setOctave": func(octave int) {
			ctrl.SetOctave(octave)
		},
		"setTranspose": func(semitones int) {
			ctrl.SetTranspose(semitones)
		},
		"setVoicing": func(name string) string {
			return update(func(p *controller.Params) error {
				v, err := voicing.ParsePolicy(name)
				p.Voicing = v
				return err
			})
		},
		"setMode": func(name string) string {
			return update(func(p *controller.Params) error {
				m, err := model.ParseMode(name)
				p.Mode = m
				return err
			})
		},
		"setLatch": func(on bool) {
			ctrl.SetLatch(on)
		},
		"setTiming": func(holdMs, strumMs, rateMs int, gate float64) {
			ctrl.SetTiming(scheduler.Timing{
				Hold:       ms(holdMs),
				StrumDelay: ms(strumMs),
				Rate:       ms(rateMs),
				Gate:       gate,
			})
		},
		"setEnvelope": func(attack, decay, sustain, release float64, live bool) {
			engine.SetEnvelope(synth.Envelope{Attack: attack, Decay: decay, Sustain: sustain, Release: release})
			if live {
				engine.RetargetLive()
			}
		},
		"setEffects": func(low, mid, high, reverb, master float64) {
			fx := engine.Effects()
			fx.LowGain, fx.MidGain, fx.HighGain = low, mid, high
			fx.Reverb, fx.Master = reverb, master
			engine.SetEffects(fx)
		},
		"setWaveform": func(name string) {
			engine.SetWaveform(audioWaveform(name))
		},
		"spectrum": func() []float64 {
			return engine.Analyser().FrequencyData()
		},
		"voices": func() int {
			return len(engine.Voices())
		},
	})

	js.Global.Call("addEventListener", "beforeunload", func() {
		ctrl.Close()
		engine.Close()
	})

	select {}
}
