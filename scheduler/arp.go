package scheduler

import (
	"math"
	"time"

	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/util"
)

type arpeggiator struct {
	order    []model.Pitch
	next     int
	velocity int
	rate     time.Duration
	gate     time.Duration
	running  bool
}

func (a *arpeggiator) isRunning() bool {
	return a != nil && a.running
}

// arpOrder fixes the note order for one trigger. notes is ascending.
func (s *Scheduler) arpOrder(notes []model.Pitch, mode model.Mode) []model.Pitch {
	order := make([]model.Pitch, len(notes))
	switch mode {
	case model.ModeArpDown:
		for i, p := range notes {
			order[len(notes)-1-i] = p
		}
	case model.ModeArpRandom:
		for i, j := range s.rng.Perm(len(notes)) {
			order[i] = notes[j]
		}
	default:
		copy(order, notes)
	}
	return order
}

func (s *Scheduler) gateFraction(g float64) float64 {
	if g <= 0 {
		g = DefaultGate
	}
	return util.Clamp(g, MinGate, MaxGate)
}

func (s *Scheduler) startArpeggio(perf *performance, notes []model.Pitch, mode model.Mode, timing Timing, velocity int) {
	if len(notes) == 0 {
		return
	}
	rate := timing.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	perf.arp = &arpeggiator{
		order:    s.arpOrder(notes, mode),
		velocity: velocity,
		rate:     rate,
		gate:     time.Duration(math.Round(float64(rate) * s.gateFraction(timing.Gate))),
		running:  true,
	}
	if timing.Offset > 0 {
		t := s.after(perf, timing.Offset, func() {
			s.tick(perf)
		})
		t.tick = true
		return
	}
	s.tick(perf)
}

// tick plays the next note, schedules its gate off and the following tick.
func (s *Scheduler) tick(perf *performance) {
	a := perf.arp
	if !a.isRunning() {
		return
	}
	p := a.order[a.next%len(a.order)]
	a.next++
	seq := s.noteOn(perf, p, a.velocity)
	s.after(perf, a.gate, func() {
		s.noteOff(p, seq)
	})
	t := s.after(perf, a.rate, func() {
		s.tick(perf)
	})
	t.tick = true
}

// StopArpeggio halts a running arpeggio. The pending tick is cancelled
// before this returns; the note already sounding still gets its gate off.
func (s *Scheduler) StopArpeggio(id model.ChordID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	perf, ok := s.perfs[id]
	if !ok || !perf.arp.isRunning() {
		return
	}
	perf.arp.running = false
	for t := range perf.tasks {
		if t.tick {
			t.cancelled = true
			t.handle.Stop()
			delete(perf.tasks, t)
		}
	}
	s.finishIfIdle(perf)
}

// Running reports whether the chord has an arpeggio still ticking.
func (s *Scheduler) Running(id model.ChordID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	perf, ok := s.perfs[id]
	return ok && perf.arp.isRunning()
}
