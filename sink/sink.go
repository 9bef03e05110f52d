package sink

import (
	"log/slog"
	"sync"

	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/util"
	"gitlab.com/gomidi/midi/v2"
)

const (
	MinPitch    = 0
	MaxPitch    = 127
	MinVelocity = 1
	MaxVelocity = 127
	MinChannel  = 1
	MaxChannel  = 16
)

// Sink receives note events. Implementations never fail: anything that
// cannot be delivered is dropped.
type Sink interface {
	NoteOn(p model.Pitch, velocity int)
	NoteOff(p model.Pitch)
}

// Sender is an output port that accepts raw MIDI messages. A gomidi
// drivers.Out satisfies it.
type Sender interface {
	Send(data []byte) error
}

// Forwarder writes note events as 3-byte channel messages.
//
// Pitches outside 0-127 are dropped, velocity is clamped to 1-127 and the
// channel (1-based) is clamped to 1-16.
type Forwarder struct {
	out     Sender
	channel uint8
}

func NewForwarder(out Sender, channel int) *Forwarder {
	return &Forwarder{
		out:     out,
		channel: uint8(util.Clamp(channel, MinChannel, MaxChannel) - 1),
	}
}

func (f *Forwarder) Channel() int {
	return int(f.channel) + 1
}

func (f *Forwarder) NoteOn(p model.Pitch, velocity int) {
	if !util.InRange(p, MinPitch, MaxPitch) {
		slog.Debug("dropping out of range note on", "pitch", p)
		return
	}
	vel := uint8(util.Clamp(velocity, MinVelocity, MaxVelocity))
	f.send(midi.NoteOn(f.channel, uint8(p), vel))
}

func (f *Forwarder) NoteOff(p model.Pitch) {
	if !util.InRange(p, MinPitch, MaxPitch) {
		return
	}
	f.send(midi.NoteOff(f.channel, uint8(p)))
}

func (f *Forwarder) send(msg midi.Message) {
	if f.out == nil {
		return
	}
	if err := f.out.Send(msg.Bytes()); err != nil {
		slog.Debug("midi send failed", "msg", msg.String(), "err", err)
	}
}

// Nop is the sink used while no output is selected.
type Nop struct{}

func (Nop) NoteOn(model.Pitch, int) {}
func (Nop) NoteOff(model.Pitch)     {}

// Switch forwards to a sink that can be replaced mid-performance. Pitches
// still sounding on the old target are turned off there before the swap.
type Switch struct {
	mu     sync.Mutex
	target Sink
	on     map[model.Pitch]bool
}

func NewSwitch(target Sink) *Switch {
	return &Switch{target: target, on: make(map[model.Pitch]bool)}
}

func (s *Switch) Set(target Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != nil {
		for _, p := range util.SortedKeys(s.on) {
			s.target.NoteOff(p)
		}
	}
	s.on = make(map[model.Pitch]bool)
	s.target = target
}

func (s *Switch) NoteOn(p model.Pitch, velocity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return
	}
	s.on[p] = true
	s.target.NoteOn(p, velocity)
}

func (s *Switch) NoteOff(p model.Pitch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return
	}
	delete(s.on, p)
	s.target.NoteOff(p)
}

// Tee sends every event to each of its sinks in order.
type Tee []Sink

func (t Tee) NoteOn(p model.Pitch, velocity int) {
	for _, s := range t {
		s.NoteOn(p, velocity)
	}
}

func (t Tee) NoteOff(p model.Pitch) {
	for _, s := range t {
		s.NoteOff(p)
	}
}
