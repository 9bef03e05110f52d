// Package midi wraps gomidi for port lookup, live input and Standard MIDI
// File conversion of recorded performances.
package midi

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/jsphweid/chordsmith/util"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Files are written at 960 ticks per quarter and 62.5 bpm so that one tick
// is exactly one millisecond.
const (
	Resolution = 960
	FileTempo  = 62.5
	defaultBPM = 120
)

// Ports lists input and output port names in driver order.
func Ports() (ins, outs []string) {
	for _, in := range gomidi.GetInPorts() {
		ins = append(ins, in.String())
	}
	for _, out := range gomidi.GetOutPorts() {
		outs = append(outs, out.String())
	}
	return ins, outs
}

// FindOutPort resolves name as a port index or a substring of a port name.
// An empty name picks the first port.
func FindOutPort(name string) (drivers.Out, error) {
	var out drivers.Out
	var err error
	if name == "" {
		out, err = gomidi.OutPort(0)
	} else if n, convErr := strconv.Atoi(name); convErr == nil {
		out, err = gomidi.OutPort(n)
	} else {
		out, err = gomidi.FindOutPort(name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not find MIDI output %q", name)
	}
	return out, nil
}

func FindInPort(name string) (drivers.In, error) {
	var in drivers.In
	var err error
	if name == "" {
		in, err = gomidi.InPort(0)
	} else if n, convErr := strconv.Atoi(name); convErr == nil {
		in, err = gomidi.InPort(n)
	} else {
		in, err = gomidi.FindInPort(name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not find MIDI input %q", name)
	}
	return in, nil
}

// OpenOut finds and opens an output port ready for sink.Forwarder.
func OpenOut(name string) (drivers.Out, error) {
	out, err := FindOutPort(name)
	if err != nil {
		return nil, err
	}
	if err := out.Open(); err != nil {
		return nil, errors.Wrapf(err, "could not open MIDI output %s", out)
	}
	return out, nil
}

// Listen forwards every channel message from in to handle until stop is
// called.
func Listen(in drivers.In, handle func(msg []byte)) (stop func(), err error) {
	stop, err = gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		handle(msg.Bytes())
	}, gomidi.HandleError(func(err error) {
		slog.Warn("MIDI input error", "port", in.String(), "err", err)
	}))
	if err != nil {
		return nil, errors.Wrapf(err, "could not listen on %s", in)
	}
	return stop, nil
}

func CloseDriver() {
	gomidi.CloseDriver()
}

func ReadMidiFile(filepath string) (s *smf.SMF, e error) {
	var blank smf.SMF

	// smf panics on some malformed files
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s, e = &blank, errors.Errorf("error parsing midi file %s: %v", filepath, r)
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return &blank, errors.Wrap(err, "error reading midi file")
	}
	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return &blank, errors.Wrap(err, "error parsing midi file")
	}
	return res, nil
}

// Encode writes events as a single track file on the given channel. Events
// must be in time order; out of range pitches are dropped like a sink would.
func Encode(w io.Writer, events []model.Event, channel int) error {
	ch := uint8(util.Clamp(channel, sink.MinChannel, sink.MaxChannel) - 1)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(FileTempo))
	var last time.Duration
	for _, e := range events {
		if !util.InRange(e.Pitch, sink.MinPitch, sink.MaxPitch) {
			continue
		}
		at := util.Max(e.At, last)
		delta := uint32((at - last).Round(time.Millisecond) / time.Millisecond)
		last += time.Duration(delta) * time.Millisecond

		key := uint8(e.Pitch)
		if e.Kind == model.NoteOn {
			vel := uint8(util.Clamp(e.Velocity, sink.MinVelocity, sink.MaxVelocity))
			tr.Add(delta, gomidi.NoteOn(ch, key, vel))
		} else {
			tr.Add(delta, gomidi.NoteOff(ch, key))
		}
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)
	if err := s.Add(tr); err != nil {
		return errors.Wrap(err, "could not add track")
	}
	if _, err := s.WriteTo(w); err != nil {
		return errors.Wrap(err, "could not write midi file")
	}
	return nil
}

func WriteSMF(path string, events []model.Event, channel int) error {
	var buf bytes.Buffer
	if err := Encode(&buf, events, channel); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "could not write %s", path)
}

// initialTempo is the first tempo in the first track, where format 1 files
// keep their tempo map.
func initialTempo(s *smf.SMF) float64 {
	if len(s.Tracks) > 0 {
		for _, ev := range s.Tracks[0] {
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				return bpm
			}
		}
	}
	return defaultBPM
}

// Events flattens every track of s into note events ordered by time.
// Tempo changes after the first are only honoured within their own track.
func Events(s *smf.SMF) ([]model.Event, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("only metric time formats are supported")
	}
	res := float64(mt.Resolution())
	start := initialTempo(s)

	var events []model.Event
	for _, tr := range s.Tracks {
		bpm := start
		var at float64
		for _, ev := range tr {
			at += float64(ev.Delta) * float64(time.Minute) / (bpm * res)

			var tempo float64
			if ev.Message.GetMetaTempo(&tempo) && tempo > 0 {
				bpm = tempo
				continue
			}
			var ch, key, vel uint8
			msg := gomidi.Message(ev.Message)
			offset := time.Duration(math.Round(at))
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				events = append(events, model.Event{Kind: model.NoteOn, Pitch: model.Pitch(key), Velocity: int(vel), At: offset})
			case msg.GetNoteEnd(&ch, &key):
				events = append(events, model.Event{Kind: model.NoteOff, Pitch: model.Pitch(key), At: offset})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At < events[j].At
	})
	return events, nil
}

// Replay schedules events against s from now and returns a function that
// cancels whatever has not fired yet. It does not release notes already
// sounding.
func Replay(c clock.Clock, events []model.Event, s sink.Sink) (cancel func()) {
	handles := make([]clock.Handle, 0, len(events))
	for _, e := range events {
		e := e
		handles = append(handles, c.AfterFunc(e.At, func() {
			if e.Kind == model.NoteOn {
				s.NoteOn(e.Pitch, e.Velocity)
			} else {
				s.NoteOff(e.Pitch)
			}
		}))
	}
	return func() {
		for _, h := range handles {
			h.Stop()
		}
	}
}

// Duration is the time of the last event.
func Duration(events []model.Event) time.Duration {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].At
}
