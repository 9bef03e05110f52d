package model

import (
	"fmt"
	"time"
)

type Mode string

const (
	ModeChord     Mode = "chord"
	ModeStrum     Mode = "strum"
	ModeArpUp     Mode = "arp-up"
	ModeArpDown   Mode = "arp-down"
	ModeArpRandom Mode = "arp-random"
)

var modes = []Mode{ModeChord, ModeStrum, ModeArpUp, ModeArpDown, ModeArpRandom}

// IsArpeggio reports whether the mode repeats until stopped.
func (m Mode) IsArpeggio() bool {
	return m == ModeArpUp || m == ModeArpDown || m == ModeArpRandom
}

// ParseMode accepts the mode names above plus the short arpeggio
// spellings ("up", "down", "random").
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "simultaneous":
		return ModeChord, nil
	case "up", "arp":
		return ModeArpUp, nil
	case "down":
		return ModeArpDown, nil
	case "random":
		return ModeArpRandom, nil
	}
	for _, m := range modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown performance mode %q", s)
}

type EventKind uint8

const (
	NoteOn EventKind = iota
	NoteOff
)

func (k EventKind) String() string {
	if k == NoteOn {
		return "on"
	}
	return "off"
}

// Event is one note-on or note-off as observed at a sink.
type Event struct {
	Kind     EventKind
	Pitch    Pitch
	Velocity int
	At       time.Duration
}

func (e Event) String() string {
	return fmt.Sprintf("%v(%d)@%v", e.Kind, e.Pitch, e.At)
}
