//go:build js
// +build js

package main

import (
	"time"

	"github.com/jsphweid/chordsmith/audio"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// audioWaveform falls back to a triangle for names the page gets wrong.
func audioWaveform(name string) audio.Waveform {
	w, err := audio.ParseWaveform(name)
	if err != nil {
		return audio.Triangle
	}
	return w
}
