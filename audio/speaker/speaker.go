// Package speaker plays a rendered audio graph on the default output device.
package speaker

import (
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/pkg/errors"
)

const DefaultLatency = 50 * time.Millisecond

// Renderer produces mono samples on demand; audio.Graph is one.
type Renderer interface {
	Render(frames int) []float64
	SampleRate() float64
}

// Streamer adapts r to beep, copying each mono sample to both channels.
// It never drains.
func Streamer(r Renderer) beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		buf := r.Render(len(samples))
		for i, s := range buf {
			samples[i][0] = s
			samples[i][1] = s
		}
		return len(samples), true
	})
}

// Play initialises the speaker at r's sample rate and starts pulling from
// it. Call Close to release the device.
func Play(r Renderer, latency time.Duration) error {
	if latency <= 0 {
		latency = DefaultLatency
	}
	sr := beep.SampleRate(int(r.SampleRate()))
	if err := speaker.Init(sr, sr.N(latency)); err != nil {
		return errors.Wrap(err, "could not open audio device")
	}
	speaker.Play(Streamer(r))
	return nil
}

func Close() {
	speaker.Clear()
	speaker.Close()
}
