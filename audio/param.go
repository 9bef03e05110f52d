package audio

import (
	"math"
	"sort"
)

type eventKind uint8

const (
	setValue eventKind = iota
	linearRamp
	expRamp
	setTarget
)

type paramEvent struct {
	kind  eventKind
	value float64
	time  float64
	tc    float64
}

// param keeps an automation timeline sorted by time. Reads and writes go
// through the owning graph's lock.
type param struct {
	g        *Graph
	initial  float64
	min, max float64
	events   []paramEvent
}

func newParam(g *Graph, initial, min, max float64) *param {
	return &param{g: g, initial: initial, min: min, max: max}
}

func (p *param) insert(e paramEvent) {
	i := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time > e.time
	})
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

func (p *param) SetValueAtTime(v, t float64) {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	p.insert(paramEvent{kind: setValue, value: v, time: t})
}

func (p *param) LinearRampToValueAtTime(v, t float64) {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	p.insert(paramEvent{kind: linearRamp, value: v, time: t})
}

func (p *param) ExponentialRampToValueAtTime(v, t float64) error {
	if v <= 0 {
		return ErrNonPositiveRamp
	}
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	p.insert(paramEvent{kind: expRamp, value: v, time: t})
	return nil
}

func (p *param) SetTargetAtTime(target, t, timeConstant float64) {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	if timeConstant <= 0 {
		p.insert(paramEvent{kind: setValue, value: target, time: t})
		return
	}
	p.insert(paramEvent{kind: setTarget, value: target, time: t, tc: timeConstant})
}

func (p *param) CancelScheduledValues(t float64) {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	i := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time >= t
	})
	p.events = p.events[:i]
}

func (p *param) Value() float64 {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	return p.valueAt(p.g.now())
}

func (p *param) ValueAt(t float64) float64 {
	p.g.mu.Lock()
	defer p.g.mu.Unlock()
	return p.valueAt(t)
}

func (p *param) clamp(v float64) float64 {
	return math.Max(p.min, math.Min(p.max, v))
}

// valueAt walks the timeline up to t. (vt, v) is the time and value at which
// the curve was last pinned; ramps interpolate from there to their own event.
func (p *param) valueAt(t float64) float64 {
	v, vt := p.initial, 0.0
	for i, e := range p.events {
		switch e.kind {
		case linearRamp, expRamp:
			if t < e.time {
				return p.clamp(interpolate(e, v, vt, t))
			}
			v, vt = e.value, e.time
			continue
		}

		if e.time > t {
			break
		}

		switch e.kind {
		case setValue:
			v, vt = e.value, e.time
		case setTarget:
			var next *paramEvent
			if i+1 < len(p.events) {
				next = &p.events[i+1]
			}
			if next != nil && (next.kind == linearRamp || next.kind == expRamp) {
				vt = e.time
				continue
			}
			if next == nil || next.time > t {
				return p.clamp(approach(e, v, t))
			}
			v, vt = approach(e, v, next.time), next.time
		}
	}
	return p.clamp(v)
}

func interpolate(e paramEvent, v0, t0, t float64) float64 {
	span := e.time - t0
	if span <= 0 {
		return e.value
	}
	frac := (t - t0) / span
	if frac < 0 {
		frac = 0
	}
	if e.kind == linearRamp {
		return v0 + (e.value-v0)*frac
	}
	if v0 <= 0 {
		// an exponential curve cannot leave zero; hold until the end
		return v0
	}
	return v0 * math.Pow(e.value/v0, frac)
}

func approach(e paramEvent, v0, t float64) float64 {
	return e.value + (v0-e.value)*math.Exp(-(t-e.time)/e.tc)
}

// compact drops events that can no longer affect values at or after now by
// replacing everything up to the last finished set or ramp with a single set.
func (p *param) compact(now float64) {
	k := -1
	for i, e := range p.events {
		if e.time > now {
			break
		}
		if e.kind != setTarget {
			k = i
		}
	}
	if k < 0 {
		return
	}
	last := p.events[k]
	p.events = append([]paramEvent{{kind: setValue, value: last.value, time: last.time}}, p.events[k+1:]...)
}
