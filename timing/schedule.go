// Package timing lays a resolved chart onto the wall clock. Slot positions
// become absolute times by integrating the tempo map: the header BPM,
// inline and table-driven BPM changes, per-measure length scaling and
// #STOPxx pauses all move everything behind them.
package timing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Bobini1/bmschart-go/bms"
	"github.com/Bobini1/bmschart-go/resolve"
)

// DefaultBPM applies when a chart has no #BPM header. 130 is the
// conventional fallback for the format.
const DefaultBPM = 130.0

// TimedEvent is one non-empty slot placed on the clock.
type TimedEvent struct {
	Time    time.Duration
	Measure int
	Offset  float64 // position inside the measure as a fraction in [0, 1)
	Channel string
	Slot    bms.Slot
	BPM     float64 // tempo in effect at this instant
}

// Measure marks where one measure begins and how long it is relative to
// a plain 4/4 bar.
type Measure struct {
	Number int
	Scale  float64
	Start  time.Duration
}

// Timeline is the playable schedule: every object with an absolute time,
// in time order, plus the measure grid the objects sit on. Length is the
// instant the final measure ends.
type Timeline struct {
	InitialBPM float64
	Events     []TimedEvent
	Measures   []Measure
	Length     time.Duration
}

// Processing priority for points sharing one beat position. Tempo applies
// from its instant onward, objects fire at the instant, and a stop holds
// the clock only after everything at that instant has fired.
const (
	orderMeasure = iota
	orderTempo
	orderObject
	orderStop
	orderEnd
)

type point struct {
	beat    float64
	order   int
	measure int
	offset  float64
	channel string
	slot    bms.Slot
	tempo   float64
	pause   float64 // beats to hold the clock
}

// Schedule places every object of a flattened chart in time. The measure
// scale channel (02) is consumed into the grid rather than emitted as an
// event; BPM and stop references that point at a missing table entry are
// ignored, matching how players treat them.
func Schedule(flat *resolve.FlatChart) (*Timeline, error) {
	bpm := DefaultBPM
	if flat.Meta.BPM != nil {
		bpm = *flat.Meta.BPM
	}
	if bpm <= 0 {
		return nil, fmt.Errorf("initial bpm must be positive, got %g", bpm)
	}

	maxMeasure := -1
	for _, ev := range flat.Events {
		if ev.Measure > maxMeasure {
			maxMeasure = ev.Measure
		}
	}
	tl := &Timeline{InitialBPM: bpm}
	if maxMeasure < 0 {
		return tl, nil
	}

	scale := make([]float64, maxMeasure+1)
	for i := range scale {
		scale[i] = 1
	}
	for _, ev := range flat.Events {
		if ev.Channel != bms.ChannelMeasure {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(ev.Raw), 64)
		if err != nil || v <= 0 {
			continue
		}
		scale[ev.Measure] = v
	}

	// Beat offset of each measure start; measure m spans 4*scale[m] beats.
	start := make([]float64, maxMeasure+2)
	for m := 0; m <= maxMeasure; m++ {
		start[m+1] = start[m] + 4*scale[m]
	}

	pts := make([]point, 0, len(flat.Events)*4+maxMeasure+2)
	for m := 0; m <= maxMeasure; m++ {
		pts = append(pts, point{beat: start[m], order: orderMeasure, measure: m})
	}
	pts = append(pts, point{beat: start[maxMeasure+1], order: orderEnd})

	for _, ev := range flat.Events {
		if ev.Channel == bms.ChannelMeasure || len(ev.Slots) == 0 {
			continue
		}
		n := len(ev.Slots)
		for i, s := range ev.Slots {
			if s.IsEmpty() {
				continue
			}
			off := float64(i) / float64(n)
			beat := start[ev.Measure] + off*4*scale[ev.Measure]
			switch ev.Channel {
			case bms.ChannelBPM:
				if v, err := strconv.ParseInt(string(s), 16, 64); err == nil && v > 0 {
					pts = append(pts, point{beat: beat, order: orderTempo, tempo: float64(v)})
				}
			case bms.ChannelExBPM:
				if v, ok := flat.Meta.ExBPM[string(s)]; ok && v > 0 {
					pts = append(pts, point{beat: beat, order: orderTempo, tempo: v})
				}
			case bms.ChannelStop:
				// Stop values count in 1/192 of a whole note: v/48 beats.
				if v, ok := flat.Meta.Stops[string(s)]; ok && v > 0 {
					pts = append(pts, point{beat: beat, order: orderStop, pause: v / 48})
				}
			}
			pts = append(pts, point{
				beat:    beat,
				order:   orderObject,
				measure: ev.Measure,
				offset:  off,
				channel: ev.Channel,
				slot:    s,
			})
		}
	}

	sort.SliceStable(pts, func(i, j int) bool {
		if pts[i].beat != pts[j].beat {
			return pts[i].beat < pts[j].beat
		}
		return pts[i].order < pts[j].order
	})

	curBeat := 0.0
	curBPM := bpm
	var cur time.Duration
	for _, p := range pts {
		cur += beatsToDuration(p.beat-curBeat, curBPM)
		curBeat = p.beat
		switch p.order {
		case orderMeasure:
			tl.Measures = append(tl.Measures, Measure{Number: p.measure, Scale: scale[p.measure], Start: cur})
		case orderTempo:
			curBPM = p.tempo
		case orderObject:
			tl.Events = append(tl.Events, TimedEvent{
				Time:    cur,
				Measure: p.measure,
				Offset:  p.offset,
				Channel: p.channel,
				Slot:    p.slot,
				BPM:     curBPM,
			})
		case orderStop:
			cur += beatsToDuration(p.pause, curBPM)
		case orderEnd:
			tl.Length = cur
		}
	}
	return tl, nil
}

func beatsToDuration(beats, bpm float64) time.Duration {
	return time.Duration(beats * 60 / bpm * float64(time.Second))
}
