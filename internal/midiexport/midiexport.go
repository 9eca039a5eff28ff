// Package midiexport renders chart timelines as standard MIDI files so
// a chart's rhythm can be auditioned in any sequencer. Keysound slots
// have no pitch of their own, so objects land on the General MIDI
// percussion channel with one key per lane.
package midiexport

import (
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Bobini1/bmschart-go/bms"
	"github.com/Bobini1/bmschart-go/timing"
)

const (
	drumChannel = 9 // General MIDI percussion, zero-based
	hitVelocity = 100
)

// Build assembles a two-track file from a timeline: a conductor track
// carrying the title, tempo map and stop markers, and a percussion
// track with one hit per audible object.
func Build(tl *timing.Timeline, title string) *smf.SMF {
	clock := smf.MetricTicks(480)
	grid := newBeatGrid(clock, tl)

	s := smf.New()
	s.TimeFormat = clock
	s.Add(buildConductor(tl, grid, title))
	s.Add(buildNotes(tl, grid))
	return s
}

// Write renders tl as a MIDI file on w.
func Write(w io.Writer, tl *timing.Timeline, title string) error {
	_, err := Build(tl, title).WriteTo(w)
	return err
}

// WriteFile renders tl as a MIDI file at path.
func WriteFile(path string, tl *timing.Timeline, title string) error {
	return Build(tl, title).WriteFile(path)
}

// beatGrid converts a measure and an offset inside it to absolute ticks.
type beatGrid struct {
	clock smf.MetricTicks
	start []float64
	scale []float64
}

func newBeatGrid(clock smf.MetricTicks, tl *timing.Timeline) beatGrid {
	g := beatGrid{
		clock: clock,
		start: make([]float64, len(tl.Measures)),
		scale: make([]float64, len(tl.Measures)),
	}
	b := 0.0
	for i, m := range tl.Measures {
		g.start[i] = b
		g.scale[i] = m.Scale
		b += 4 * m.Scale
	}
	return g
}

func (g beatGrid) tick(measure int, offset float64) uint32 {
	if measure < 0 || measure >= len(g.start) {
		return 0
	}
	beat := g.start[measure] + offset*4*g.scale[measure]
	return uint32(math.Round(beat * float64(g.clock.Ticks4th())))
}

func buildConductor(tl *timing.Timeline, grid beatGrid, title string) smf.Track {
	var tr smf.Track
	if title != "" {
		tr.Add(0, smf.MetaTrackSequenceName(title))
	}
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(tl.InitialBPM))

	last := uint32(0)
	bpm := tl.InitialBPM
	for _, ev := range tl.Events {
		t := grid.tick(ev.Measure, ev.Offset)
		if ev.BPM != bpm {
			tr.Add(t-last, smf.MetaTempo(ev.BPM))
			bpm = ev.BPM
			last = t
		}
		if ev.Channel == bms.ChannelStop {
			tr.Add(t-last, smf.MetaMarker("stop "+string(ev.Slot)))
			last = t
		}
	}
	tr.Close(0)
	return tr
}

type drumHit struct {
	tick uint32
	off  bool
	key  uint8
}

func buildNotes(tl *timing.Timeline, grid beatGrid) smf.Track {
	// Short fixed gates: keysound lengths live in the audio files, not
	// the chart, so every hit gets a 16th.
	gate := grid.clock.Ticks4th() / 4

	var hits []drumHit
	for _, ev := range tl.Events {
		key, ok := drumKey(ev.Channel)
		if !ok {
			continue
		}
		t := grid.tick(ev.Measure, ev.Offset)
		hits = append(hits, drumHit{tick: t, key: key}, drumHit{tick: t + gate, off: true, key: key})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].tick != hits[j].tick {
			return hits[i].tick < hits[j].tick
		}
		return hits[i].off && !hits[j].off
	})

	var tr smf.Track
	tr.Add(0, smf.MetaInstrument("keysounds"))
	last := uint32(0)
	for _, h := range hits {
		d := h.tick - last
		if h.off {
			tr.Add(d, midi.NoteOff(drumChannel, h.key))
		} else {
			tr.Add(d, midi.NoteOn(drumChannel, h.key, hitVelocity))
		}
		last = h.tick
	}
	tr.Close(0)
	return tr
}

// drumKey maps an object channel to a percussion key. Backing tracks
// land on 35, side one lanes on 37 and up, side two on 49 and up.
// Invisible objects and landmines make no sound and are skipped.
func drumKey(ch string) (uint8, bool) {
	if ch == bms.ChannelBGM {
		return 35, true
	}
	kind, side, lane, ok := bms.NoteChannel(ch)
	if !ok || kind == bms.NoteInvisible || kind == bms.NoteLandmine {
		return 0, false
	}
	base := 36
	if side == 2 {
		base = 48
	}
	return uint8(base + lane), true
}
