// Package click synthesizes the short percussive blips used to audition
// charts when their keysound files are not around. A voice is a single
// fire-and-forget hit with a decaying envelope; timbre and pitch follow
// the object's channel so lanes stay tellable apart by ear.
package click

import (
	"math"
	"sync/atomic"

	"github.com/Bobini1/bmschart-go/bms"
)

const twoPi = math.Pi * 2

type Params struct {
	Voices     int
	MasterGain float64
	DecaySec   float64
	PulseDuty  float64
}

func DefaultParams() Params {
	return Params{
		Voices:     24,
		MasterGain: 0.3,
		DecaySec:   0.07,
		PulseDuty:  0.25,
	}
}

type waveType int

const (
	wavePulse waveType = iota
	waveTriangle
	waveNoise
)

// Tone describes one blip. Build tones with ToneFor and BarTone.
type Tone struct {
	wave  waveType
	freq  float64
	pan   float64 // -64 (left) .. 64 (right)
	level float64
}

// ToneFor maps an object channel to a blip. Backing tracks get a low
// triangle in the middle, lanes a pulse stepping up a semitone per lane
// with side one panned left and side two right, and the scratch lane a
// noise burst. Invisible objects and landmines make no sound.
func ToneFor(channel string) (Tone, bool) {
	if channel == bms.ChannelBGM {
		return Tone{wave: waveTriangle, freq: 196, level: 0.55}, true
	}
	kind, side, lane, ok := bms.NoteChannel(channel)
	if !ok || kind == bms.NoteInvisible || kind == bms.NoteLandmine {
		return Tone{}, false
	}
	pan := -38.0
	if side == 2 {
		pan = 38
	}
	if lane == 6 {
		return Tone{wave: waveNoise, freq: 2400, pan: pan, level: 0.9}, true
	}
	return Tone{
		wave:  wavePulse,
		freq:  523.25 * math.Pow(2, float64(lane)/12),
		pan:   pan,
		level: 0.85,
	}, true
}

// BarTone is the metronome tick played on measure lines.
func BarTone() Tone {
	return Tone{wave: wavePulse, freq: 1760, level: 0.5}
}

type voice struct {
	active    bool
	age       int
	wave      waveType
	freq      float64
	phase     float64
	env       float64
	level     float64
	pan       float64
	noiseLFSR uint16
}

type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	masterGain uint64
}

func New(sampleRate int, params Params) *Engine {
	if params.Voices <= 0 {
		params.Voices = 24
	}
	if params.DecaySec <= 0 {
		params.DecaySec = 0.07
	}
	if params.PulseDuty <= 0 || params.PulseDuty >= 1 {
		params.PulseDuty = 0.25
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		masterGain: math.Float64bits(params.MasterGain),
	}
	for i := range e.voices {
		e.voices[i].noiseLFSR = uint16(0xACE1 + i*97)
	}
	return e
}

// Strike starts one blip, stealing the oldest voice when all are busy.
func (e *Engine) Strike(t Tone) {
	v := &e.voices[e.stealVoice()]
	v.active = true
	v.age = 0
	v.wave = t.wave
	v.freq = t.freq
	v.phase = 0
	v.env = 1
	v.level = t.level
	v.pan = clamp(t.pan, -64, 64)
	if v.noiseLFSR == 0 {
		v.noiseLFSR = 0xACE1
	}
}

func (e *Engine) RenderFrame() (float32, float32) {
	gain := e.masterGainValue()
	step := 1.0 / (e.params.DecaySec * e.sampleRate)
	var l, r float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		v.env -= step
		if v.env <= 0 {
			v.env = 0
			v.active = false
			continue
		}
		// env squared gives the hit a percussive tail.
		sig := e.renderWave(v) * v.env * v.env * v.level
		angle := ((v.pan + 64.0) / 128.0) * (math.Pi / 2.0)
		l += sig * math.Cos(angle) * gain
		r += sig * math.Sin(angle) * gain
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (e *Engine) renderWave(v *voice) float64 {
	dt := v.freq / e.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch v.wave {
	case wavePulse:
		out := -1.0
		if v.phase < e.params.PulseDuty {
			out = 1
		}
		out += polyBLEP(v.phase, dt)
		out -= polyBLEP(math.Mod(v.phase-e.params.PulseDuty+1, 1), dt)
		return out
	case waveTriangle:
		return 2*math.Abs(2*v.phase-1) - 1
	case waveNoise:
		if v.phase < dt {
			bit := (v.noiseLFSR ^ (v.noiseLFSR >> 1)) & 1
			v.noiseLFSR = (v.noiseLFSR >> 1) | (bit << 15)
		}
		if v.noiseLFSR&1 == 1 {
			return 1
		}
		return -1
	default:
		return 0
	}
}

func (e *Engine) stealVoice() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	oldest := 0
	oldestAge := -1
	for i := range e.voices {
		if e.voices[i].age > oldestAge {
			oldest = i
			oldestAge = e.voices[i].age
		}
	}
	return oldest
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
