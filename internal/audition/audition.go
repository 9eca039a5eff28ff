// Package audition renders a scheduled chart as stereo audio, striking
// one click blip per object at its scheduled instant. A Sequence is the
// bridge between a timeline and the audio stream: it pulls frames from
// a click engine and reports loop and end events back to the caller.
package audition

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/Bobini1/bmschart-go/internal/click"
	"github.com/Bobini1/bmschart-go/timing"
)

type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

type Options struct {
	Loop      bool
	Metronome bool
	// OnEvent runs on the audio thread; keep work brief and non-blocking.
	OnEvent func(EventKind)
	// OnHit runs on the audio thread as each audible object fires.
	OnHit func(timing.TimedEvent)
}

// tailTime lets the final blips ring out before a pass ends or loops.
const tailTime = 250 * time.Millisecond

type hit struct {
	frame int64
	tone  click.Tone
	ev    timing.TimedEvent
	bar   bool
}

type Sequence struct {
	engine     *click.Engine
	sampleRate float64
	opts       Options
	hits       []hit
	endFrame   int64
	frame      int64
	next       int
	finished   atomic.Bool
}

func New(tl *timing.Timeline, engine *click.Engine, sampleRate int) *Sequence {
	return NewWithOptions(tl, engine, sampleRate, Options{})
}

func NewWithOptions(tl *timing.Timeline, engine *click.Engine, sampleRate int, opts Options) *Sequence {
	s := &Sequence{
		engine:     engine,
		sampleRate: float64(sampleRate),
		opts:       opts,
	}
	for _, ev := range tl.Events {
		tone, ok := click.ToneFor(ev.Channel)
		if !ok {
			continue
		}
		s.hits = append(s.hits, hit{frame: s.frameAt(ev.Time), tone: tone, ev: ev})
	}
	if opts.Metronome {
		for _, m := range tl.Measures {
			s.hits = append(s.hits, hit{frame: s.frameAt(m.Start), tone: click.BarTone(), bar: true})
		}
	}
	sort.SliceStable(s.hits, func(i, j int) bool { return s.hits[i].frame < s.hits[j].frame })
	s.endFrame = s.frameAt(tl.Length + tailTime)
	return s
}

func (s *Sequence) frameAt(t time.Duration) int64 {
	return int64(t.Seconds()*s.sampleRate + 0.5)
}

// Process fills dst with interleaved stereo samples. After the end of a
// non-looping pass it writes silence.
func (s *Sequence) Process(dst []float32) {
	for i := 0; i+1 < len(dst); i += 2 {
		if s.finished.Load() {
			dst[i], dst[i+1] = 0, 0
			continue
		}
		for s.next < len(s.hits) && s.hits[s.next].frame <= s.frame {
			h := s.hits[s.next]
			s.engine.Strike(h.tone)
			if !h.bar && s.opts.OnHit != nil {
				s.opts.OnHit(h.ev)
			}
			s.next++
		}
		l, r := s.engine.RenderFrame()
		dst[i], dst[i+1] = l, r
		s.frame++
		if s.frame >= s.endFrame {
			if s.opts.Loop {
				s.frame = 0
				s.next = 0
				if s.opts.OnEvent != nil {
					s.opts.OnEvent(EventLoopCompleted)
				}
			} else {
				s.finished.Store(true)
				if s.opts.OnEvent != nil {
					s.opts.OnEvent(EventPlaybackEnded)
				}
			}
		}
	}
}

// Finished reports whether a non-looping pass has played out.
func (s *Sequence) Finished() bool {
	return s.finished.Load()
}

// Position is how far into the current pass rendering has advanced.
func (s *Sequence) Position() time.Duration {
	return time.Duration(float64(s.frame) / s.sampleRate * float64(time.Second))
}
