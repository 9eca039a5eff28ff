package audition

import (
	"testing"
	"time"

	"github.com/Bobini1/bmschart-go/bms"
	"github.com/Bobini1/bmschart-go/internal/click"
	"github.com/Bobini1/bmschart-go/resolve"
	"github.com/Bobini1/bmschart-go/timing"
)

// A low rate keeps the rendered frame counts small.
const testRate = 1000

func timelineFrom(t *testing.T, src string) *timing.Timeline {
	t.Helper()
	chart, err := bms.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tl, err := timing.Schedule(resolve.Resolve(chart, resolve.Fixed()))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return tl
}

func render(s *Sequence, frames int) []float32 {
	buf := make([]float32, frames*2)
	s.Process(buf)
	return buf
}

func frameSilent(buf []float32, frame int) bool {
	return buf[frame*2] == 0 && buf[frame*2+1] == 0
}

func TestSequenceStrikesScheduledObjects(t *testing.T) {
	tl := timelineFrom(t, "#BPM 120\n#00011:A100\n")
	seq := New(tl, click.New(testRate, click.DefaultParams()), testRate)

	buf := render(seq, 100)
	var nonZero bool
	for i := 0; i < 100; i++ {
		if !frameSilent(buf, i) {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("expected audible output at the start")
	}
}

func TestSequenceWaitsForLaterObjects(t *testing.T) {
	// Two hits one second apart at 120bpm; the first has long decayed
	// by the time the second fires.
	tl := timelineFrom(t, "#BPM 120\n#00011:A1A2\n")
	seq := New(tl, click.New(testRate, click.DefaultParams()), testRate)

	buf := render(seq, 1100)
	for i := 900; i < 1000; i++ {
		if !frameSilent(buf, i) {
			t.Fatalf("expected silence before the second hit, frame %d is audible", i)
		}
	}
	var second bool
	for i := 1000; i < 1100; i++ {
		if !frameSilent(buf, i) {
			second = true
			break
		}
	}
	if !second {
		t.Fatalf("expected the second hit at one second")
	}
}

func TestSequenceEndsOnceAndGoesSilent(t *testing.T) {
	tl := timelineFrom(t, "#BPM 120\n#00011:A100\n")
	var ends int
	seq := NewWithOptions(tl, click.New(testRate, click.DefaultParams()), testRate, Options{
		OnEvent: func(kind EventKind) {
			if kind == EventPlaybackEnded {
				ends++
			}
		},
	})

	buf := render(seq, 2400)
	if !seq.Finished() {
		t.Fatalf("expected sequence to finish")
	}
	if ends != 1 {
		t.Fatalf("expected one end event, got %d", ends)
	}
	for i := 2300; i < 2400; i++ {
		if !frameSilent(buf, i) {
			t.Fatalf("expected silence after the end, frame %d is audible", i)
		}
	}
}

func TestSequenceLoopRestarts(t *testing.T) {
	tl := timelineFrom(t, "#BPM 120\n#00011:A100\n")
	var loops int
	seq := NewWithOptions(tl, click.New(testRate, click.DefaultParams()), testRate, Options{
		Loop: true,
		OnEvent: func(kind EventKind) {
			if kind == EventLoopCompleted {
				loops++
			}
		},
	})

	// One pass is two seconds plus the tail.
	buf := render(seq, 5000)
	if seq.Finished() {
		t.Fatalf("looping sequence must not finish")
	}
	if loops < 2 {
		t.Fatalf("expected at least 2 completed loops, got %d", loops)
	}
	var restarted bool
	for i := 2250; i < 2350; i++ {
		if !frameSilent(buf, i) {
			restarted = true
			break
		}
	}
	if !restarted {
		t.Fatalf("expected the first hit to fire again after the loop")
	}
}

func TestSequenceMetronome(t *testing.T) {
	// A tempo object only: nothing audible unless the metronome ticks.
	src := "#00003:78\n"

	quiet := New(timelineFrom(t, src), click.New(testRate, click.DefaultParams()), testRate)
	buf := render(quiet, 50)
	for i := 0; i < 50; i++ {
		if !frameSilent(buf, i) {
			t.Fatalf("expected silence without a metronome, frame %d is audible", i)
		}
	}

	ticking := NewWithOptions(timelineFrom(t, src), click.New(testRate, click.DefaultParams()), testRate, Options{
		Metronome: true,
	})
	buf = render(ticking, 50)
	var tick bool
	for i := 0; i < 50; i++ {
		if !frameSilent(buf, i) {
			tick = true
			break
		}
	}
	if !tick {
		t.Fatalf("expected a bar tick with the metronome on")
	}
}

func TestSequenceReportsHits(t *testing.T) {
	tl := timelineFrom(t, "#00011:A1\n#00001:B1\n")
	var channels []string
	seq := NewWithOptions(tl, click.New(testRate, click.DefaultParams()), testRate, Options{
		Metronome: true,
		OnHit: func(ev timing.TimedEvent) {
			channels = append(channels, ev.Channel)
		},
	})

	render(seq, 10)
	if len(channels) != 2 {
		t.Fatalf("expected 2 reported hits, got %d (%v)", len(channels), channels)
	}
	seen := map[string]bool{}
	for _, ch := range channels {
		seen[ch] = true
	}
	if !seen["01"] || !seen["11"] {
		t.Fatalf("expected channels 01 and 11, got %v", channels)
	}
}

func TestSequencePosition(t *testing.T) {
	tl := timelineFrom(t, "#00011:A1\n")
	seq := New(tl, click.New(testRate, click.DefaultParams()), testRate)
	render(seq, 100)
	if got := seq.Position(); got != 100*time.Millisecond {
		t.Fatalf("expected position 100ms, got %v", got)
	}
}
