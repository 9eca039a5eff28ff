// Package audio bridges float32 sample sources to the platform mixer.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source produces interleaved stereo float32 frames. The stream returns
// io.EOF once Finished reports true, which ends playback.
type Source interface {
	Process(dst []float32)
	Finished() bool
}

// stream adapts a Source to the little-endian float32 byte stream the
// mixer reads.
type stream struct {
	mu     sync.Mutex
	source Source
	buf    []float32
}

func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	s.buf = s.buf[:need]
	s.source.Process(s.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s.buf[i]))
	}
	n := frames * 8
	if s.source.Finished() {
		return n, io.EOF
	}
	return n, nil
}

// The mixer context is process-wide and pins the first sample rate it
// was opened with.
var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextRate int
)

func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextRate != sampleRate {
		return nil, fmt.Errorf("audio context already open at %d Hz (requested %d Hz)", contextRate, sampleRate)
	}
	return context, nil
}

// Player plays one Source on the shared mixer.
type Player struct {
	player *ebitaudio.Player
}

func NewPlayer(sampleRate int, source Source) (*Player, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(&stream{source: source})
	if err != nil {
		return nil, err
	}
	return &Player{player: pl}, nil
}

func (p *Player) Play()           { p.player.Play() }
func (p *Player) Pause()          { p.player.Pause() }
func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// Position returns the playback position the listener actually hears.
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

// SetVolume scales the output, 0 silent, 1 unity.
func (p *Player) SetVolume(v float64) {
	p.player.SetVolume(v)
}

func (p *Player) Volume() float64 {
	return p.player.Volume()
}

func (p *Player) Stop() error {
	p.player.Pause()
	return p.player.Close()
}
