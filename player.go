package bmschart

import (
	"errors"
	"sync"
	"time"

	intaudio "github.com/Bobini1/bmschart-go/internal/audio"
	intaud "github.com/Bobini1/bmschart-go/internal/audition"
	intclick "github.com/Bobini1/bmschart-go/internal/click"
	"github.com/Bobini1/bmschart-go/timing"
)

// PlaybackEvent carries playback progress events from Watch().
type PlaybackEvent struct {
	Kind    int
	Measure int    // set for EventHit
	Channel string // set for EventHit
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
	EventHit
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	loopPlayback bool
	metronome    bool
	sampleTap    func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{}
}

// WithLoopPlayback makes playback restart from the top after the chart
// ends instead of stopping.
func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithMetronome adds a tick on every measure line.
func WithMetronome(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.metronome = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// Player auditions loaded songs as click blips through the platform
// mixer.
type Player struct {
	mu           sync.Mutex
	sampleRate   int
	loopPlayback bool
	metronome    bool
	sampleTap    func([]float32)
	engine       *intclick.Engine
	audio        *intaudio.Player
	baseGain     float64
	volume       float64
	done         chan struct{}
	eventCh      chan PlaybackEvent
	eventChMu    sync.Mutex
}

// tapSource lets a sample tap observe each buffer a sequence produces.
type tapSource struct {
	seq *intaud.Sequence
	tap func([]float32)
}

func (s *tapSource) Process(dst []float32) {
	s.seq.Process(dst)
	if s.tap != nil {
		s.tap(dst)
	}
}

func (s *tapSource) Finished() bool {
	return s.seq.Finished()
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	params := intclick.DefaultParams()
	return &Player{
		sampleRate:   sampleRate,
		loopPlayback: cfg.loopPlayback,
		metronome:    cfg.metronome,
		sampleTap:    cfg.sampleTap,
		engine:       intclick.New(sampleRate, params),
		baseGain:     params.MasterGain,
		volume:       1,
	}, nil
}

// Play starts auditioning song, replacing any current playback.
func (p *Player) Play(song *Song) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	// Recreate the engine on every Play so voices never ring across
	// songs.
	params := intclick.DefaultParams()
	engine := intclick.New(p.sampleRate, params)
	engine.SetMasterGain(params.MasterGain * p.volume)
	p.engine = engine
	p.baseGain = params.MasterGain

	seq := intaud.NewWithOptions(song.Timeline, engine, p.sampleRate, intaud.Options{
		Loop:      p.loopPlayback,
		Metronome: p.metronome,
		OnEvent: func(kind intaud.EventKind) {
			switch kind {
			case intaud.EventLoopCompleted:
				p.sendEvent(PlaybackEvent{Kind: EventLoopCompleted})
			case intaud.EventPlaybackEnded:
				p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
				p.signalDone()
			}
		},
		OnHit: func(ev timing.TimedEvent) {
			p.sendEvent(PlaybackEvent{Kind: EventHit, Measure: ev.Measure, Channel: ev.Channel})
		},
	})

	backend, err := intaudio.NewPlayer(p.sampleRate, &tapSource{seq: seq, tap: p.sampleTap})
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

// PlayFile loads path with seed and starts playback.
func (p *Player) PlayFile(path string, seed int64) error {
	song, err := LoadFile(path, seed)
	if err != nil {
		return err
	}
	return p.Play(song)
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full or closed; drop event
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. When loop playback is
// enabled, Wait blocks indefinitely (use Watch for loop-counting
// instead). Wait returns immediately if no playback is active or if it
// was stopped.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. Events are sent when:
//   - EventLoopCompleted: a whole-chart pass finished (when looping)
//   - EventPlaybackEnded: playback finished (when not looping)
//   - EventHit: an audible object fired (Measure and Channel set)
//
// The channel is buffered (cap 8); receive in a goroutine to avoid blocking
// the audio thread. Only the most recent Watch() channel receives events;
// call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(p.baseGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlaybackPosition returns the current output position of the audio
// driver, i.e. what the listener actually hears right now. Returns 0 if
// not playing.
func (p *Player) PlaybackPosition() time.Duration {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return a.Position()
}
