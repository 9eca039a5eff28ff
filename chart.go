// Package bmschart takes rhythm-game charts from raw file bytes to a
// playable schedule. It glues together the layers underneath: encoding
// detection, parsing, random-branch resolution and timing, and offers
// an audition player that renders charts as click blips without their
// keysound files.
package bmschart

import (
	"os"
	"time"

	"github.com/Bobini1/bmschart-go/bms"
	"github.com/Bobini1/bmschart-go/internal/textenc"
	"github.com/Bobini1/bmschart-go/resolve"
	"github.com/Bobini1/bmschart-go/timing"
)

// Song is one chart carried through the whole pipeline. Chart keeps the
// parsed tree with random blocks intact; Flat and Timeline reflect the
// playthrough the seed settled on.
type Song struct {
	Chart    *bms.Chart
	Encoding string
	Seed     int64
	Flat     *resolve.FlatChart
	Timeline *timing.Timeline
}

// Load decodes, parses and schedules chart bytes. Random blocks settle
// with rolls drawn from seed, so equal seeds replay the same branches.
func Load(data []byte, seed int64) (*Song, error) {
	text, enc := textenc.Decode(data)
	chart, err := bms.Parse(text)
	if err != nil {
		return nil, err
	}
	flat := resolve.Resolve(chart, resolve.Rand(seed))
	tl, err := timing.Schedule(flat)
	if err != nil {
		return nil, err
	}
	return &Song{
		Chart:    chart,
		Encoding: enc,
		Seed:     seed,
		Flat:     flat,
		Timeline: tl,
	}, nil
}

// LoadFile reads and loads one chart file.
func LoadFile(path string, seed int64) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data, seed)
}

func (s *Song) Title() string {
	return stringOr(s.Flat.Meta.Title)
}

func (s *Song) Artist() string {
	return stringOr(s.Flat.Meta.Artist)
}

func (s *Song) Genre() string {
	return stringOr(s.Flat.Meta.Genre)
}

// Length is the instant the final measure ends.
func (s *Song) Length() time.Duration {
	return s.Timeline.Length
}

// Warnings lists everything the parser skipped over.
func (s *Song) Warnings() []*bms.ParseError {
	return s.Chart.Warnings
}

func stringOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
