// Package resolve flattens a parsed chart into a single playable line by
// deciding every #RANDOM block. The dice are pluggable: callers hand in a
// Draw, so resolution can be seeded, replayed from a recorded session, or
// pinned for tests.
package resolve

import (
	"math/rand"

	"github.com/Bobini1/bmschart-go/bms"
)

// Draw produces the roll for one #RANDOM block: an integer in [1, n].
// Blocks are visited in document order, outermost first, so a recorded
// sequence of rolls replays to the same flat chart.
type Draw interface {
	Draw(n int) int
}

// DrawFunc adapts a plain function to the Draw interface.
type DrawFunc func(n int) int

func (f DrawFunc) Draw(n int) int { return f(n) }

// Rand returns the usual dice: uniform rolls from a source seeded with
// seed. Two draws built from the same seed make the same choices.
func Rand(seed int64) Draw {
	r := rand.New(rand.NewSource(seed))
	return DrawFunc(func(n int) int { return r.Intn(n) + 1 })
}

// Fixed replays a prepared sequence of rolls, one per visited block, and
// settles on 1 once the sequence runs out.
func Fixed(rolls ...int) Draw {
	i := 0
	return DrawFunc(func(n int) int {
		if i >= len(rolls) {
			return 1
		}
		r := rolls[i]
		i++
		return r
	})
}

// Record is the outcome of one block's draw.
type Record struct {
	Range int
	Roll  int
}

// FlatChart is a chart with every branch decision applied: merged headers,
// the surviving events, and the draw log in visit order. Replaying the log
// through Fixed reproduces the same FlatChart from the same tree.
type FlatChart struct {
	Meta   bms.Meta
	Events []bms.Event
	Draws  []Record
}

// Resolve walks the chart depth-first. For each random group it asks d for
// one roll and descends into every branch whose selector matches; that can
// be several branches when a chart repeats a selector, or none. Header tags
// merge on the way down, inner branches overriding outer ones, and a
// branch's events follow the events of its enclosing scope. Groups with a
// non-positive range are logged with roll 0 and never rolled.
func Resolve(c *bms.Chart, d Draw) *FlatChart {
	f := &FlatChart{}
	flatten(c.Root, d, f)
	return f
}

func flatten(b *bms.Branch, d Draw, f *FlatChart) {
	f.Meta.Merge(&b.Meta)
	f.Events = append(f.Events, b.Events...)
	for _, g := range b.Randoms {
		roll := 0
		if g.Range > 0 {
			roll = d.Draw(g.Range)
		}
		f.Draws = append(f.Draws, Record{Range: g.Range, Roll: roll})
		for _, br := range g.Branches {
			if br.If == roll {
				flatten(br, d, f)
			}
		}
	}
}
