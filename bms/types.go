package bms

// Slot is one fixed-width object position within a measure/channel line.
// "00" marks an empty position; anything else is an opaque reference code,
// usually an index into one of the Meta resource tables (Wav, Bmp, ...).
type Slot string

// EmptySlot is the sentinel code for an unoccupied slot.
const EmptySlot Slot = "00"

func (s Slot) IsEmpty() bool { return s == EmptySlot }

// Event is one timed-object line (#DDDCC:...) as it appeared in the source.
// Slots holds the value split into 2-character codes and is nil when the
// value had odd length. The split is purely structural: channels whose
// value is not a code string at all (02 carries a plain decimal measure
// scale) should be read through Raw, which always preserves the exact
// value text with outer whitespace removed.
type Event struct {
	Measure int
	Channel string
	Slots   []Slot
	Raw     string
}

// Key identifies the (measure, channel) group an Event belongs to.
type Key struct {
	Measure int
	Channel string
}

// Meta holds the single-value header tags of one branch. Scalar fields are
// pointers so that a tag that never appeared is distinguishable from one
// that appeared with an empty or zero value. Indexed tag families (#WAVxx,
// #BPMxx, ...) are maps keyed by the two-character index, upper-cased.
type Meta struct {
	Player       *int
	Rank         *int
	DefExRank    *float64
	Total        *float64
	VolWav       *int
	StageFile    *string
	Banner       *string
	BackBMP      *string
	CharFile     *string
	PlayLevel    *int
	Difficulty   *int
	Title        *string
	Subtitle     *string
	Artist       *string
	Subartist    *string
	Maker        *string
	Genre        *string
	Comment      *string
	PathWAV      *string
	BPM          *float64
	BaseBPM      *float64
	LNType       *int
	LNObj        *string
	LNMode       *int
	OctFP        bool
	Option       *string
	WavCmd       *string
	CDDA         *int
	MIDIFile     *string
	PoorBGA      *int
	VideoFile    *string
	VideoFS      *float64
	VideoColors  *int
	VideoDly     *int
	Movie        *string
	ExtChr       *string
	Materials    *string
	MaterialsWAV *string
	MaterialsBMP *string
	DivideProp   *string
	Charset      *string
	URL          *string
	Email        *string
	Preview      *string
	Base         *int

	Wav          map[string]string
	ExWav        map[string]string
	Bmp          map[string]string
	ExBmp        map[string]string
	BGA          map[string]string
	AtBGA        map[string]string
	ExBPM        map[string]float64
	Stops        map[string]float64
	ExRank       map[string]int
	Texts        map[string]string
	Songs        map[string]string
	ChangeOption map[string]string
	ARGB         map[string]string
	Seek         map[string]float64
	SwBGA        map[string]string
}

// Branch is one content scope: either the implicit file-level scope or the
// body of a single #IF. The two are structurally identical, which is what
// lets the assembler treat the whole file as a branch on its stack. If is
// the #IF selector; it is 0 for the root scope.
type Branch struct {
	If      int
	Meta    Meta
	Events  []Event
	Randoms []*RandomGroup
}

// RandomGroup is one #RANDOM..#ENDRANDOM block: the range of the draw and
// the #IF branches collected inside it, in source order. Branches is a
// slice, not a map keyed by selector: the format permits several branches
// with the same selector in one group and all of them must survive.
type RandomGroup struct {
	Range    int
	Branches []*Branch
}

// Chart is the parse result for one source text: the root branch with the
// full tree of random groups below it, plus any non-fatal diagnostics.
type Chart struct {
	Root     *Branch
	Warnings []*ParseError
	Lines    int
}

// GroupEvents buckets the branch's events by (measure, channel), keeping
// the per-key insertion order. How entries within one key combine is up to
// the caller; channels disagree about it.
func (b *Branch) GroupEvents() map[Key][]Event {
	if len(b.Events) == 0 {
		return nil
	}
	out := make(map[Key][]Event)
	for _, ev := range b.Events {
		k := Key{Measure: ev.Measure, Channel: ev.Channel}
		out[k] = append(out[k], ev)
	}
	return out
}

// MaxMeasure returns the highest measure number referenced by the branch's
// own events, ignoring nested random groups. -1 when there are none.
func (b *Branch) MaxMeasure() int {
	max := -1
	for _, ev := range b.Events {
		if ev.Measure > max {
			max = ev.Measure
		}
	}
	return max
}
