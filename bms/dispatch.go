package bms

import (
	"sort"
	"strconv"
)

// tagSpec binds one single-value header tag in all three directions: bind
// applies raw value text to Meta during parsing, emit reads the field back
// for serialization, merge copies a set field from one Meta to another.
// Adding a tag means adding one table line.
type tagSpec struct {
	name  string
	bind  func(m *Meta, raw string) error
	emit  func(m *Meta) (string, bool)
	merge func(dst, src *Meta)
}

// familySpec is the same for an indexed tag family (#WAV01, #BPMA2, ...).
// The two-character index arrives upper-cased.
type familySpec struct {
	name  string
	bind  func(m *Meta, index, raw string) error
	emit  func(m *Meta) []indexedValue
	merge func(dst, src *Meta)
}

type indexedValue struct {
	index string
	value string
}

func textTag(name string, field func(*Meta) **string) tagSpec {
	return tagSpec{
		name: name,
		bind: func(m *Meta, raw string) error {
			v := raw
			*field(m) = &v
			return nil
		},
		emit: func(m *Meta) (string, bool) {
			if p := *field(m); p != nil {
				return *p, true
			}
			return "", false
		},
		merge: func(dst, src *Meta) {
			if p := *field(src); p != nil {
				v := *p
				*field(dst) = &v
			}
		},
	}
}

func intTag(name string, field func(*Meta) **int) tagSpec {
	return tagSpec{
		name: name,
		bind: func(m *Meta, raw string) error {
			v, err := parseIntValue(raw)
			if err != nil {
				return err
			}
			*field(m) = &v
			return nil
		},
		emit: func(m *Meta) (string, bool) {
			if p := *field(m); p != nil {
				return strconv.Itoa(*p), true
			}
			return "", false
		},
		merge: func(dst, src *Meta) {
			if p := *field(src); p != nil {
				v := *p
				*field(dst) = &v
			}
		},
	}
}

func floatTag(name string, field func(*Meta) **float64) tagSpec {
	return tagSpec{
		name: name,
		bind: func(m *Meta, raw string) error {
			v, err := parseFloatValue(raw)
			if err != nil {
				return err
			}
			*field(m) = &v
			return nil
		},
		emit: func(m *Meta) (string, bool) {
			if p := *field(m); p != nil {
				return formatFloat(*p), true
			}
			return "", false
		},
		merge: func(dst, src *Meta) {
			if p := *field(src); p != nil {
				v := *p
				*field(dst) = &v
			}
		},
	}
}

// flagTag is for tags that carry no value at all; presence is the value.
func flagTag(name string, field func(*Meta) *bool) tagSpec {
	return tagSpec{
		name: name,
		bind: func(m *Meta, raw string) error {
			*field(m) = true
			return nil
		},
		emit: func(m *Meta) (string, bool) {
			return "", *field(m)
		},
		merge: func(dst, src *Meta) {
			if *field(src) {
				*field(dst) = true
			}
		},
	}
}

func textFamily(name string, field func(*Meta) *map[string]string) familySpec {
	return familySpec{
		name: name,
		bind: func(m *Meta, index, raw string) error {
			mp := field(m)
			if *mp == nil {
				*mp = make(map[string]string)
			}
			(*mp)[index] = raw
			return nil
		},
		emit: func(m *Meta) []indexedValue {
			out := make([]indexedValue, 0, len(*field(m)))
			for k, v := range *field(m) {
				out = append(out, indexedValue{index: k, value: v})
			}
			sortIndexed(out)
			return out
		},
		merge: func(dst, src *Meta) {
			s := *field(src)
			if len(s) == 0 {
				return
			}
			mp := field(dst)
			if *mp == nil {
				*mp = make(map[string]string, len(s))
			}
			for k, v := range s {
				(*mp)[k] = v
			}
		},
	}
}

func floatFamily(name string, field func(*Meta) *map[string]float64) familySpec {
	return familySpec{
		name: name,
		bind: func(m *Meta, index, raw string) error {
			v, err := parseFloatValue(raw)
			if err != nil {
				return err
			}
			mp := field(m)
			if *mp == nil {
				*mp = make(map[string]float64)
			}
			(*mp)[index] = v
			return nil
		},
		emit: func(m *Meta) []indexedValue {
			out := make([]indexedValue, 0, len(*field(m)))
			for k, v := range *field(m) {
				out = append(out, indexedValue{index: k, value: formatFloat(v)})
			}
			sortIndexed(out)
			return out
		},
		merge: func(dst, src *Meta) {
			s := *field(src)
			if len(s) == 0 {
				return
			}
			mp := field(dst)
			if *mp == nil {
				*mp = make(map[string]float64, len(s))
			}
			for k, v := range s {
				(*mp)[k] = v
			}
		},
	}
}

func intFamily(name string, field func(*Meta) *map[string]int) familySpec {
	return familySpec{
		name: name,
		bind: func(m *Meta, index, raw string) error {
			v, err := parseIntValue(raw)
			if err != nil {
				return err
			}
			mp := field(m)
			if *mp == nil {
				*mp = make(map[string]int)
			}
			(*mp)[index] = v
			return nil
		},
		emit: func(m *Meta) []indexedValue {
			out := make([]indexedValue, 0, len(*field(m)))
			for k, v := range *field(m) {
				out = append(out, indexedValue{index: k, value: strconv.Itoa(v)})
			}
			sortIndexed(out)
			return out
		},
		merge: func(dst, src *Meta) {
			s := *field(src)
			if len(s) == 0 {
				return
			}
			mp := field(dst)
			if *mp == nil {
				*mp = make(map[string]int, len(s))
			}
			for k, v := range s {
				(*mp)[k] = v
			}
		},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortIndexed(s []indexedValue) {
	sort.Slice(s, func(i, j int) bool { return s[i].index < s[j].index })
}

// tagTable lists every known single-value tag. It doubles as the
// serializer's output order, roughly the order headers appear in charts in
// the wild.
var tagTable = []tagSpec{
	intTag("PLAYER", func(m *Meta) **int { return &m.Player }),
	textTag("GENRE", func(m *Meta) **string { return &m.Genre }),
	textTag("TITLE", func(m *Meta) **string { return &m.Title }),
	textTag("SUBTITLE", func(m *Meta) **string { return &m.Subtitle }),
	textTag("ARTIST", func(m *Meta) **string { return &m.Artist }),
	textTag("SUBARTIST", func(m *Meta) **string { return &m.Subartist }),
	textTag("MAKER", func(m *Meta) **string { return &m.Maker }),
	textTag("COMMENT", func(m *Meta) **string { return &m.Comment }),
	floatTag("BPM", func(m *Meta) **float64 { return &m.BPM }),
	floatTag("BASEBPM", func(m *Meta) **float64 { return &m.BaseBPM }),
	intTag("PLAYLEVEL", func(m *Meta) **int { return &m.PlayLevel }),
	intTag("DIFFICULTY", func(m *Meta) **int { return &m.Difficulty }),
	intTag("RANK", func(m *Meta) **int { return &m.Rank }),
	floatTag("DEFEXRANK", func(m *Meta) **float64 { return &m.DefExRank }),
	floatTag("TOTAL", func(m *Meta) **float64 { return &m.Total }),
	intTag("VOLWAV", func(m *Meta) **int { return &m.VolWav }),
	textTag("STAGEFILE", func(m *Meta) **string { return &m.StageFile }),
	textTag("BANNER", func(m *Meta) **string { return &m.Banner }),
	textTag("BACKBMP", func(m *Meta) **string { return &m.BackBMP }),
	textTag("CHARFILE", func(m *Meta) **string { return &m.CharFile }),
	textTag("PREVIEW", func(m *Meta) **string { return &m.Preview }),
	intTag("LNTYPE", func(m *Meta) **int { return &m.LNType }),
	textTag("LNOBJ", func(m *Meta) **string { return &m.LNObj }),
	intTag("LNMODE", func(m *Meta) **int { return &m.LNMode }),
	flagTag("OCT/FP", func(m *Meta) *bool { return &m.OctFP }),
	textTag("OPTION", func(m *Meta) **string { return &m.Option }),
	textTag("WAVCMD", func(m *Meta) **string { return &m.WavCmd }),
	textTag("PATH_WAV", func(m *Meta) **string { return &m.PathWAV }),
	intTag("CDDA", func(m *Meta) **int { return &m.CDDA }),
	textTag("MIDIFILE", func(m *Meta) **string { return &m.MIDIFile }),
	intTag("POORBGA", func(m *Meta) **int { return &m.PoorBGA }),
	textTag("VIDEOFILE", func(m *Meta) **string { return &m.VideoFile }),
	floatTag("VIDEOF/S", func(m *Meta) **float64 { return &m.VideoFS }),
	intTag("VIDEOCOLORS", func(m *Meta) **int { return &m.VideoColors }),
	intTag("VIDEODLY", func(m *Meta) **int { return &m.VideoDly }),
	textTag("MOVIE", func(m *Meta) **string { return &m.Movie }),
	textTag("EXTCHR", func(m *Meta) **string { return &m.ExtChr }),
	textTag("MATERIALS", func(m *Meta) **string { return &m.Materials }),
	textTag("MATERIALSWAV", func(m *Meta) **string { return &m.MaterialsWAV }),
	textTag("MATERIALSBMP", func(m *Meta) **string { return &m.MaterialsBMP }),
	textTag("DIVIDEPROP", func(m *Meta) **string { return &m.DivideProp }),
	textTag("CHARSET", func(m *Meta) **string { return &m.Charset }),
	textTag("URL", func(m *Meta) **string { return &m.URL }),
	textTag("EMAIL", func(m *Meta) **string { return &m.Email }),
	intTag("BASE", func(m *Meta) **int { return &m.Base }),
}

// familyTable lists every indexed tag family, again in output order.
var familyTable = []familySpec{
	textFamily("WAV", func(m *Meta) *map[string]string { return &m.Wav }),
	textFamily("EXWAV", func(m *Meta) *map[string]string { return &m.ExWav }),
	textFamily("BMP", func(m *Meta) *map[string]string { return &m.Bmp }),
	textFamily("EXBMP", func(m *Meta) *map[string]string { return &m.ExBmp }),
	textFamily("BGA", func(m *Meta) *map[string]string { return &m.BGA }),
	textFamily("@BGA", func(m *Meta) *map[string]string { return &m.AtBGA }),
	floatFamily("BPM", func(m *Meta) *map[string]float64 { return &m.ExBPM }),
	floatFamily("STOP", func(m *Meta) *map[string]float64 { return &m.Stops }),
	floatFamily("SEEK", func(m *Meta) *map[string]float64 { return &m.Seek }),
	intFamily("EXRANK", func(m *Meta) *map[string]int { return &m.ExRank }),
	textFamily("TEXT", func(m *Meta) *map[string]string { return &m.Texts }),
	textFamily("SONG", func(m *Meta) *map[string]string { return &m.Songs }),
	textFamily("CHANGEOPTION", func(m *Meta) *map[string]string { return &m.ChangeOption }),
	textFamily("ARGB", func(m *Meta) *map[string]string { return &m.ARGB }),
	textFamily("SWBGA", func(m *Meta) *map[string]string { return &m.SwBGA }),
}

// familyAliases folds alternate family spellings onto their canonical
// entry before lookup. #EXBPMxx and #BPMxx are the same table.
var familyAliases = map[string]string{
	"EXBPM": "BPM",
}

var (
	tagByName    = make(map[string]*tagSpec, len(tagTable))
	familyByName = make(map[string]*familySpec, len(familyTable))
)

func init() {
	for i := range tagTable {
		tagByName[tagTable[i].name] = &tagTable[i]
	}
	for i := range familyTable {
		familyByName[familyTable[i].name] = &familyTable[i]
	}
}

// Merge copies every field set on src over the matching field of m.
// Scalars are replaced wholesale; family tables merge per index with src
// winning collisions. The copies are fresh, so later writes to either Meta
// do not show through to the other.
func (m *Meta) Merge(src *Meta) {
	for i := range tagTable {
		tagTable[i].merge(m, src)
	}
	for i := range familyTable {
		familyTable[i].merge(m, src)
	}
}

// findTag resolves an upper-cased tag word to its binder. Exact names win;
// otherwise a word that is a known family name plus exactly two index
// characters binds to that family. Anything else is unknown.
func findTag(word string) (func(*Meta, string) error, bool) {
	if t, ok := tagByName[word]; ok {
		return t.bind, true
	}
	if n := len(word); n > 2 {
		fam, idx := word[:n-2], word[n-2:]
		if canon, ok := familyAliases[fam]; ok {
			fam = canon
		}
		if f, ok := familyByName[fam]; ok && isBase36(idx) {
			return func(m *Meta, raw string) error { return f.bind(m, idx, raw) }, true
		}
	}
	return nil, false
}
