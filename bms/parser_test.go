package bms

import (
	"errors"
	"testing"
)

func TestParseHeaderTags(t *testing.T) {
	p := NewParser(DefaultOptions())
	chart, err := p.Parse(`#PLAYER 1
#GENRE EUROBEAT
#TITLE Neon Compiler
#ARTIST orange note
#BPM 135
#PLAYLEVEL 7
#RANK 2
#TOTAL 260.5
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := chart.Root.Meta
	if m.Title == nil || *m.Title != "Neon Compiler" {
		t.Fatalf("expected title captured, got %v", m.Title)
	}
	if m.Artist == nil || *m.Artist != "orange note" {
		t.Fatalf("expected artist with interior space, got %v", m.Artist)
	}
	if m.BPM == nil || *m.BPM != 135 {
		t.Fatalf("expected bpm 135, got %v", m.BPM)
	}
	if m.Player == nil || *m.Player != 1 {
		t.Fatalf("expected player 1")
	}
	if m.PlayLevel == nil || *m.PlayLevel != 7 || m.Rank == nil || *m.Rank != 2 {
		t.Fatalf("expected playlevel/rank captured")
	}
	if m.Total == nil || *m.Total != 260.5 {
		t.Fatalf("expected total 260.5, got %v", m.Total)
	}
	if len(chart.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", chart.Warnings)
	}
}

func TestParseTagCaseInsensitive(t *testing.T) {
	chart, err := Parse("#title keep Value Case\n#BpM 98.5\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := chart.Root.Meta
	if m.Title == nil || *m.Title != "keep Value Case" {
		t.Fatalf("expected value case preserved, got %v", m.Title)
	}
	if m.BPM == nil || *m.BPM != 98.5 {
		t.Fatalf("expected bpm 98.5, got %v", m.BPM)
	}
}

func TestParseHeaderLastWriteWins(t *testing.T) {
	chart, err := Parse("#TITLE first\n#TITLE second\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := chart.Root.Meta.Title; got == nil || *got != "second" {
		t.Fatalf("expected last title to win, got %v", got)
	}
}

func TestParseEmptyValueIsPresent(t *testing.T) {
	chart, err := Parse("#SUBTITLE\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := chart.Root.Meta
	if m.Subtitle == nil {
		t.Fatalf("bare tag should still mark the field present")
	}
	if *m.Subtitle != "" {
		t.Fatalf("expected empty value, got %q", *m.Subtitle)
	}
	if m.Title != nil {
		t.Fatalf("unseen tag should stay nil")
	}
}

func TestParseSkipsFreeTextButFlagsUnknownTags(t *testing.T) {
	chart, err := Parse(`*---------------------- HEADER FIELD
#TITLE ok
just some prose, no tag prefix
#NOTATAG 12
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if chart.Root.Meta.Title == nil {
		t.Fatalf("expected title to survive surrounding noise")
	}
	if len(chart.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", chart.Warnings)
	}
	w := chart.Warnings[0]
	if !errors.Is(w, ErrUnknownTag) {
		t.Fatalf("expected unknown tag warning, got %v", w)
	}
	if w.Line != 4 {
		t.Fatalf("expected warning on line 4, got %d", w.Line)
	}
}

func TestParseFamilyTags(t *testing.T) {
	chart, err := Parse(`#WAV01 kick.wav
#wav0a hat.ogg
#BMPAZ miss.bmp
#BPM01 174.5
#EXBPM02 87
#STOP01 192
#TEXT05 fly!
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := chart.Root.Meta
	if m.Wav["01"] != "kick.wav" {
		t.Fatalf("expected WAV01, got %v", m.Wav)
	}
	if m.Wav["0A"] != "hat.ogg" {
		t.Fatalf("expected lowercase index folded to 0A, got %v", m.Wav)
	}
	if m.Bmp["AZ"] != "miss.bmp" {
		t.Fatalf("expected BMPAZ, got %v", m.Bmp)
	}
	if m.ExBPM["01"] != 174.5 {
		t.Fatalf("expected BPM01 174.5, got %v", m.ExBPM)
	}
	if m.ExBPM["02"] != 87 {
		t.Fatalf("expected EXBPM02 folded into the BPM table, got %v", m.ExBPM)
	}
	if m.Stops["01"] != 192 {
		t.Fatalf("expected STOP01 192, got %v", m.Stops)
	}
	if m.Texts["05"] != "fly!" {
		t.Fatalf("expected TEXT05, got %v", m.Texts)
	}
}

func TestParseScalarAndFamilyShareName(t *testing.T) {
	chart, err := Parse("#BPM 120\n#BPM0A 240\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := chart.Root.Meta
	if m.BPM == nil || *m.BPM != 120 {
		t.Fatalf("expected scalar BPM 120, got %v", m.BPM)
	}
	if m.ExBPM["0A"] != 240 {
		t.Fatalf("expected indexed BPM0A 240, got %v", m.ExBPM)
	}
}

func TestParseObjectLine(t *testing.T) {
	chart, err := Parse("#00112:00220000\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(chart.Root.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(chart.Root.Events))
	}
	ev := chart.Root.Events[0]
	if ev.Measure != 1 || ev.Channel != "12" {
		t.Fatalf("expected measure 1 channel 12, got %d/%s", ev.Measure, ev.Channel)
	}
	if len(ev.Slots) != 4 {
		t.Fatalf("expected 4 slots, got %v", ev.Slots)
	}
	if !ev.Slots[0].IsEmpty() || ev.Slots[1] != "22" || !ev.Slots[2].IsEmpty() || !ev.Slots[3].IsEmpty() {
		t.Fatalf("expected 00,22,00,00, got %v", ev.Slots)
	}
	if ev.Raw != "00220000" {
		t.Fatalf("expected raw preserved, got %q", ev.Raw)
	}
}

func TestParseObjectLineNormalizesCase(t *testing.T) {
	chart, err := Parse("#003a1:0zaB\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ev := chart.Root.Events[0]
	if ev.Channel != "A1" {
		t.Fatalf("expected channel folded to A1, got %s", ev.Channel)
	}
	if ev.Slots[0] != "0Z" || ev.Slots[1] != "AB" {
		t.Fatalf("expected upper-cased slots, got %v", ev.Slots)
	}
	if ev.Raw != "0zaB" {
		t.Fatalf("expected raw left untouched, got %q", ev.Raw)
	}
}

func TestParseMeasureScaleKeepsRaw(t *testing.T) {
	chart, err := Parse("#00302:0.75\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ev := chart.Root.Events[0]
	if ev.Channel != ChannelMeasure {
		t.Fatalf("expected measure-scale channel, got %s", ev.Channel)
	}
	if ev.Raw != "0.75" {
		t.Fatalf("expected raw decimal preserved, got %q", ev.Raw)
	}
	// The structural split still happens; channel 02 readers go via Raw.
	if len(ev.Slots) != 2 {
		t.Fatalf("expected 2 structural slots, got %v", ev.Slots)
	}
}

func TestParseOddLengthObjectsKeptAsRaw(t *testing.T) {
	chart, err := Parse("#00101:012\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(chart.Warnings) != 1 || !errors.Is(chart.Warnings[0], ErrBadValue) {
		t.Fatalf("expected a bad value warning, got %v", chart.Warnings)
	}
	ev := chart.Root.Events[0]
	if ev.Slots != nil {
		t.Fatalf("expected nil slots for odd-length value, got %v", ev.Slots)
	}
	if ev.Raw != "012" {
		t.Fatalf("expected raw preserved, got %q", ev.Raw)
	}
}

func TestParseBadHeaderValueIsWarning(t *testing.T) {
	chart, err := Parse("#BPM fast\n#TOTAL 300\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := chart.Root.Meta
	if m.BPM != nil {
		t.Fatalf("malformed bpm should stay absent, got %v", *m.BPM)
	}
	if m.Total == nil || *m.Total != 300 {
		t.Fatalf("expected later tags unaffected, got %v", m.Total)
	}
	if len(chart.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", chart.Warnings)
	}
	if w := chart.Warnings[0]; !errors.Is(w, ErrBadValue) || w.Tag != "BPM" {
		t.Fatalf("expected bad value warning on #BPM, got %v", w)
	}
}

func TestParseStrictPromotesValueFaults(t *testing.T) {
	p := NewParser(Options{Strict: true})
	_, err := p.Parse("#BPM fast\n")
	if !errors.Is(err, ErrBadValue) {
		t.Fatalf("expected fatal bad value in strict mode, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a ParseError, got %T", err)
	}
	if pe.Line != 1 || pe.Tag != "BPM" {
		t.Fatalf("expected line 1 tag BPM, got line %d tag %q", pe.Line, pe.Tag)
	}

	if _, err := p.Parse("#00101:012\n"); !errors.Is(err, ErrBadValue) {
		t.Fatalf("expected fatal odd-length value in strict mode, got %v", err)
	}
}

func TestParseToleratesBOMCRLFAndIndent(t *testing.T) {
	chart, err := Parse("\uFEFF#TITLE bom\r\n\t#ARTIST tabbed\r\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := chart.Root.Meta
	if m.Title == nil || *m.Title != "bom" {
		t.Fatalf("expected BOM stripped before first tag, got %v", m.Title)
	}
	if m.Artist == nil || *m.Artist != "tabbed" {
		t.Fatalf("expected indented tag recognized, got %v", m.Artist)
	}
	if len(chart.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", chart.Warnings)
	}
}

func TestGroupEvents(t *testing.T) {
	chart, err := Parse(`#00111:01
#00211:02
#00111:03
#00101:04
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	groups := chart.Root.GroupEvents()
	if len(groups) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(groups))
	}
	k := Key{Measure: 1, Channel: "11"}
	if got := groups[k]; len(got) != 2 || got[0].Slots[0] != "01" || got[1].Slots[0] != "03" {
		t.Fatalf("expected per-key order kept, got %v", got)
	}
	if chart.Root.MaxMeasure() != 2 {
		t.Fatalf("expected max measure 2, got %d", chart.Root.MaxMeasure())
	}
}
