package bms

// Channel names with a fixed meaning in the historical layout. Playable
// channels are decoded with NoteChannel instead; their name encodes kind,
// side and lane.
const (
	ChannelBGM       = "01"
	ChannelMeasure   = "02" // per-measure length scale, plain decimal value
	ChannelBPM       = "03" // inline BPM change, hexadecimal slot codes
	ChannelBGABase   = "04"
	ChannelBGAPoor   = "06"
	ChannelBGALayer  = "07"
	ChannelExBPM     = "08" // BPM change through the #BPMxx table
	ChannelStop      = "09" // pause through the #STOPxx table
	ChannelBGALayer2 = "0A"
	ChannelText      = "99"
)

// NoteKind classifies what a playable-side channel holds.
type NoteKind int

const (
	NoteVisible NoteKind = iota
	NoteInvisible
	NoteLong
	NoteLandmine
)

// NoteChannel decodes a playable channel name into its kind, player side
// (1 or 2) and lane (1 to 9). ok is false for every non-note channel.
func NoteChannel(ch string) (kind NoteKind, side, lane int, ok bool) {
	if len(ch) != 2 || ch[1] < '1' || ch[1] > '9' {
		return 0, 0, 0, false
	}
	lane = int(ch[1] - '0')
	switch ch[0] {
	case '1':
		return NoteVisible, 1, lane, true
	case '2':
		return NoteVisible, 2, lane, true
	case '3':
		return NoteInvisible, 1, lane, true
	case '4':
		return NoteInvisible, 2, lane, true
	case '5':
		return NoteLong, 1, lane, true
	case '6':
		return NoteLong, 2, lane, true
	case 'D':
		return NoteLandmine, 1, lane, true
	case 'E':
		return NoteLandmine, 2, lane, true
	}
	return 0, 0, 0, false
}

// IsNoteChannel reports whether ch is any playable-side channel.
func IsNoteChannel(ch string) bool {
	_, _, _, ok := NoteChannel(ch)
	return ok
}

// IsKeysound reports whether events on ch reference the #WAVxx table as
// sounds to play: background tracks plus the notes the player hits.
func IsKeysound(ch string) bool {
	if ch == ChannelBGM {
		return true
	}
	k, _, _, ok := NoteChannel(ch)
	return ok && (k == NoteVisible || k == NoteLong)
}
