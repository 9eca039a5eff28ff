package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobini1/bmschart-go/bms"
)

func mustParse(t *testing.T, src string) *bms.Chart {
	t.Helper()
	chart, err := bms.Parse(src)
	require.NoError(t, err)
	return chart
}

func TestResolveTakesMatchingBranch(t *testing.T) {
	chart := mustParse(t, `#TITLE pick one
#RANDOM 2
#IF 1
#00111:01
#ENDIF
#IF 2
#00111:02
#ENDIF
#ENDRANDOM
`)
	flat := Resolve(chart, Fixed(2))
	require.Len(t, flat.Events, 1)
	assert.Equal(t, bms.Slot("02"), flat.Events[0].Slots[0])
	require.Len(t, flat.Draws, 1)
	assert.Equal(t, Record{Range: 2, Roll: 2}, flat.Draws[0])
}

func TestResolveDuplicateSelectorsBothTaken(t *testing.T) {
	chart := mustParse(t, `#RANDOM 2
#IF 1
#00111:01
#ENDIF
#IF 1
#00111:02
#ENDIF
#IF 2
#00111:03
#ENDIF
#ENDRANDOM
`)
	flat := Resolve(chart, Fixed(1))
	require.Len(t, flat.Events, 2)
	assert.Equal(t, bms.Slot("01"), flat.Events[0].Slots[0])
	assert.Equal(t, bms.Slot("02"), flat.Events[1].Slots[0])
}

func TestResolveNoBranchMatches(t *testing.T) {
	chart := mustParse(t, `#RANDOM 6
#IF 1
#00111:01
#ENDIF
#ENDRANDOM
`)
	flat := Resolve(chart, Fixed(5))
	assert.Empty(t, flat.Events)
	require.Len(t, flat.Draws, 1)
	assert.Equal(t, Record{Range: 6, Roll: 5}, flat.Draws[0])
}

func TestResolveMergesHeadersInnerWins(t *testing.T) {
	chart := mustParse(t, `#TITLE base
#SUBTITLE common
#RANDOM 1
#IF 1
#TITLE secret
#WAV01 alt.wav
#ENDIF
#ENDRANDOM
`)
	flat := Resolve(chart, Fixed(1))
	require.NotNil(t, flat.Meta.Title)
	assert.Equal(t, "secret", *flat.Meta.Title)
	require.NotNil(t, flat.Meta.Subtitle)
	assert.Equal(t, "common", *flat.Meta.Subtitle)
	assert.Equal(t, "alt.wav", flat.Meta.Wav["01"])
}

func TestResolveNestedGroupsRollInDocumentOrder(t *testing.T) {
	chart := mustParse(t, `#RANDOM 2
#IF 1
#00111:01
#RANDOM 3
#IF 2
#00211:02
#ENDIF
#ENDRANDOM
#ENDIF
#IF 2
#00111:0Z
#ENDIF
#ENDRANDOM
`)
	flat := Resolve(chart, Fixed(1, 2))
	require.Len(t, flat.Events, 2)
	assert.Equal(t, 1, flat.Events[0].Measure)
	assert.Equal(t, 2, flat.Events[1].Measure)
	assert.Equal(t, []Record{{Range: 2, Roll: 1}, {Range: 3, Roll: 2}}, flat.Draws)

	// The untaken sibling hides its whole subtree: picking 2 must not
	// consume a roll for the inner group.
	flat = Resolve(chart, Fixed(2, 7))
	require.Len(t, flat.Events, 1)
	assert.Equal(t, bms.Slot("0Z"), flat.Events[0].Slots[0])
	assert.Equal(t, []Record{{Range: 2, Roll: 2}}, flat.Draws)
}

func TestResolveSeededIsDeterministic(t *testing.T) {
	chart := mustParse(t, `#RANDOM 8
#IF 1
#00111:01
#ENDIF
#IF 2
#00111:02
#ENDIF
#IF 3
#00111:03
#ENDIF
#ENDRANDOM
#RANDOM 8
#IF 1
#00211:01
#ENDIF
#ENDRANDOM
`)
	a := Resolve(chart, Rand(42))
	b := Resolve(chart, Rand(42))
	assert.Equal(t, a, b)

	for _, r := range a.Draws {
		assert.GreaterOrEqual(t, r.Roll, 1)
		assert.LessOrEqual(t, r.Roll, r.Range)
	}
}

func TestResolveZeroRangeNeverRolls(t *testing.T) {
	chart := mustParse(t, `#RANDOM 0
#IF 1
#00111:01
#ENDIF
#ENDRANDOM
`)
	flat := Resolve(chart, DrawFunc(func(n int) int {
		t.Fatalf("draw called for a zero range")
		return 0
	}))
	assert.Empty(t, flat.Events)
	assert.Equal(t, []Record{{Range: 0, Roll: 0}}, flat.Draws)
}

func TestResolveReplayFromDrawLog(t *testing.T) {
	chart := mustParse(t, `#RANDOM 4
#IF 1
#00111:01
#ENDIF
#IF 2
#00111:02
#RANDOM 2
#IF 1
#00211:03
#ENDIF
#ENDRANDOM
#ENDIF
#ENDRANDOM
`)
	first := Resolve(chart, Rand(7))
	rolls := make([]int, len(first.Draws))
	for i, r := range first.Draws {
		rolls[i] = r.Roll
	}
	second := Resolve(chart, Fixed(rolls...))
	assert.Equal(t, first, second)
}

func TestFixedSettlesOnOne(t *testing.T) {
	d := Fixed(3)
	assert.Equal(t, 3, d.Draw(4))
	assert.Equal(t, 1, d.Draw(4))
	assert.Equal(t, 1, d.Draw(4))
}
