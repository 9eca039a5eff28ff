package songdir

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobini1/bmschart-go/bms"
)

func writeChart(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIsChartPath(t *testing.T) {
	assert.True(t, IsChartPath("song/normal.bms"))
	assert.True(t, IsChartPath("song/another.BME"))
	assert.True(t, IsChartPath("long.bml"))
	assert.True(t, IsChartPath("popn.pms"))
	assert.False(t, IsChartPath("readme.txt"))
	assert.False(t, IsChartPath("noext"))
}

func TestScanFindsCharts(t *testing.T) {
	root := t.TempDir()
	writeChart(t, filepath.Join(root, "songA"), "hyper.bme", []byte("#TITLE Alpha\n#PLAYLEVEL 9\n"))
	writeChart(t, filepath.Join(root, "songA"), "normal.bms", []byte("#TITLE Alpha\n#PLAYLEVEL 5\n"))
	writeChart(t, filepath.Join(root, "songA"), "readme.txt", []byte("not a chart"))
	writeChart(t, filepath.Join(root, "songB"), "chart.pms", []byte("#TITLE Beta\n"))

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "hyper.bme", filepath.Base(entries[0].Path))
	assert.Equal(t, "normal.bms", filepath.Base(entries[1].Path))
	assert.Equal(t, "chart.pms", filepath.Base(entries[2].Path))

	require.NotNil(t, entries[0].Meta.Title)
	assert.Equal(t, "Alpha", *entries[0].Meta.Title)
	require.NotNil(t, entries[0].Meta.PlayLevel)
	assert.Equal(t, 9, *entries[0].Meta.PlayLevel)
	assert.Equal(t, "utf-8", entries[0].Encoding)
}

func TestScanDecodesShiftJIS(t *testing.T) {
	root := t.TempDir()
	data := append([]byte("#TITLE "), 0x83, 0x65, 0x83, 0x58, 0x83, 0x67)
	data = append(data, '\n')
	writeChart(t, root, "legacy.bms", data)

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "shift-jis", entries[0].Encoding)
	require.NotNil(t, entries[0].Meta.Title)
	assert.Equal(t, "テスト", *entries[0].Meta.Title)
}

func TestScanCountsWarnings(t *testing.T) {
	root := t.TempDir()
	writeChart(t, root, "odd.bms", []byte("#TITLE x\n#NOSUCHTAG y\n"))

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Warnings)
	assert.NoError(t, entries[0].Err)
}

func TestScanListsBrokenChartWithErr(t *testing.T) {
	root := t.TempDir()
	writeChart(t, root, "broken.bms", []byte("#RANDOM 2\n#IF 1\n#TITLE x\n"))
	writeChart(t, root, "fine.bms", []byte("#TITLE ok\n"))

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.True(t, errors.Is(entries[0].Err, bms.ErrUnbalanced))
	assert.NoError(t, entries[1].Err)
	require.NotNil(t, entries[1].Meta.Title)
	assert.Equal(t, "ok", *entries[1].Meta.Title)
}

func TestScanSettlesRandomsOnFirstBranch(t *testing.T) {
	root := t.TempDir()
	writeChart(t, root, "rnd.bms", []byte(
		"#RANDOM 2\n#IF 1\n#TITLE First\n#ENDIF\n#IF 2\n#TITLE Second\n#ENDIF\n#ENDRANDOM\n"))

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Meta.Title)
	assert.Equal(t, "First", *entries[0].Meta.Title)
}

func TestScanHonorsWorkerCap(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.bms", "b.bms", "c.bms", "d.bms"} {
		writeChart(t, root, name, []byte("#TITLE "+name+"\n"))
	}

	entries, err := NewScanner(Options{Workers: 1}).Scan(root)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestGroupByDirectory(t *testing.T) {
	root := t.TempDir()
	writeChart(t, filepath.Join(root, "songA"), "n.bms", []byte("#TITLE Alpha\n"))
	writeChart(t, filepath.Join(root, "songA"), "h.bms", []byte("#TITLE Alpha\n"))
	writeChart(t, filepath.Join(root, "songB"), "n.bms", []byte("#TITLE Beta\n"))

	entries, err := Scan(root)
	require.NoError(t, err)

	songs := Group(entries)
	require.Len(t, songs, 2)
	assert.Equal(t, filepath.Join(root, "songA"), songs[0].Dir)
	assert.Len(t, songs[0].Charts, 2)
	assert.Equal(t, "Alpha", songs[0].Title())
	assert.Len(t, songs[1].Charts, 1)
	assert.Equal(t, "Beta", songs[1].Title())
}

func TestSongTitleFallsBackToDirName(t *testing.T) {
	root := t.TempDir()
	writeChart(t, filepath.Join(root, "untitled-pack"), "n.bms", []byte("#BPM 150\n"))

	entries, err := Scan(root)
	require.NoError(t, err)

	songs := Group(entries)
	require.Len(t, songs, 1)
	assert.Equal(t, "untitled-pack", songs[0].Title())
}
