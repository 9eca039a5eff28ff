package bmschart

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Bobini1/bmschart-go/bms"
)

func TestLoadPipeline(t *testing.T) {
	data := append([]byte("#TITLE "), 0x83, 0x65, 0x83, 0x58, 0x83, 0x67)
	data = append(data, []byte("\n#ARTIST someone\n#BPM 120\n#00111:A1A2\n")...)

	song, err := Load(data, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if song.Encoding != "shift-jis" {
		t.Fatalf("expected shift-jis, got %s", song.Encoding)
	}
	if song.Title() != "テスト" {
		t.Fatalf("expected decoded title, got %q", song.Title())
	}
	if song.Artist() != "someone" {
		t.Fatalf("expected artist, got %q", song.Artist())
	}
	if len(song.Timeline.Events) != 2 {
		t.Fatalf("expected 2 timeline events, got %d", len(song.Timeline.Events))
	}
	if song.Length() <= 0 {
		t.Fatalf("expected positive length, got %v", song.Length())
	}
}

func TestLoadSeedSettlesBranches(t *testing.T) {
	src := []byte("#RANDOM 2\n#IF 1\n#TITLE First\n#ENDIF\n#IF 2\n#TITLE Second\n#ENDIF\n#ENDRANDOM\n")

	a, err := Load(src, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b, err := Load(src, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Title() != b.Title() {
		t.Fatalf("same seed must replay the same branch, got %q and %q", a.Title(), b.Title())
	}
	if a.Title() != "First" && a.Title() != "Second" {
		t.Fatalf("expected a branch title, got %q", a.Title())
	}
	if len(a.Flat.Draws) != 1 {
		t.Fatalf("expected 1 recorded draw, got %d", len(a.Flat.Draws))
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.bms")
	if err := os.WriteFile(path, []byte("#TITLE on disk\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	song, err := LoadFile(path, 0)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if song.Title() != "on disk" {
		t.Fatalf("expected title, got %q", song.Title())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.bms"), 0); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLoadSurfacesAssemblyFaults(t *testing.T) {
	_, err := Load([]byte("#RANDOM 2\n#IF 1\n#TITLE x\n"), 0)
	if !errors.Is(err, bms.ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
}

func TestSongAccessorsTolerateAbsentHeaders(t *testing.T) {
	song, err := Load([]byte("#NOSUCH thing\n#00111:A1\n"), 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if song.Title() != "" || song.Artist() != "" || song.Genre() != "" {
		t.Fatalf("expected empty accessors, got %q %q %q", song.Title(), song.Artist(), song.Genre())
	}
	if len(song.Warnings()) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(song.Warnings()))
	}
}
