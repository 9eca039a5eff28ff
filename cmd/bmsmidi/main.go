package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	bmschart "github.com/Bobini1/bmschart-go"
	"github.com/Bobini1/bmschart-go/internal/midiexport"
)

func main() {
	var (
		out   = flag.String("o", "", "output path (default: chart name with .mid)")
		seed  = flag.Int64("seed", 1, "seed for settling #RANDOM blocks")
		title = flag.String("title", "", "override the sequence name")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: bmsmidi [flags] <chart>")
	}
	path := flag.Arg(0)

	song, err := bmschart.LoadFile(path, *seed)
	if err != nil {
		log.Fatal(err)
	}
	name := *title
	if name == "" {
		name = song.Title()
	}
	dest := *out
	if dest == "" {
		dest = strings.TrimSuffix(path, filepath.Ext(path)) + ".mid"
	}

	if err := midiexport.WriteFile(dest, song.Timeline, name); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: %d timed events over %d measures -> %s\n",
		path, len(song.Timeline.Events), len(song.Timeline.Measures), dest)
}
