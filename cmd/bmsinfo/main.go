package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"github.com/Bobini1/bmschart-go/bms"
	"github.com/Bobini1/bmschart-go/internal/textenc"
	"github.com/Bobini1/bmschart-go/resolve"
	"github.com/Bobini1/bmschart-go/songdir"
	"github.com/Bobini1/bmschart-go/timing"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

func main() {
	var (
		seed      = flag.Int64("seed", 1, "seed for settling #RANDOM blocks")
		encoding  = flag.String("encoding", "", "force an input encoding (utf-8|shift-jis|euc-kr); default sniffs")
		strict    = flag.Bool("strict", false, "treat malformed values as fatal")
		serialize = flag.Bool("serialize", false, "print the chart back in canonical form and exit")
		warnings  = flag.Bool("warnings", false, "list every parse warning")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: bmsinfo [flags] <chart-or-directory>...")
	}
	for _, path := range flag.Args() {
		st, err := os.Stat(path)
		if err != nil {
			log.Fatal(err)
		}
		if st.IsDir() {
			describeDir(path)
			continue
		}
		describeChart(path, *seed, *encoding, *strict, *serialize, *warnings)
	}
}

func describeChart(path string, seed int64, encName string, strict, serialize, listWarnings bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	var text, enc string
	if encName != "" {
		text, enc = textenc.DecodeNamed(data, encName)
	} else {
		text, enc = textenc.Decode(data)
	}

	parser := bms.NewParser(bms.Options{Strict: strict})
	chart, err := parser.Parse(text)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	if serialize {
		fmt.Print(bms.Serialize(chart))
		return
	}

	flat := resolve.Resolve(chart, resolve.Rand(seed))
	tl, err := timing.Schedule(flat)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}

	fmt.Printf("%s (%s, %s)\n", path, enc, humanize.Bytes(uint64(len(data))))
	printHeader("Title", flat.Meta.Title, flat.Meta.Subtitle)
	printHeader("Artist", flat.Meta.Artist, flat.Meta.Subartist)
	printHeader("Genre", flat.Meta.Genre, nil)
	if flat.Meta.PlayLevel != nil {
		fmt.Printf("  Level:    %d\n", *flat.Meta.PlayLevel)
	}
	fmt.Printf("  Length:   %s\n", durafmt.Parse(tl.Length).LimitFirstN(2).Format(shortUnits))
	fmt.Printf("  Measures: %d\n", len(tl.Measures))
	printTempo(tl)
	printObjects(tl)
	fmt.Printf("  Keysounds: %d defined\n", len(flat.Meta.Wav))
	if len(flat.Draws) > 0 {
		fmt.Printf("  Branches: seed %d settled %d random group(s)\n", seed, len(flat.Draws))
	}
	if n := len(chart.Warnings); n > 0 {
		fmt.Printf("  Warnings: %d\n", n)
		if listWarnings {
			for _, w := range chart.Warnings {
				fmt.Printf("    %v\n", w)
			}
		}
	}
}

func printHeader(label string, main, sub *string) {
	if main == nil && sub == nil {
		return
	}
	v := ""
	if main != nil {
		v = *main
	}
	if sub != nil && *sub != "" {
		v += " " + *sub
	}
	fmt.Printf("  %-8s %s\n", label+":", v)
}

func printTempo(tl *timing.Timeline) {
	lo, hi := tl.InitialBPM, tl.InitialBPM
	for _, ev := range tl.Events {
		if ev.BPM < lo {
			lo = ev.BPM
		}
		if ev.BPM > hi {
			hi = ev.BPM
		}
	}
	if lo == hi {
		fmt.Printf("  BPM:      %g\n", lo)
		return
	}
	fmt.Printf("  BPM:      %g (%g..%g)\n", tl.InitialBPM, lo, hi)
}

func printObjects(tl *timing.Timeline) {
	var bgm, visible, long, invisible, mines, stops int
	for _, ev := range tl.Events {
		if ev.Channel == bms.ChannelBGM {
			bgm++
			continue
		}
		if ev.Channel == bms.ChannelStop {
			stops++
			continue
		}
		kind, _, _, ok := bms.NoteChannel(ev.Channel)
		if !ok {
			continue
		}
		switch kind {
		case bms.NoteVisible:
			visible++
		case bms.NoteLong:
			long++
		case bms.NoteInvisible:
			invisible++
		case bms.NoteLandmine:
			mines++
		}
	}
	fmt.Printf("  Objects:  %d notes", visible+long)
	if long > 0 {
		fmt.Printf(" (%d long)", long)
	}
	if invisible > 0 {
		fmt.Printf(", %d invisible", invisible)
	}
	if mines > 0 {
		fmt.Printf(", %d landmines", mines)
	}
	fmt.Printf(", %d bgm", bgm)
	if stops > 0 {
		fmt.Printf(", %d stops", stops)
	}
	fmt.Println()
}

func describeDir(root string) {
	entries, err := songdir.Scan(root)
	if err != nil {
		log.Fatal(err)
	}
	songs := songdir.Group(entries)
	if len(songs) == 0 {
		fmt.Printf("%s: no charts found\n", root)
		return
	}
	for _, song := range songs {
		fmt.Printf("%s  %s (%d chart(s))\n", song.Dir, song.Title(), len(song.Charts))
		for _, e := range song.Charts {
			if e.Err != nil {
				fmt.Printf("  %-20s broken: %v\n", filepath.Base(e.Path), e.Err)
				continue
			}
			level := "-"
			if e.Meta.PlayLevel != nil {
				level = fmt.Sprintf("%d", *e.Meta.PlayLevel)
			}
			size := ""
			if st, err := os.Stat(e.Path); err == nil {
				size = humanize.Bytes(uint64(st.Size()))
			}
			fmt.Printf("  %-20s [%s]  %s  %s\n", filepath.Base(e.Path), level, e.Encoding, size)
		}
	}
}
