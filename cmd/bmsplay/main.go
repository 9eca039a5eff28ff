package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	bmschart "github.com/Bobini1/bmschart-go"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		seed       = flag.Int64("seed", 1, "seed for settling #RANDOM blocks")
		loop       = flag.Bool("loop", false, "loop playback; use with -loops to count then stop")
		loops      = flag.Int("loops", 3, "when -loop, stop after N loops (0 = loop forever)")
		metronome  = flag.Bool("metronome", false, "tick at every measure line")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		verbose    = flag.Bool("verbose", false, "print every struck object")
		wavPath    = flag.String("wav", "", "render to a WAV file instead of playing")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: bmsplay [flags] <chart>")
	}
	song, err := bmschart.LoadFile(flag.Arg(0), *seed)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s  %s  (%d warnings)\n", song.Title(), song.Length(), len(song.Warnings()))

	if *wavPath != "" {
		if err := renderWAV(song, *sampleRate, *metronome, *wavPath); err != nil {
			log.Fatal(err)
		}
		return
	}

	pl, err := bmschart.NewPlayer(*sampleRate,
		bmschart.WithLoopPlayback(*loop),
		bmschart.WithMetronome(*metronome))
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(*volume)
	ch := pl.Watch()
	if err := pl.Play(song); err != nil {
		log.Fatal(err)
	}
	loopCount := 0
	for event := range ch {
		switch event.Kind {
		case bmschart.EventPlaybackEnded:
			fmt.Println("playback completed")
			goto done
		case bmschart.EventLoopCompleted:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
			if *loop && *loops > 0 && loopCount >= *loops {
				pl.Stop()
			}
		case bmschart.EventHit:
			if *verbose {
				fmt.Printf("hit measure %d channel %s\n", event.Measure, event.Channel)
			}
		}
	}
done:
	pl.Wait()
}

func renderWAV(song *bmschart.Song, sampleRate int, metronome bool, path string) error {
	var samples []float32
	if metronome {
		samples = bmschart.RenderClickTrackMetronome(song, sampleRate)
	} else {
		samples = bmschart.RenderClickTrack(song, sampleRate)
	}
	data := bmschart.EncodeWAVFloat32LE(samples, sampleRate, 2)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d frames to %s\n", len(samples)/2, path)
	return nil
}
