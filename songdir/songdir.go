// Package songdir scans directories for chart files and builds song
// listings. Charts for one song conventionally share a directory, one
// file per difficulty, so the scanner walks a tree, parses every chart
// it finds and groups the results by parent directory.
package songdir

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/remeh/sizedwaitgroup"

	"github.com/Bobini1/bmschart-go/bms"
	"github.com/Bobini1/bmschart-go/internal/textenc"
	"github.com/Bobini1/bmschart-go/resolve"
)

// Exts lists the filename extensions the scanner recognizes as charts.
var Exts = []string{".bms", ".bme", ".bml", ".pms"}

// IsChartPath reports whether path has a chart filename extension.
func IsChartPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Entry is one parsed chart file.
type Entry struct {
	Path     string
	Encoding string
	Meta     bms.Meta
	Warnings int
	Err      error
}

// Song is every chart found in one directory.
type Song struct {
	Dir    string
	Charts []Entry
}

// Title picks a display title for the song, preferring the first chart
// that declares one and falling back to the directory name.
func (s Song) Title() string {
	for _, e := range s.Charts {
		if e.Meta.Title != nil && *e.Meta.Title != "" {
			return *e.Meta.Title
		}
	}
	return filepath.Base(s.Dir)
}

// Options control a Scanner.
type Options struct {
	// Workers caps how many files are parsed at once. Zero means one
	// per CPU.
	Workers int
}

// DefaultOptions returns the scanner defaults.
func DefaultOptions() Options {
	return Options{}
}

// Scanner walks directory trees for charts.
type Scanner struct {
	opts Options
}

// NewScanner returns a Scanner with the given options.
func NewScanner(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan walks root and parses every chart underneath it, a bounded
// number at a time. Entries come back in walk order, one per file. A
// file that cannot be read or assembled is still listed, with Err set,
// so one broken chart does not hide the rest of a song pack.
func (s *Scanner) Scan(root string) ([]Entry, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsChartPath(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	workers := s.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	entries := make([]Entry, len(paths))
	wg := sizedwaitgroup.New(workers)
	for i, path := range paths {
		wg.Add()
		go func(i int, path string) {
			entries[i] = loadEntry(path)
			wg.Done()
		}(i, path)
	}
	wg.Wait()
	return entries, nil
}

// Scan walks root with the default options.
func Scan(root string) ([]Entry, error) {
	return NewScanner(DefaultOptions()).Scan(root)
}

func loadEntry(path string) Entry {
	e := Entry{Path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		e.Err = err
		return e
	}
	text, enc := textenc.Decode(b)
	e.Encoding = enc

	chart, err := bms.Parse(text)
	if err != nil {
		e.Err = err
		return e
	}
	e.Warnings = len(chart.Warnings)

	// Take the headers a player would see on its first pass, settling
	// every random group on branch one.
	flat := resolve.Resolve(chart, resolve.Fixed())
	e.Meta = flat.Meta
	return e
}

// Group buckets entries by parent directory, one Song per directory,
// sorted by path.
func Group(entries []Entry) []Song {
	byDir := make(map[string][]Entry)
	for _, e := range entries {
		dir := filepath.Dir(e.Path)
		byDir[dir] = append(byDir[dir], e)
	}
	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	songs := make([]Song, 0, len(dirs))
	for _, dir := range dirs {
		songs = append(songs, Song{Dir: dir, Charts: byDir[dir]})
	}
	return songs
}
