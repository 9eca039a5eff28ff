// Package bms parses the line-oriented #-tag chart format of BMS and its
// relatives (BME, BML, PMS) into a document tree. Control flow is kept,
// not resolved: every #RANDOM block becomes an explicit node holding all
// of its #IF branches, so callers can inspect the chart, resolve it with
// their own draws, or write it back out. Serialize is the inverse of
// Parse up to line ordering.
package bms

import (
	"bufio"
	"fmt"
	"strings"
)

// Options adjusts parser behavior.
type Options struct {
	// Strict promotes malformed values on recognized tags from warnings
	// to hard errors. Structural faults are fatal either way.
	Strict bool
}

// DefaultOptions is the lenient configuration: collect warnings, fail
// only on broken block nesting.
func DefaultOptions() Options {
	return Options{}
}

// Parser turns chart text into a Chart tree. A Parser carries no state
// between calls and may be reused freely.
type Parser struct {
	opts Options
}

func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Parse is shorthand for parsing with DefaultOptions.
func Parse(src string) (*Chart, error) {
	return NewParser(DefaultOptions()).Parse(src)
}

// Parse reads src line by line and assembles the branch tree. The error
// is non-nil only for broken nesting or, in strict mode, the first bad
// value; everything survivable lands in Chart.Warnings instead.
func (p *Parser) Parse(src string) (*Chart, error) {
	src = strings.TrimPrefix(src, "\uFEFF")

	asm := newAssembler()
	var warnings []*ParseError
	line := 0

	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line++
		tok := classifyLine(sc.Text())
		switch tok.kind {
		case lineBlank:

		case lineUnknown:
			warnings = append(warnings, &ParseError{
				Line: line,
				Err:  fmt.Errorf("%w: #%s", ErrUnknownTag, tok.word),
			})

		case lineHeader:
			if err := tok.bind(&asm.top().Meta, tok.value); err != nil {
				pe := &ParseError{Line: line, Tag: tok.word, Err: fmt.Errorf("%w: %v", ErrBadValue, err)}
				if p.opts.Strict {
					return nil, pe
				}
				warnings = append(warnings, pe)
			}

		case lineObjects:
			ev := Event{Measure: tok.measure, Channel: tok.channel, Raw: tok.value}
			slots, err := parseSlots(tok.value)
			if err != nil {
				pe := &ParseError{
					Line: line,
					Tag:  fmt.Sprintf("%03d%s", tok.measure, tok.channel),
					Err:  fmt.Errorf("%w: %v", ErrBadValue, err),
				}
				if p.opts.Strict {
					return nil, pe
				}
				warnings = append(warnings, pe)
			} else {
				ev.Slots = slots
			}
			t := asm.top()
			t.Events = append(t.Events, ev)

		case lineRandom:
			n, fatal := p.blockArg(tok, line, &warnings)
			if fatal != nil {
				return nil, fatal
			}
			asm.openRandom(n)

		case lineIf:
			n, fatal := p.blockArg(tok, line, &warnings)
			if fatal != nil {
				return nil, fatal
			}
			if err := asm.openIf(n); err != nil {
				return nil, &ParseError{Line: line, Tag: tok.word, Err: err}
			}

		case lineEndIf:
			if err := asm.closeIf(); err != nil {
				return nil, &ParseError{Line: line, Tag: tok.word, Err: err}
			}

		case lineEndRandom:
			if err := asm.closeRandom(); err != nil {
				return nil, &ParseError{Line: line, Tag: tok.word, Err: err}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	root, err := asm.finish()
	if err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}
	return &Chart{Root: root, Warnings: warnings, Lines: line}, nil
}

// blockArg reads the integer argument of #RANDOM or #IF. A bad argument
// is a value fault, not a structural one: in lenient mode the block still
// opens (with argument 0) so that its #ENDIF/#ENDRANDOM keep matching up.
func (p *Parser) blockArg(tok lineToken, line int, warnings *[]*ParseError) (int, *ParseError) {
	n, err := parseIntValue(tok.value)
	if err == nil {
		return n, nil
	}
	pe := &ParseError{Line: line, Tag: tok.word, Err: fmt.Errorf("%w: %v", ErrBadValue, err)}
	if p.opts.Strict {
		return 0, pe
	}
	*warnings = append(*warnings, pe)
	return 0, nil
}
