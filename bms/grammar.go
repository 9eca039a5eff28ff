package bms

import "strings"

type lineKind int

const (
	lineBlank   lineKind = iota // empty or free text, invisible to the parser
	lineHeader                  // recognized single-value or family tag
	lineObjects                 // #DDDCC:... timed-object line
	lineRandom
	lineIf
	lineEndIf
	lineEndRandom
	lineUnknown // #-line matching no known form
)

// lineToken is the flat record the classifier hands the assembler: one
// source line with its parts extracted and nothing interpreted yet.
type lineToken struct {
	kind    lineKind
	word    string                    // upper-cased tag word
	value   string                    // raw value text, outer whitespace trimmed
	bind    func(*Meta, string) error // header binder resolved during lookup
	measure int
	channel string
}

// classifyLine decides what one source line is. Only the leading # commits
// the line to being a tag; a tag line then either matches one of the known
// forms or comes back as lineUnknown. Everything else is comment text.
func classifyLine(line string) lineToken {
	s := strings.TrimSpace(line)
	if s == "" || s[0] != '#' {
		return lineToken{kind: lineBlank}
	}
	body := s[1:]

	// Timed-object form first: three measure digits, two channel
	// characters, a colon. No header tag starts with a digit, so the
	// forms cannot shadow each other.
	if len(body) >= 6 && body[5] == ':' && isDigits(body[:3]) && isBase36(body[3:5]) {
		meas := int(body[0]-'0')*100 + int(body[1]-'0')*10 + int(body[2]-'0')
		return lineToken{
			kind:    lineObjects,
			measure: meas,
			channel: strings.ToUpper(body[3:5]),
			value:   strings.TrimSpace(body[6:]),
		}
	}

	word, rest := splitWord(body)
	upper := strings.ToUpper(word)
	switch upper {
	case "RANDOM":
		return lineToken{kind: lineRandom, word: upper, value: rest}
	case "IF":
		return lineToken{kind: lineIf, word: upper, value: rest}
	case "ENDIF":
		return lineToken{kind: lineEndIf, word: upper}
	case "ENDRANDOM":
		return lineToken{kind: lineEndRandom, word: upper}
	}
	if bind, ok := findTag(upper); ok {
		return lineToken{kind: lineHeader, word: upper, value: rest, bind: bind}
	}
	return lineToken{kind: lineUnknown, word: upper}
}

// splitWord cuts the tag word (up to the first blank) from the rest of the
// line. The remainder keeps interior whitespace; titles depend on it.
func splitWord(s string) (word, rest string) {
	i := 0
	for i < len(s) && s[i] != ' ' && s[i] != '\t' {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}
