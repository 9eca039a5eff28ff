package bms

import (
	"fmt"
	"strings"
)

// Serialize writes the chart back out as tag lines. Within one branch the
// order is headers first, then object lines in original order, then nested
// random groups. Reparsing the output yields a structurally equal tree;
// the original interleaving of lines inside a branch is not recorded and
// so not reproduced.
func Serialize(c *Chart) string {
	var b strings.Builder
	writeBranch(&b, c.Root)
	return b.String()
}

func writeBranch(b *strings.Builder, br *Branch) {
	writeMeta(b, &br.Meta)
	for _, ev := range br.Events {
		fmt.Fprintf(b, "#%03d%s:%s\n", ev.Measure, ev.Channel, ev.Raw)
	}
	for _, g := range br.Randoms {
		fmt.Fprintf(b, "#RANDOM %d\n", g.Range)
		for _, sub := range g.Branches {
			fmt.Fprintf(b, "#IF %d\n", sub.If)
			writeBranch(b, sub)
			b.WriteString("#ENDIF\n")
		}
		b.WriteString("#ENDRANDOM\n")
	}
}

func writeMeta(b *strings.Builder, m *Meta) {
	for i := range tagTable {
		t := &tagTable[i]
		v, ok := t.emit(m)
		if !ok {
			continue
		}
		if v == "" {
			fmt.Fprintf(b, "#%s\n", t.name)
		} else {
			fmt.Fprintf(b, "#%s %s\n", t.name, v)
		}
	}
	for i := range familyTable {
		f := &familyTable[i]
		for _, iv := range f.emit(m) {
			if iv.value == "" {
				fmt.Fprintf(b, "#%s%s\n", f.name, iv.index)
			} else {
				fmt.Fprintf(b, "#%s%s %s\n", f.name, iv.index, iv.value)
			}
		}
	}
}
