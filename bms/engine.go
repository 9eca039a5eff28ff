package bms

import "fmt"

// assembler folds the flat line stream into the branch tree. It keeps two
// stacks: branches, whose top receives every header and object line, and
// groups, the #RANDOM blocks still waiting for their #ENDRANDOM. A branch
// leaves the stack exactly once, on its #ENDIF, and is never written to
// again; a group leaves on #ENDRANDOM and is grafted onto whatever branch
// is on top at that moment. Depth is bounded only by the input.
type assembler struct {
	branches []*Branch
	groups   []*RandomGroup
}

func newAssembler() *assembler {
	return &assembler{branches: []*Branch{{}}}
}

// top is the branch currently receiving content.
func (a *assembler) top() *Branch {
	return a.branches[len(a.branches)-1]
}

func (a *assembler) openRandom(rng int) {
	a.groups = append(a.groups, &RandomGroup{Range: rng})
}

func (a *assembler) openIf(selector int) error {
	if len(a.groups) == 0 {
		return fmt.Errorf("%w: #IF outside any #RANDOM", ErrUnbalanced)
	}
	a.branches = append(a.branches, &Branch{If: selector})
	return nil
}

func (a *assembler) closeIf() error {
	if len(a.branches) <= 1 {
		return fmt.Errorf("%w: #ENDIF without an open #IF", ErrUnbalanced)
	}
	if len(a.groups) == 0 {
		return fmt.Errorf("%w: #ENDIF without an open #RANDOM", ErrUnbalanced)
	}
	b := a.branches[len(a.branches)-1]
	a.branches = a.branches[:len(a.branches)-1]
	g := a.groups[len(a.groups)-1]
	g.Branches = append(g.Branches, b)
	return nil
}

func (a *assembler) closeRandom() error {
	if len(a.groups) == 0 {
		return fmt.Errorf("%w: #ENDRANDOM without an open #RANDOM", ErrUnbalanced)
	}
	g := a.groups[len(a.groups)-1]
	a.groups = a.groups[:len(a.groups)-1]
	t := a.top()
	t.Randoms = append(t.Randoms, g)
	return nil
}

// finish checks that every block was closed and hands back the root. Both
// stacks must be drained: a dangling #IF leaves a branch behind, a
// dangling #RANDOM leaves a group behind, and either one means line
// attribution below that point was provisional.
func (a *assembler) finish() (*Branch, error) {
	if n := len(a.branches) - 1; n > 0 {
		return nil, fmt.Errorf("%w: %d unclosed #IF at end of input", ErrUnbalanced, n)
	}
	if n := len(a.groups); n > 0 {
		return nil, fmt.Errorf("%w: %d unclosed #RANDOM at end of input", ErrUnbalanced, n)
	}
	return a.branches[0], nil
}
