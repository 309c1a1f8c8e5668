// Package linear recovers the statement sequence from a finished graph.
//
// Dependency tags are the single authority on statement order. This pass
// collects every tagged node reachable from the root, in tag order, and
// drops the start/sequence/end bookkeeping spine, which never renders as a
// statement. Traversal follows boxed slots only; inlined primitives cannot
// carry statements.
package linear

import (
	"sort"

	"github.com/sigil-audio/sigil/internal/ir"
)

// Statements returns the dependency-tagged statements reachable from e,
// ordered by tag. Aliased statements appear once. The result shares nodes
// with the input graph.
func Statements(e *ir.E) []*ir.E {
	c := &collector{seen: make(map[*ir.E]bool)}
	c.walk(e)

	sort.SliceStable(c.out, func(i, j int) bool {
		return c.out[i].Dep.Seq < c.out[j].Dep.Seq
	})
	return c.out
}

type collector struct {
	seen map[*ir.E]bool
	out  []*ir.E
}

func (c *collector) walk(e *ir.E) {
	if e == nil || c.seen[e] {
		return
	}
	c.seen[e] = true

	if e.Dep.Valid && !spine(e.Exp) {
		c.out = append(c.out, e)
	}
	for _, s := range ir.Slots(e.Exp) {
		if s.IsInlined() {
			continue
		}
		c.walk(s.Node)
	}
}

// spine matches the ordering bookkeeping kinds, excluded even when tagged.
func spine(x ir.Exp) bool {
	switch x.(type) {
	case ir.Starts, ir.Seq, ir.Ends:
		return true
	}
	return false
}
