// Package dedup rewrites a graph so that structurally equal pure subtrees
// share one node.
//
// The table is content-addressed: candidates are bucketed by structural
// hash, then confirmed with full equality before a slot is redirected to
// the representative. Because equality treats a boxed bare primitive and
// its inlined form as the same value, the two forms land on one
// representative as well.
//
// Dependency-tagged statements are positional, not structural: they are
// never offered as representatives and never replaced by one. Their
// children still participate.
//
// The input graph is not mutated. Content identity is unchanged: the
// rewritten graph serializes to the same canonical bytes as the input.
package dedup

import (
	"log/slog"

	"github.com/sigil-audio/sigil/internal/ir"
)

// Rewrite returns a graph in which every family of equal, untagged
// subtrees points at a single representative. Aliasing already present in
// the input is preserved.
func Rewrite(e *ir.E) *ir.E {
	r := &rewriter{memo: make(map[*ir.E]*ir.E), buckets: make(map[uint64][]*ir.E)}
	out := r.node(e)
	slog.Debug("dedup complete", "nodes", len(r.memo), "merged", r.merged)
	return out
}

type rewriter struct {
	memo    map[*ir.E]*ir.E
	buckets map[uint64][]*ir.E
	merged  int
}

func (r *rewriter) node(e *ir.E) *ir.E {
	if e == nil {
		return nil
	}
	if done, ok := r.memo[e]; ok {
		return done
	}

	// Children first, so equal parents see identical child pointers and
	// equality scans stay cheap on already-merged subtrees.
	exp := ir.MapSlots(e.Exp, func(s ir.PrimOr) ir.PrimOr {
		if s.IsInlined() {
			return s
		}
		return ir.Boxed(r.node(s.Node))
	})
	rebuilt := &ir.E{Rate: e.Rate, Dep: e.Dep, Exp: exp}

	if e.Dep.Valid {
		r.memo[e] = rebuilt
		return rebuilt
	}

	h := rebuilt.Hash()
	for _, rep := range r.buckets[h] {
		if rep.Equal(rebuilt) {
			r.merged++
			r.memo[e] = rep
			return rep
		}
	}
	r.buckets[h] = append(r.buckets[h], rebuilt)
	r.memo[e] = rebuilt
	return rebuilt
}
