package ir

import "fmt"

// DepTag is a dependency ordering tag. Tagged nodes are side effects; the
// tag's sequence number is the only authority over the order effects
// execute in. The zero value is untagged.
type DepTag struct {
	Seq   int64
	Valid bool
}

// Tagged returns a valid tag with the given sequence number.
func Tagged(seq int64) DepTag {
	return DepTag{Seq: seq, Valid: true}
}

func (t DepTag) String() string {
	if !t.Valid {
		return "-"
	}
	return fmt.Sprintf("#%d", t.Seq)
}

// E is the expression node: an optional rate, an optional dependency tag,
// and exactly one payload. Nodes are immutable after construction; the
// With methods copy. Two parents holding the same *E alias one
// computation.
type E struct {
	Rate OptRate
	Dep  DepTag
	Exp  Exp
}

// New returns a node with unresolved rate and no dependency tag.
func New(x Exp) *E {
	return &E{Exp: x}
}

// NewRated returns a node with its rate already fixed.
func NewRated(r Rate, x Exp) *E {
	return &E{Rate: FixedRate(r), Exp: x}
}

// WithRate returns a copy of the node with its rate fixed to r. The
// receiver is not modified.
func (e *E) WithRate(r Rate) *E {
	c := *e
	c.Rate = FixedRate(r)
	return &c
}

// WithDep returns a copy of the node carrying the dependency tag. The
// receiver is not modified.
func (e *E) WithDep(t DepTag) *E {
	c := *e
	c.Dep = t
	return &c
}

// IsEmpty reports whether the node is pure filler: an Empty payload with
// no dependency tag. A tagged Empty still matters for ordering and is not
// empty in this sense.
func IsEmpty(e *E) bool {
	if e == nil {
		return true
	}
	if e.Dep.Valid {
		return false
	}
	_, ok := e.Exp.(Empty)
	return ok
}
