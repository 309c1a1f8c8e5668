// Package build assembles instrument graphs as ordered effect chains.
//
// The node types themselves are pure values: nothing in their structure says
// which statement runs first. Builder supplies that order. It opens a chain
// with a start marker, stamps every appended statement with a fresh
// dependency tag from its Clock, links statements with sequence nodes, and
// closes the chain with an end marker. The chain spine carries no tags of
// its own; only the statements hanging off it do.
//
// Construction is single-goroutine by contract: tags record the order the
// builder issued statements, so interleaving two goroutines on one Builder
// would scramble that order. A finished graph is immutable and safe to
// share across concurrent readers.
package build

import (
	"fmt"

	"github.com/sigil-audio/sigil/internal/ir"
)

// Builder accumulates a single effect chain.
//
// Pure expressions are built directly with the node constructors and passed
// in as operands; only statements with side effects or block structure go
// through the Builder. Methods return the appended node so callers can
// reference it from later expressions.
type Builder struct {
	clock *Clock
	chain ir.PrimOr
	vars  int
}

// New creates a Builder with a fresh clock and an open chain.
func New() *Builder {
	return NewWithClock(NewClock())
}

// NewWithClock creates a Builder issuing tags from c. Sharing one clock
// across builders keeps tags unique when chains are later spliced.
func NewWithClock(c *Clock) *Builder {
	return &Builder{
		clock: c,
		chain: ir.Boxed(ir.New(ir.Starts{})),
	}
}

// Clock returns the tag source.
func (b *Builder) Clock() *Clock {
	return b.clock
}

// Effect appends a statement to the chain, stamped with the next dependency
// tag, and returns the stamped node.
func (b *Builder) Effect(x ir.Exp) *ir.E {
	node := ir.New(x).WithDep(ir.Tagged(b.clock.Next()))
	b.chain = ir.Boxed(ir.New(ir.Seq{A: b.chain, B: ir.Boxed(node)}))
	return node
}

// If emits a conditional block: a begin marker, the statements issued by
// then, optionally an else marker and the statements issued by els, and the
// end marker. Pass nil for els to omit the else arm.
func (b *Builder) If(cond ir.CondInfo, then func(), els func()) {
	b.Effect(ir.IfBegin{Cond: cond})
	then()
	if els != nil {
		b.Effect(ir.ElseBegin{})
		els()
	}
	b.Effect(ir.IfEnd{})
}

// Until emits a loop that runs body until cond becomes true.
func (b *Builder) Until(cond ir.CondInfo, body func()) {
	b.Effect(ir.UntilBegin{Cond: cond})
	body()
	b.Effect(ir.UntilEnd{})
}

// While emits a loop that runs body while cond holds.
func (b *Builder) While(cond ir.CondInfo, body func()) {
	b.Effect(ir.WhileBegin{Cond: cond})
	body()
	b.Effect(ir.WhileEnd{})
}

// WhileRef emits a loop whose condition is re-read from v each iteration.
func (b *Builder) WhileRef(v ir.Var, body func()) {
	b.Effect(ir.WhileRefBegin{V: v})
	body()
	b.Effect(ir.WhileEnd{})
}

// FreshVar allocates a compiler-generated variable. Names are unique per
// Builder; the scope decoration and rate letter are applied by the renderer.
func (b *Builder) FreshVar(scope ir.VarScope, rate ir.Rate) ir.Var {
	v := ir.Var{Scope: scope, Rate: rate, Name: fmt.Sprintf("v%d", b.vars)}
	b.vars++
	return v
}

// Finish closes the chain with an end marker and returns the completed
// graph. The Builder is not reusable afterwards.
func (b *Builder) Finish() *ir.E {
	return ir.New(ir.Ends{A: b.chain})
}
