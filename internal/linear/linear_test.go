package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-audio/sigil/internal/build"
	"github.com/sigil-audio/sigil/internal/ir"
)

func kamp() ir.Var {
	return ir.Var{Scope: ir.LocalVar, Rate: ir.Kr, Name: "amp"}
}

func TestStatementsFollowIssueOrder(t *testing.T) {
	b := build.New()
	first := b.Effect(ir.InitVar{V: kamp(), Val: ir.Inlined(ir.PrimDouble(0.5))})
	second := b.Effect(ir.WriteVar{V: kamp(), Val: ir.Inlined(ir.PrimInt(1))})
	third := b.Effect(ir.Verbatim{Text: "outs gamix, gamix"})

	got := Statements(b.Finish())

	require.Len(t, got, 3)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])
	assert.Same(t, third, got[2])
}

func TestStatementsSortByTagNotPosition(t *testing.T) {
	// Statements wired into the tree out of tag order still come back in
	// tag order.
	w := func(tag int64, n int64) ir.PrimOr {
		e := ir.New(ir.WriteVar{V: kamp(), Val: ir.Inlined(ir.PrimInt(n))}).WithDep(ir.Tagged(tag))
		return ir.Boxed(e)
	}

	chain := ir.Boxed(ir.New(ir.Starts{}))
	chain = ir.Boxed(ir.New(ir.Seq{A: chain, B: w(5, 0)}))
	chain = ir.Boxed(ir.New(ir.Seq{A: chain, B: w(2, 1)}))
	chain = ir.Boxed(ir.New(ir.Seq{A: chain, B: w(9, 2)}))
	root := ir.New(ir.Ends{A: chain})

	got := Statements(root)

	require.Len(t, got, 3)
	assert.Equal(t, ir.Tagged(2), got[0].Dep)
	assert.Equal(t, ir.Tagged(5), got[1].Dep)
	assert.Equal(t, ir.Tagged(9), got[2].Dep)
}

func TestStatementsExcludeSpine(t *testing.T) {
	// Even a tagged start marker is bookkeeping, not a statement.
	chain := ir.Boxed(ir.New(ir.Starts{}).WithDep(ir.Tagged(0)))
	stmt := ir.New(ir.Verbatim{Text: "turnoff"}).WithDep(ir.Tagged(1))
	chain = ir.Boxed(ir.New(ir.Seq{A: chain, B: ir.Boxed(stmt)}).WithDep(ir.Tagged(2)))
	root := ir.New(ir.Ends{A: chain}).WithDep(ir.Tagged(3))

	got := Statements(root)

	require.Len(t, got, 1)
	assert.Same(t, stmt, got[0])
}

func TestStatementsReachThroughExpressions(t *testing.T) {
	// A tagged array write referenced only through a pure expression is
	// still part of the statement sequence.
	buf := ir.Var{Scope: ir.LocalVar, Rate: ir.Ar, Name: "buf"}
	writeArr := ir.New(ir.WriteArr{
		V:     buf,
		Index: []ir.PrimOr{ir.Inlined(ir.PrimInt(0))},
		Val:   ir.Inlined(ir.PrimDouble(0.5)),
	}).WithDep(ir.Tagged(4))

	sum := ir.New(ir.ExpNum{Val: ir.NumExp{Op: ir.Add, Args: []ir.PrimOr{
		ir.Boxed(writeArr),
		ir.Inlined(ir.PrimInt(1)),
	}}})

	got := Statements(sum)

	require.Len(t, got, 1)
	assert.Same(t, writeArr, got[0])
}

func TestStatementsAliasedOnce(t *testing.T) {
	stmt := ir.New(ir.Verbatim{Text: "turnoff"}).WithDep(ir.Tagged(1))
	sum := ir.New(ir.ExpNum{Val: ir.NumExp{Op: ir.Add, Args: []ir.PrimOr{
		ir.Boxed(stmt),
		ir.Boxed(stmt),
	}}})

	got := Statements(sum)
	assert.Len(t, got, 1)
}

func TestStatementsPureGraphEmpty(t *testing.T) {
	sum := ir.New(ir.ExpNum{Val: ir.NumExp{Op: ir.Add, Args: []ir.PrimOr{
		ir.Inlined(ir.PrimInt(1)),
		ir.Inlined(ir.PrimInt(2)),
	}}})

	assert.Empty(t, Statements(sum))
	assert.Empty(t, Statements(nil))
}
