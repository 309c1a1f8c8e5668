package dump

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/sigil-audio/sigil/internal/build"
	"github.com/sigil-audio/sigil/internal/ir"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestGraphOscillator(t *testing.T) {
	env := ir.NewRated(ir.Kr, ir.Opcode{
		Info: ir.Info{Name: "linen"},
		Args: []ir.PrimOr{
			ir.Inlined(ir.PrimDouble(0.5)),
			ir.Inlined(ir.PrimDouble(0.01)),
			ir.Inlined(ir.PField(3)),
			ir.Inlined(ir.PrimDouble(0.05)),
		},
	})
	osc := ir.NewRated(ir.Ar, ir.Opcode{
		Info: ir.Info{Name: "oscil"},
		Args: []ir.PrimOr{ir.Boxed(env), ir.Inlined(ir.PrimInt(440))},
	})
	out := ir.NewRated(ir.Xr, ir.Opcode{
		Info: ir.Info{Name: "out"},
		Args: []ir.PrimOr{ir.Boxed(osc)},
	}).WithDep(ir.Tagged(1))

	golden(t).Assert(t, "graph_oscillator", []byte(Graph(out)))
}

func TestGraphStereoSharing(t *testing.T) {
	cps := ir.NewRated(ir.Kr, ir.ConvertRate{
		To:   ir.Kr,
		From: ir.FixedRate(ir.Ir),
		Arg:  ir.Inlined(ir.PField(4)),
	})
	src := ir.NewRated(ir.Ar, ir.Opcode{
		Info: ir.Info{Name: "vco2"},
		Args: []ir.PrimOr{ir.Inlined(ir.PrimDouble(0.4)), ir.Inlined(ir.PrimInt(110))},
	})
	pan := ir.NewRated(ir.Ar, ir.Opcode{
		Info: ir.Info{Name: "pan2"},
		Args: []ir.PrimOr{ir.Boxed(src), ir.Boxed(cps)},
	})
	left := ir.NewRated(ir.Ar, ir.Select{Rate: ir.Ar, Index: 0, Parent: ir.Boxed(pan)})
	right := ir.NewRated(ir.Ar, ir.Select{Rate: ir.Ar, Index: 1, Parent: ir.Boxed(pan)})
	out := ir.NewRated(ir.Xr, ir.Opcode{
		Info: ir.Info{Name: "outs"},
		Args: []ir.PrimOr{ir.Boxed(left), ir.Boxed(right)},
	}).WithDep(ir.Tagged(1))

	golden(t).Assert(t, "graph_stereo", []byte(Graph(out)))
}

func TestGraphBuilderChain(t *testing.T) {
	b := build.New()
	b.Effect(ir.Verbatim{Text: "ival = 1"})
	b.Effect(ir.Verbatim{Text: "kval = 2"})

	golden(t).Assert(t, "graph_chain", []byte(Graph(b.Finish())))
}

func TestStatementsPassage(t *testing.T) {
	kamp := ir.Var{Rate: ir.Kr, Name: "amp"}
	kcps := ir.Var{Rate: ir.Kr, Name: "cps"}
	cond := ir.InlineSingle(ir.Less,
		ir.Inlined(ir.PrimVar{TargetRate: ir.Kr, V: kcps}),
		ir.Inlined(ir.PrimInt(1000)),
	)
	gain := ir.NewRated(ir.Ir, ir.ReadMacrosDouble{Name: "gain"})
	val := ir.NewRated(ir.Ir, ir.ExpNum{Val: ir.NumExp{
		Op:   ir.Mul,
		Args: []ir.PrimOr{ir.Boxed(gain), ir.Inlined(ir.PrimDouble(0.5))},
	}})

	stmts := []*ir.E{
		ir.NewRated(ir.Xr, ir.InitMacrosDouble{Name: "gain", Def: 0.25}).WithDep(ir.Tagged(1)),
		ir.NewRated(ir.Xr, ir.IfBegin{Cond: cond}).WithDep(ir.Tagged(2)),
		ir.NewRated(ir.Xr, ir.WriteVar{V: kamp, Val: ir.Boxed(val)}).WithDep(ir.Tagged(3)),
		ir.NewRated(ir.Xr, ir.ElseBegin{}).WithDep(ir.Tagged(4)),
		ir.NewRated(ir.Xr, ir.WriteVar{V: kamp, Val: ir.Inlined(ir.PrimDouble(0.25))}).WithDep(ir.Tagged(5)),
		ir.NewRated(ir.Xr, ir.IfEnd{}).WithDep(ir.Tagged(6)),
	}

	golden(t).Assert(t, "statements_passage", []byte(Statements(stmts)))
}

func TestGraphValueConditional(t *testing.T) {
	kcps := ir.Var{Rate: ir.Kr, Name: "cps"}
	cond := ir.InlineSingle(ir.Greater,
		ir.Inlined(ir.PrimVar{TargetRate: ir.Kr, V: kcps}),
		ir.Inlined(ir.PrimInt(500)),
	)
	choice := ir.NewRated(ir.Ar, ir.If{
		Cond: cond,
		Then: ir.Inlined(ir.PrimVar{TargetRate: ir.Ar, V: kcps}),
		Else: ir.Inlined(ir.PrimDouble(220)),
	})

	want := "if (gt $0 $1) :a\n" +
		"  $0: kcps\n" +
		"  $1: 500\n" +
		"  then: kcps@a\n" +
		"  else: 220\n"
	assert.Equal(t, want, Graph(choice))
}

func TestGraphEnvOrder(t *testing.T) {
	cond := ir.CondInfo{
		Exp: ir.InlineOp(ir.And,
			ir.InlineLeaf[ir.CondOp](0),
			ir.InlineOp(ir.Less, ir.InlineLeaf[ir.CondOp](2), ir.InlineLeaf[ir.CondOp](5)),
		),
		Env: map[int]ir.PrimOr{
			5: ir.Inlined(ir.PrimInt(6)),
			0: ir.Inlined(ir.PrimInt(1)),
			2: ir.Inlined(ir.PrimInt(3)),
		},
	}
	block := ir.New(ir.WhileBegin{Cond: cond}).WithDep(ir.Tagged(7))

	want := "while_begin (and $0 (lt $2 $5)) #7\n" +
		"  $0: 1\n" +
		"  $2: 3\n" +
		"  $5: 6\n"
	for i := 0; i < 4; i++ {
		assert.Equal(t, want, Graph(block))
	}
}

func TestStatementsShareLabels(t *testing.T) {
	kamp := ir.Var{Rate: ir.Kr, Name: "amp"}
	kdet := ir.Var{Rate: ir.Kr, Name: "det"}
	shared := ir.NewRated(ir.Kr, ir.Opcode{
		Info: ir.Info{Name: "randi"},
		Args: []ir.PrimOr{ir.Inlined(ir.PrimInt(1)), ir.Inlined(ir.PrimInt(3))},
	})
	stmts := []*ir.E{
		ir.NewRated(ir.Xr, ir.WriteVar{V: kamp, Val: ir.Boxed(shared)}).WithDep(ir.Tagged(1)),
		ir.NewRated(ir.Xr, ir.WriteVar{V: kdet, Val: ir.Boxed(shared)}).WithDep(ir.Tagged(2)),
	}

	want := "[0]: write_var kamp :x #1\n" +
		"  &0 opcode randi :k\n" +
		"    1\n" +
		"    3\n" +
		"[1]: write_var kdet :x #2\n" +
		"  &0\n"
	assert.Equal(t, want, Statements(stmts))
}

func TestGraphNil(t *testing.T) {
	assert.Equal(t, "nil\n", Graph(nil))
}

func TestStatementsEmpty(t *testing.T) {
	assert.Empty(t, Statements(nil))
	assert.Empty(t, Statements([]*ir.E{}))
}
