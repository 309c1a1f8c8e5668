package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-audio/sigil/internal/build"
	"github.com/sigil-audio/sigil/internal/ir"
	"github.com/sigil-audio/sigil/internal/opcodes"
)

func kamp() ir.Var {
	return ir.Var{Scope: ir.LocalVar, Rate: ir.Kr, Name: "amp"}
}

func oscilInfo() ir.Info {
	return ir.Info{Name: "oscil", Sig: ir.SingleRate{
		ir.Ar: {ir.Xr, ir.Xr, ir.Ir},
		ir.Kr: {ir.Kr, ir.Kr, ir.Ir},
	}}
}

func trueCond() ir.CondInfo {
	return ir.InlineSingle[ir.CondOp, ir.PrimOr](ir.TrueOp)
}

func resolveOne(t *testing.T, e *ir.E) *ir.E {
	t.Helper()
	out, err := Resolve(e, opcodes.Builtin())
	require.NoError(t, err)
	require.True(t, out.Rate.Valid, "every resolved node must carry a fixed rate")
	return out
}

func TestResolvePrimDefaults(t *testing.T) {
	tests := []struct {
		name string
		prim ir.Prim
		want ir.Rate
	}{
		{"int", ir.PrimInt(440), ir.Ir},
		{"double", ir.PrimDouble(0.5), ir.Ir},
		{"string", ir.PrimString("pluck.wav"), ir.Sr},
		{"pfield", ir.PField(4), ir.Ir},
		{"string index", ir.StrIndex(2), ir.Sr},
		{"instrument id", ir.PrimInstr{Id: ir.InstrNum(3)}, ir.Ir},
		{"var reference", ir.PrimVar{TargetRate: ir.Ar, V: kamp()}, ir.Ar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := resolveOne(t, ir.New(ir.ExpPrim{Val: tt.prim}))
			assert.Equal(t, ir.FixedRate(tt.want), out.Rate)
		})
	}
}

func TestResolveReads(t *testing.T) {
	out := resolveOne(t, ir.New(ir.ReadVar{V: kamp()}))
	assert.Equal(t, ir.FixedRate(ir.Kr), out.Rate)

	buf := ir.Var{Scope: ir.GlobalVar, Rate: ir.Ar, Name: "buf"}
	out = resolveOne(t, ir.New(ir.ReadArr{V: buf, Index: []ir.PrimOr{ir.Inlined(ir.PrimInt(0))}}))
	assert.Equal(t, ir.FixedRate(ir.Ar), out.Rate)
}

func TestResolveOpcodePicksFastestOut(t *testing.T) {
	call := ir.Opcode{Info: oscilInfo(), Args: []ir.PrimOr{
		ir.Inlined(ir.PrimVar{TargetRate: ir.Kr, V: kamp()}),
		ir.Inlined(ir.PField(4)),
		ir.Inlined(ir.PrimInt(1)),
	}}

	out := resolveOne(t, ir.New(call))
	assert.Equal(t, ir.FixedRate(ir.Ar), out.Rate, "audio beats control when both are offered")
}

func TestResolveKeepsPresetRate(t *testing.T) {
	call := ir.Opcode{Info: oscilInfo(), Args: []ir.PrimOr{ir.Inlined(ir.PrimInt(1))}}

	out := resolveOne(t, ir.NewRated(ir.Kr, call))
	assert.Equal(t, ir.FixedRate(ir.Kr), out.Rate, "a rate fixed at construction wins")
}

func TestResolveOpcodeFromTable(t *testing.T) {
	// Bare name, no attached signature: the table supplies it.
	call := ir.Opcode{Info: ir.Info{Name: "moogladder"}, Args: []ir.PrimOr{
		ir.Inlined(ir.PrimVar{TargetRate: ir.Ar, V: ir.Var{Scope: ir.LocalVar, Rate: ir.Ar, Name: "sig"}}),
		ir.Inlined(ir.PrimInt(800)),
		ir.Inlined(ir.PrimDouble(0.4)),
	}}

	out := resolveOne(t, ir.New(call))
	assert.Equal(t, ir.FixedRate(ir.Ar), out.Rate)
}

func TestResolveUnknownOpcode(t *testing.T) {
	_, err := Resolve(ir.New(ir.Opcode{Info: ir.Info{Name: "mystery"}}), opcodes.Builtin())

	require.Error(t, err)
	var unknownErr *UnknownOpcodeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "mystery", unknownErr.Name)
}

func TestResolveNilTableNeedsAttachedSig(t *testing.T) {
	attached := ir.New(ir.Opcode{Info: oscilInfo()})
	out, err := Resolve(attached, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.FixedRate(ir.Ar), out.Rate)

	_, err = Resolve(ir.New(ir.Opcode{Info: ir.Info{Name: "oscil"}}), nil)
	require.Error(t, err)
}

func TestResolveSinkOpcode(t *testing.T) {
	call := ir.Opcode{Info: ir.Info{Name: "out"}, Args: []ir.PrimOr{
		ir.Inlined(ir.PrimVar{TargetRate: ir.Ar, V: ir.Var{Scope: ir.GlobalVar, Rate: ir.Ar, Name: "mix"}}),
	}}

	out := resolveOne(t, ir.New(call))
	assert.Equal(t, ir.FixedRate(ir.Xr), out.Rate, "an opcode with no outs is a statement")
}

func TestResolveConvertRate(t *testing.T) {
	out := resolveOne(t, ir.New(ir.ConvertRate{To: ir.Kr, Arg: ir.Inlined(ir.PrimInt(1))}))
	assert.Equal(t, ir.FixedRate(ir.Kr), out.Rate)
}

func TestResolveSelect(t *testing.T) {
	pan := ir.New(ir.Opcode{Info: ir.Info{Name: "pan2", Sig: ir.MultiRate{
		Outs: []ir.Rate{ir.Ar, ir.Ar},
		Ins:  []ir.Rate{ir.Ar, ir.Xr},
	}}})

	out := resolveOne(t, ir.New(ir.Select{Rate: ir.Ar, Index: 1, Parent: ir.Boxed(pan)}))
	assert.Equal(t, ir.FixedRate(ir.Ar), out.Rate)
}

func TestResolveIfTakesFastestBranch(t *testing.T) {
	branch := ir.If{
		Cond: trueCond(),
		Then: ir.Boxed(ir.New(ir.ReadVar{V: kamp()})),
		Else: ir.Inlined(ir.PrimInt(0)),
	}

	out := resolveOne(t, ir.New(branch))
	assert.Equal(t, ir.FixedRate(ir.Kr), out.Rate, "control beats init")
}

func TestResolveNumExp(t *testing.T) {
	sig := ir.PrimVar{TargetRate: ir.Ar, V: ir.Var{Scope: ir.LocalVar, Rate: ir.Ar, Name: "sig"}}
	mul := ir.ExpNum{Val: ir.NumExp{Op: ir.Mul, Args: []ir.PrimOr{
		ir.Inlined(sig),
		ir.Inlined(ir.PrimDouble(0.5)),
	}}}

	out := resolveOne(t, ir.New(mul))
	assert.Equal(t, ir.FixedRate(ir.Ar), out.Rate)
}

func TestResolveBoolExp(t *testing.T) {
	cmp := ir.ExpBool{Val: ir.BoolExp{Op: ir.Less, Args: []ir.PrimOr{
		ir.Inlined(ir.PrimVar{TargetRate: ir.Kr, V: kamp()}),
		ir.Inlined(ir.PrimDouble(0.001)),
	}}}

	out := resolveOne(t, ir.New(cmp))
	assert.Equal(t, ir.FixedRate(ir.Kr), out.Rate)
}

func TestResolveStatements(t *testing.T) {
	tests := []struct {
		name string
		x    ir.Exp
	}{
		{"init var", ir.InitVar{V: kamp(), Val: ir.Inlined(ir.PrimInt(0))}},
		{"write var", ir.WriteVar{V: kamp(), Val: ir.Inlined(ir.PrimInt(1))}},
		{"verbatim", ir.Verbatim{Text: "turnoff"}},
		{"if begin", ir.IfBegin{Cond: trueCond()}},
		{"if end", ir.IfEnd{}},
		{"init macro", ir.InitMacrosInt{Name: "VOICES", Def: 4}},
		{"starts", ir.Starts{}},
		{"empty", ir.Empty{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := resolveOne(t, ir.New(tt.x))
			assert.Equal(t, ir.FixedRate(ir.Xr), out.Rate)
		})
	}
}

func TestResolveMacroReads(t *testing.T) {
	assert.Equal(t, ir.FixedRate(ir.Ir), resolveOne(t, ir.New(ir.ReadMacrosInt{Name: "VOICES"})).Rate)
	assert.Equal(t, ir.FixedRate(ir.Ir), resolveOne(t, ir.New(ir.ReadMacrosDouble{Name: "GAIN"})).Rate)
	assert.Equal(t, ir.FixedRate(ir.Sr), resolveOne(t, ir.New(ir.ReadMacrosString{Name: "PATH"})).Rate)
}

func TestResolveSharedChildOnce(t *testing.T) {
	shared := ir.New(ir.Opcode{Info: oscilInfo(), Args: []ir.PrimOr{ir.Inlined(ir.PrimInt(1))}})
	root := ir.New(ir.ExpNum{Val: ir.NumExp{Op: ir.Add, Args: []ir.PrimOr{
		ir.Boxed(shared),
		ir.Boxed(shared),
	}}})

	out := resolveOne(t, root)

	num, ok := out.Exp.(ir.ExpNum)
	require.True(t, ok)
	assert.Same(t, num.Val.Args[0].Node, num.Val.Args[1].Node, "aliased children stay shared")
}

func TestResolveKeepsDepTag(t *testing.T) {
	e := ir.New(ir.WriteVar{V: kamp(), Val: ir.Inlined(ir.PrimInt(1))}).WithDep(ir.Tagged(7))

	out := resolveOne(t, e)
	assert.Equal(t, ir.Tagged(7), out.Dep)
}

func TestResolveDoesNotMutate(t *testing.T) {
	e := ir.New(ir.ReadVar{V: kamp()})

	out := resolveOne(t, e)

	assert.False(t, e.Rate.Valid, "input graph stays untouched")
	assert.NotSame(t, e, out)
}

func TestResolveWholeChain(t *testing.T) {
	b := build.New()
	amp := b.FreshVar(ir.LocalVar, ir.Kr)
	b.Effect(ir.InitVar{V: amp, Val: ir.Inlined(ir.PrimDouble(0.5))})
	b.If(trueCond(), func() {
		b.Effect(ir.WriteVar{V: amp, Val: ir.Inlined(ir.PrimInt(1))})
	}, nil)

	out, err := Resolve(b.Finish(), opcodes.Builtin())
	require.NoError(t, err)

	// Walk the spine: every node, spine included, must be resolved.
	require.Equal(t, ir.FixedRate(ir.Xr), out.Rate)
	ends := out.Exp.(ir.Ends)
	cur := ends.A.Node
	for {
		require.True(t, cur.Rate.Valid)
		seq, ok := cur.Exp.(ir.Seq)
		if !ok {
			break
		}
		require.True(t, seq.B.Node.Rate.Valid)
		cur = seq.A.Node
	}
}
