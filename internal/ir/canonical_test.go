package ir

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compositeGraph builds a graph touching most payload variants: an effect
// chain with block structure, macro access, array writes, and a rated
// opcode expression with a condition.
func compositeGraph() *E {
	amp := Var{Scope: LocalVar, Rate: Kr, Name: "amp"}
	out := Var{Scope: GlobalVar, Rate: Ar, Name: "mix"}

	osc := NewRated(Ar, Opcode{Info: oscilInfo(), Args: []PrimOr{
		ToPrimOr(New(ReadVar{V: amp})),
		Inlined(PField(4)),
		Inlined(PrimInt(1)),
	}})

	branch := New(If{
		Cond: lessCond(Inlined(PrimVar{TargetRate: Kr, V: amp}), Inlined(PrimDouble(0.001))),
		Then: Inlined(PrimInt(0)),
		Else: ToPrimOr(osc),
	})

	stmts := []*E{
		New(InitVar{V: amp, Val: Inlined(PrimDouble(0.5))}).WithDep(Tagged(1)),
		New(InitMacrosDouble{Name: "GAIN", Def: 0.8}).WithDep(Tagged(2)),
		New(IfBegin{Cond: lessCond(Inlined(PField(4)), Inlined(PrimInt(1000)))}).WithDep(Tagged(3)),
		New(WriteVar{V: out, Val: ToPrimOr(branch)}).WithDep(Tagged(4)),
		New(ElseBegin{}).WithDep(Tagged(5)),
		New(WriteArr{
			V:     Var{Scope: LocalVar, Rate: Ar, Name: "buf"},
			Index: []PrimOr{Inlined(PrimInt(0))},
			Val:   ToPrimOr(branch),
		}).WithDep(Tagged(6)),
		New(IfEnd{}).WithDep(Tagged(7)),
		New(Verbatim{Text: "outs gamix, gamix"}).WithDep(Tagged(8)),
	}

	chain := Boxed(New(Starts{}).WithDep(Tagged(0)))
	for _, s := range stmts {
		chain = Boxed(New(Seq{A: chain, B: Boxed(s)}))
	}
	return New(Ends{A: chain})
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	a, err := MarshalCanonical(compositeGraph())
	require.NoError(t, err)
	b, err := MarshalCanonical(compositeGraph())
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
}

func TestMarshalCanonicalNormalForm(t *testing.T) {
	// A boxed bare primitive serializes exactly like the inlined form, so
	// representation choices never leak into content identity.
	inlined, err := MarshalCanonical(oscilCall(Inlined(PrimInt(440))))
	require.NoError(t, err)
	boxed, err := MarshalCanonical(oscilCall(Boxed(num(440))))
	require.NoError(t, err)

	assert.Equal(t, string(inlined), string(boxed))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical(New(Verbatim{Text: `out <chn> & more`}))
	require.NoError(t, err)

	assert.Contains(t, string(data), `out <chn> & more`)
	assert.NotContains(t, string(data), "\\u003c")
	assert.NotContains(t, string(data), "\\u0026")
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// The same name in composed and decomposed form normalizes to one
	// byte sequence at the serialization boundary.
	composed, err := MarshalCanonical(New(ReadMacrosString{Name: "café"}))
	require.NoError(t, err)
	decomposed, err := MarshalCanonical(New(ReadMacrosString{Name: "café"}))
	require.NoError(t, err)

	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonicalSeparators(t *testing.T) {
	lineSep := string(rune(0x2028))
	paraSep := string(rune(0x2029))

	// Go's encoder escapes the separators for JavaScript embedding;
	// canonical form carries them literally.
	text := "a" + lineSep + "b" + paraSep + "c"
	data, err := MarshalCanonical(New(Verbatim{Text: text}))
	require.NoError(t, err)
	assert.Contains(t, string(data), text)

	decoded, err := UnmarshalCanonical(data)
	require.NoError(t, err)
	assert.Equal(t, text, decoded.Exp.(Verbatim).Text)

	// A backslash followed by the text "u2028" is not an escape and must
	// stay as written.
	raw := "keep \\u2028 raw"
	data, err = MarshalCanonical(New(Verbatim{Text: raw}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `\\u2028`)

	decoded, err = UnmarshalCanonical(data)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded.Exp.(Verbatim).Text)
}

func TestMarshalCanonicalFloats(t *testing.T) {
	data, err := MarshalCanonical(New(ExpPrim{Val: PrimDouble(1.5)}))
	require.NoError(t, err)
	assert.Contains(t, string(data), "1.5")

	data, err = MarshalCanonical(New(ExpPrim{Val: PrimDouble(2)}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"val":2`)

	_, err = MarshalCanonical(New(ExpPrim{Val: PrimDouble(math.NaN())}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite")

	_, err = MarshalCanonical(New(InitMacrosDouble{Name: "G", Def: math.Inf(1)}))
	require.Error(t, err)
}

func TestMarshalCanonicalNil(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
}

func TestUnmarshalCanonicalRoundTrip(t *testing.T) {
	original := compositeGraph()

	data, err := MarshalCanonical(original)
	require.NoError(t, err)

	decoded, err := UnmarshalCanonical(data)
	require.NoError(t, err)

	assert.True(t, original.Equal(decoded))
	assert.Equal(t, original.Hash(), decoded.Hash())

	// Serializing the decoded graph reproduces the bytes exactly.
	again, err := MarshalCanonical(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestUnmarshalCanonicalVariants(t *testing.T) {
	nodes := []*E{
		New(Empty{}),
		num(42),
		dbl(2.25),
		rawstr("table"),
		New(ExpPrim{Val: PrimInstr{Id: InstrFrac{Num: 3, Frac: 1}}}),
		New(ExpPrim{Val: PrimInstr{Id: InstrLabel("voice")}}),
		New(ExpPrim{Val: StrIndex(2)}),
		New(ConvertRate{To: Kr, From: FixedRate(Ar), Arg: Inlined(PrimVar{TargetRate: Ar, V: Var{Rate: Ar, Name: "sig"}})}),
		New(ConvertRate{To: Ir, Arg: Inlined(PrimInt(9))}),
		New(Select{Rate: Ar, Index: 1, Parent: Boxed(oscilCall())}),
		New(ExpBool{Val: BoolExp{Op: And, Args: []PrimOr{Inlined(PrimInt(1)), Inlined(PrimInt(0))}}}),
		New(ExpNum{Val: NumExp{Op: Pow, Args: []PrimOr{Inlined(PrimInt(2)), Inlined(PrimInt(10))}}}),
		New(InitArr{V: kvar("tbl"), Size: []PrimOr{Inlined(PrimInt(16))}}),
		New(ReadArr{V: kvar("tbl"), Index: []PrimOr{Inlined(PrimInt(3))}}),
		New(WriteInitArr{V: kvar("tbl"), Index: []PrimOr{Inlined(PrimInt(0))}, Val: Inlined(PrimInt(1))}),
		New(OpcodeArr{Init: true, Out: kvar("spec"), Info: oscilInfo(), Args: []PrimOr{Inlined(PField(5))}}),
		New(UntilBegin{Cond: lessCond(Inlined(PrimInt(0)), Inlined(PrimInt(10)))}).WithDep(Tagged(1)),
		New(UntilEnd{}).WithDep(Tagged(2)),
		New(WhileBegin{Cond: InlineSingle[CondOp, PrimOr](TrueOp)}).WithDep(Tagged(3)),
		New(WhileRefBegin{V: Var{Scope: LocalVar, Rate: Kr, Name: "go", Verbatim: true}}).WithDep(Tagged(4)),
		New(WhileEnd{}).WithDep(Tagged(5)),
		New(InitMacrosInt{Name: "N", Def: 8}),
		New(InitMacrosString{Name: "PATH", Def: "a.wav"}),
		New(ReadMacrosInt{Name: "N"}),
		New(ReadMacrosDouble{Name: "G"}),
	}

	for _, e := range nodes {
		name := KindOf(e.Exp).String()
		t.Run(name, func(t *testing.T) {
			data, err := MarshalCanonical(e)
			require.NoError(t, err)

			decoded, err := UnmarshalCanonical(data)
			require.NoError(t, err)
			assert.True(t, e.Equal(decoded), "round trip changed %s: %s", name, data)
		})
	}
}

func TestUnmarshalCanonicalErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"not json", "{", "parse graph JSON"},
		{"not an object", `[1,2]`, "expected object"},
		{"missing exp", `{"rate":"a"}`, `missing field "exp"`},
		{"unknown kind", `{"exp":{"op":"warble"}}`, "unknown expression kind"},
		{"unknown rate", `{"rate":"q","exp":{"op":"empty"}}`, "unknown rate letter"},
		{"float dep", `{"dep":1.5,"exp":{"op":"empty"}}`, "expected integer"},
		{"prim missing val", `{"exp":{"op":"prim","val":{"kind":"int"}}}`, `missing field "val"`},
		{"bad slot", `{"exp":{"op":"seq","a":{},"b":{"prim":{"kind":"int","val":1}}}}`, "neither"},
		{"bad scope", `{"exp":{"op":"read_var","var":{"scope":"shared","rate":"k","name":"x"}}}`, "unknown scope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCanonical([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGraphID(t *testing.T) {
	a := compositeGraph()
	b := compositeGraph()

	idA, err := GraphID(a)
	require.NoError(t, err)
	idB, err := GraphID(b)
	require.NoError(t, err)

	assert.Equal(t, idA, idB)
	assert.Len(t, idA, 64)
	assert.Equal(t, strings.ToLower(idA), idA)

	other, err := GraphID(num(1))
	require.NoError(t, err)
	assert.NotEqual(t, idA, other)
}

func TestGraphIDRepresentationInvariant(t *testing.T) {
	inlined := oscilCall(Inlined(PrimInt(440)))
	boxed := oscilCall(Boxed(num(440)))

	assert.Equal(t, MustGraphID(inlined), MustGraphID(boxed))
}

func TestMustGraphIDPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustGraphID(New(ExpPrim{Val: PrimDouble(math.NaN())}))
	})
}
