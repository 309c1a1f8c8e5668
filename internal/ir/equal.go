package ir

import "slices"

// Equal reports exact structural equality: rate tag, dependency tag, and
// payload must all match. Child slots compare through the PrimOr normal
// form, so an inlined primitive equals the boxed bare node holding the
// same primitive. Consistent with Hash: equal nodes always hash equal.
func (e *E) Equal(o *E) bool {
	if e == o {
		return true
	}
	if e == nil || o == nil {
		return false
	}
	if e.Rate != o.Rate || e.Dep != o.Dep {
		return false
	}
	return expEqual(e.Exp, o.Exp)
}

// EqualPrimOr compares two child slots through the normal form.
func EqualPrimOr(a, b PrimOr) bool {
	a, b = normPrimOr(a), normPrimOr(b)
	if a.IsInlined() != b.IsInlined() {
		return false
	}
	if a.IsInlined() {
		return a.Prim == b.Prim
	}
	return a.Node.Equal(b.Node)
}

func slotsEqual(a, b []PrimOr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualPrimOr(a[i], b[i]) {
			return false
		}
	}
	return true
}

func inlineTreeEqual(a, b InlineExp[CondOp]) bool {
	if a.IsOp != b.IsOp {
		return false
	}
	if !a.IsOp {
		return a.Ref == b.Ref
	}
	if a.Op != b.Op || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !inlineTreeEqual(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

func condEqual(a, b CondInfo) bool {
	if !inlineTreeEqual(a.Exp, b.Exp) {
		return false
	}
	if len(a.Env) != len(b.Env) {
		return false
	}
	for k, av := range a.Env {
		bv, ok := b.Env[k]
		if !ok || !EqualPrimOr(av, bv) {
			return false
		}
	}
	return true
}

// EqualSignature compares signatures structurally. Unlike hashing, which
// samples only a prefix of each rate list, equality always compares the
// full lists.
func EqualSignature(a, b Signature) bool {
	switch av := a.(type) {
	case SingleRate:
		bv, ok := b.(SingleRate)
		if !ok || len(av) != len(bv) {
			return false
		}
		for r, args := range av {
			bargs, ok := bv[r]
			if !ok || !slices.Equal(args, bargs) {
				return false
			}
		}
		return true
	case MultiRate:
		bv, ok := b.(MultiRate)
		if !ok {
			return false
		}
		return slices.Equal(av.Outs, bv.Outs) && slices.Equal(av.Ins, bv.Ins)
	default:
		return a == nil && b == nil
	}
}

// EqualInfo compares operation metadata structurally.
func EqualInfo(a, b Info) bool {
	return a.Name == b.Name && a.Fixity == b.Fixity && EqualSignature(a.Sig, b.Sig)
}

// expEqual dispatches payload equality by variant. Distinct variants are
// never equal; within a variant, auxiliary fields compare directly and
// child slots compare through EqualPrimOr.
func expEqual(a, b Exp) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}
	switch av := a.(type) {
	case Empty, ElseBegin, IfEnd, UntilEnd, WhileEnd, Starts:
		return true
	case ExpPrim:
		return av.Val == b.(ExpPrim).Val
	case Opcode:
		bv := b.(Opcode)
		return EqualInfo(av.Info, bv.Info) && slotsEqual(av.Args, bv.Args)
	case ConvertRate:
		bv := b.(ConvertRate)
		return av.To == bv.To && av.From == bv.From && EqualPrimOr(av.Arg, bv.Arg)
	case Select:
		bv := b.(Select)
		return av.Rate == bv.Rate && av.Index == bv.Index && EqualPrimOr(av.Parent, bv.Parent)
	case If:
		bv := b.(If)
		return condEqual(av.Cond, bv.Cond) && EqualPrimOr(av.Then, bv.Then) && EqualPrimOr(av.Else, bv.Else)
	case ExpBool:
		bv := b.(ExpBool)
		return av.Val.Op == bv.Val.Op && slotsEqual(av.Val.Args, bv.Val.Args)
	case ExpNum:
		bv := b.(ExpNum)
		return av.Val.Op == bv.Val.Op && slotsEqual(av.Val.Args, bv.Val.Args)
	case InitVar:
		bv := b.(InitVar)
		return av.V == bv.V && EqualPrimOr(av.Val, bv.Val)
	case ReadVar:
		return av.V == b.(ReadVar).V
	case WriteVar:
		bv := b.(WriteVar)
		return av.V == bv.V && EqualPrimOr(av.Val, bv.Val)
	case InitArr:
		bv := b.(InitArr)
		return av.V == bv.V && slotsEqual(av.Size, bv.Size)
	case ReadArr:
		bv := b.(ReadArr)
		return av.V == bv.V && slotsEqual(av.Index, bv.Index)
	case WriteArr:
		bv := b.(WriteArr)
		return av.V == bv.V && slotsEqual(av.Index, bv.Index) && EqualPrimOr(av.Val, bv.Val)
	case WriteInitArr:
		bv := b.(WriteInitArr)
		return av.V == bv.V && slotsEqual(av.Index, bv.Index) && EqualPrimOr(av.Val, bv.Val)
	case OpcodeArr:
		bv := b.(OpcodeArr)
		return av.Init == bv.Init && av.Out == bv.Out &&
			EqualInfo(av.Info, bv.Info) && slotsEqual(av.Args, bv.Args)
	case Verbatim:
		return av.Text == b.(Verbatim).Text
	case IfBegin:
		return condEqual(av.Cond, b.(IfBegin).Cond)
	case UntilBegin:
		return condEqual(av.Cond, b.(UntilBegin).Cond)
	case WhileBegin:
		return condEqual(av.Cond, b.(WhileBegin).Cond)
	case WhileRefBegin:
		return av.V == b.(WhileRefBegin).V
	case Seq:
		bv := b.(Seq)
		return EqualPrimOr(av.A, bv.A) && EqualPrimOr(av.B, bv.B)
	case Ends:
		return EqualPrimOr(av.A, b.(Ends).A)
	case InitMacrosInt:
		bv := b.(InitMacrosInt)
		return av.Name == bv.Name && av.Def == bv.Def
	case InitMacrosDouble:
		bv := b.(InitMacrosDouble)
		return av.Name == bv.Name && av.Def == bv.Def
	case InitMacrosString:
		bv := b.(InitMacrosString)
		return av.Name == bv.Name && av.Def == bv.Def
	case ReadMacrosInt:
		return av.Name == b.(ReadMacrosInt).Name
	case ReadMacrosDouble:
		return av.Name == b.(ReadMacrosDouble).Name
	case ReadMacrosString:
		return av.Name == b.(ReadMacrosString).Name
	default:
		return false
	}
}
