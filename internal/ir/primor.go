package ir

// PrimOr is a child slot: either an inlined primitive or a boxed node
// reference, never both. The zero value is invalid; slots are produced by
// the ToPrimOr policy functions or by wrapping a node explicitly.
//
// Only dependency-free primitives and variable reads may be inlined. A
// slot holding a boxed bare primitive compares and hashes equal to the
// inlined form of the same primitive.
type PrimOr struct {
	Prim Prim
	Node *E
}

// Inlined wraps a primitive as an inlined slot.
func Inlined(p Prim) PrimOr {
	return PrimOr{Prim: p}
}

// Boxed wraps a node as a boxed slot.
func Boxed(e *E) PrimOr {
	return PrimOr{Node: e}
}

// IsInlined reports whether the slot holds an inlined primitive.
func (p PrimOr) IsInlined() bool {
	return p.Prim != nil
}

// ToPrimOr decides how a use site should hold the node e:
//
//  1. A string constant never inlines. The target format bounds how many
//     raw string literals a unit of code may carry, so strings route
//     through the shared string table and stay visible as nodes.
//  2. Any other primitive constant inlines unconditionally.
//  3. A variable read with no dependency tag inlines as a rate-tagged
//     variable reference. It has no side effect to order. A tagged read
//     stays boxed so its position in the statement order survives.
//  4. Everything else stays a boxed node reference.
func ToPrimOr(e *E) PrimOr {
	switch x := e.Exp.(type) {
	case ExpPrim:
		if _, isStr := x.Val.(PrimString); !isStr {
			return Inlined(x.Val)
		}
	case ReadVar:
		if !e.Dep.Valid {
			return Inlined(PrimVar{TargetRate: x.V.Rate, V: x.V})
		}
	}
	return Boxed(e)
}

// ToPrimOrRate is the rate-aware form of ToPrimOr, used where the value is
// consumed at the given target rate through a rate conversion. Converting
// into init rate or string rate is a no-op, so non-string primitive
// constants bypass the conversion and inline there; at any other target
// rate they stay boxed so the conversion node remains visible. Variable
// reads inline exactly as in ToPrimOr regardless of target rate, with the
// reference tagged at the target.
func ToPrimOrRate(target Rate, e *E) PrimOr {
	switch x := e.Exp.(type) {
	case ExpPrim:
		if _, isStr := x.Val.(PrimString); !isStr && (target == Ir || target == Sr) {
			return Inlined(x.Val)
		}
	case ReadVar:
		if !e.Dep.Valid {
			return Inlined(PrimVar{TargetRate: target, V: x.V})
		}
	}
	return Boxed(e)
}

// normPrimOr is the slot normal form used by equality and hashing: a boxed
// node that is nothing but a bare dependency-free, rate-unresolved
// primitive collapses to the inlined representation. Strings are exempt,
// matching the inlining policy.
func normPrimOr(p PrimOr) PrimOr {
	if p.Node == nil || p.Node.Rate.Valid || p.Node.Dep.Valid {
		return p
	}
	if x, ok := p.Node.Exp.(ExpPrim); ok {
		if _, isStr := x.Val.(PrimString); !isStr {
			return Inlined(x.Val)
		}
	}
	return p
}
