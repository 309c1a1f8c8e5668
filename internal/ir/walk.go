package ir

import "slices"

// envKeys returns the environment's reference indices in ascending order.
// Every traversal of an inline environment goes through this so that
// enumeration order is deterministic.
func envKeys(env map[int]PrimOr) []int {
	keys := make([]int, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// envSlots appends the environment's slots in key order.
func envSlots(dst []PrimOr, env map[int]PrimOr) []PrimOr {
	for _, k := range envKeys(env) {
		dst = append(dst, env[k])
	}
	return dst
}

// Slots returns the payload's child slots in canonical order: inline
// environments first (ascending reference index), then positional slots
// left to right. Variants without children return nil. The order is the
// one traversal, equality, and hashing all observe.
func Slots(x Exp) []PrimOr {
	switch v := x.(type) {
	case Opcode:
		return slices.Clone(v.Args)
	case ConvertRate:
		return []PrimOr{v.Arg}
	case Select:
		return []PrimOr{v.Parent}
	case If:
		s := envSlots(nil, v.Cond.Env)
		return append(s, v.Then, v.Else)
	case ExpBool:
		return slices.Clone(v.Val.Args)
	case ExpNum:
		return slices.Clone(v.Val.Args)
	case InitVar:
		return []PrimOr{v.Val}
	case WriteVar:
		return []PrimOr{v.Val}
	case InitArr:
		return slices.Clone(v.Size)
	case ReadArr:
		return slices.Clone(v.Index)
	case WriteArr:
		return append(slices.Clone(v.Index), v.Val)
	case WriteInitArr:
		return append(slices.Clone(v.Index), v.Val)
	case OpcodeArr:
		return slices.Clone(v.Args)
	case IfBegin:
		return envSlots(nil, v.Cond.Env)
	case UntilBegin:
		return envSlots(nil, v.Cond.Env)
	case WhileBegin:
		return envSlots(nil, v.Cond.Env)
	case Seq:
		return []PrimOr{v.A, v.B}
	case Ends:
		return []PrimOr{v.A}
	default:
		return nil
	}
}

// mapEnv copies an inline environment with every slot transformed.
func mapEnv(env map[int]PrimOr, f func(PrimOr) PrimOr) map[int]PrimOr {
	out := make(map[int]PrimOr, len(env))
	for k, v := range env {
		out[k] = f(v)
	}
	return out
}

// mapCond copies a condition with every environment slot transformed. The
// operator tree is shared; only the environment changes.
func mapCond(c CondInfo, f func(PrimOr) PrimOr) CondInfo {
	return CondInfo{Exp: c.Exp, Env: mapEnv(c.Env, f)}
}

func mapSlice(args []PrimOr, f func(PrimOr) PrimOr) []PrimOr {
	out := make([]PrimOr, len(args))
	for i, a := range args {
		out[i] = f(a)
	}
	return out
}

// MapSlots rebuilds the payload with every child slot transformed by f,
// visiting slots in the same order Slots enumerates them. Variants without
// children are returned unchanged. Auxiliary fields (names, rates,
// indices, opcode metadata) always carry over untouched.
func MapSlots(x Exp, f func(PrimOr) PrimOr) Exp {
	switch v := x.(type) {
	case Opcode:
		return Opcode{Info: v.Info, Args: mapSlice(v.Args, f)}
	case ConvertRate:
		return ConvertRate{To: v.To, From: v.From, Arg: f(v.Arg)}
	case Select:
		return Select{Rate: v.Rate, Index: v.Index, Parent: f(v.Parent)}
	case If:
		return If{Cond: mapCond(v.Cond, f), Then: f(v.Then), Else: f(v.Else)}
	case ExpBool:
		return ExpBool{Val: BoolExp{Op: v.Val.Op, Args: mapSlice(v.Val.Args, f)}}
	case ExpNum:
		return ExpNum{Val: NumExp{Op: v.Val.Op, Args: mapSlice(v.Val.Args, f)}}
	case InitVar:
		return InitVar{V: v.V, Val: f(v.Val)}
	case WriteVar:
		return WriteVar{V: v.V, Val: f(v.Val)}
	case InitArr:
		return InitArr{V: v.V, Size: mapSlice(v.Size, f)}
	case ReadArr:
		return ReadArr{V: v.V, Index: mapSlice(v.Index, f)}
	case WriteArr:
		return WriteArr{V: v.V, Index: mapSlice(v.Index, f), Val: f(v.Val)}
	case WriteInitArr:
		return WriteInitArr{V: v.V, Index: mapSlice(v.Index, f), Val: f(v.Val)}
	case OpcodeArr:
		return OpcodeArr{Init: v.Init, Out: v.Out, Info: v.Info, Args: mapSlice(v.Args, f)}
	case IfBegin:
		return IfBegin{Cond: mapCond(v.Cond, f)}
	case UntilBegin:
		return UntilBegin{Cond: mapCond(v.Cond, f)}
	case WhileBegin:
		return WhileBegin{Cond: mapCond(v.Cond, f)}
	case Seq:
		return Seq{A: f(v.A), B: f(v.B)}
	case Ends:
		return Ends{A: f(v.A)}
	default:
		return x
	}
}
