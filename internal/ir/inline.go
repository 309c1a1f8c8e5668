package ir

import "fmt"

// InlineExp is an operator tree whose leaves are references into an
// environment. Keeping operator structure separate from the referenced
// values lets one tree shape be shared by conditions and numeric
// expressions alike, and keeps the values hashable independently of the
// tree.
//
// A node is either an operator application (IsOp true, Op and Args set) or
// a leaf (IsOp false, Ref indexes the environment).
type InlineExp[Op comparable] struct {
	IsOp bool
	Op   Op
	Args []InlineExp[Op]
	Ref  int
}

// InlineLeaf returns a leaf referencing environment slot ref.
func InlineLeaf[Op comparable](ref int) InlineExp[Op] {
	return InlineExp[Op]{Ref: ref}
}

// InlineOp returns an operator application.
func InlineOp[Op comparable](op Op, args ...InlineExp[Op]) InlineExp[Op] {
	return InlineExp[Op]{IsOp: true, Op: op, Args: args}
}

// Inline pairs an operator tree with the environment its leaves reference.
type Inline[Op comparable, T any] struct {
	Exp InlineExp[Op]
	Env map[int]T
}

// PreInline is a single operator application over direct arguments, the
// flat form used while an expression is being assembled. Lift converts it
// to the general form.
type PreInline[Op comparable, T any] struct {
	Op   Op
	Args []T
}

// Lift converts the flat form to an Inline with one leaf per argument.
func (p PreInline[Op, T]) Lift() Inline[Op, T] {
	args := make([]InlineExp[Op], len(p.Args))
	env := make(map[int]T, len(p.Args))
	for i, a := range p.Args {
		args[i] = InlineLeaf[Op](i)
		env[i] = a
	}
	return Inline[Op, T]{Exp: InlineOp(p.Op, args...), Env: env}
}

// InlineSingle builds an Inline applying op directly to args.
func InlineSingle[Op comparable, T any](op Op, args ...T) Inline[Op, T] {
	return PreInline[Op, T]{Op: op, Args: args}.Lift()
}

// CondOp enumerates boolean operators for conditions.
type CondOp int

const (
	TrueOp CondOp = iota
	FalseOp
	And
	Or
	Equals
	NotEquals
	Less
	Greater
	LessEquals
	GreaterEquals
)

var condOpNames = [...]string{
	"true", "false", "and", "or", "eq", "ne", "lt", "gt", "le", "ge",
}

func (op CondOp) String() string {
	if op < TrueOp || op > GreaterEquals {
		return fmt.Sprintf("CondOp(%d)", int(op))
	}
	return condOpNames[op]
}

// ParseCondOp maps a canonical operator name back to its CondOp.
func ParseCondOp(s string) (CondOp, error) {
	for i, n := range condOpNames {
		if s == n {
			return CondOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown condition operator %q", s)
}

// NumOp enumerates numeric operators.
type NumOp int

const (
	Add NumOp = iota
	Sub
	Neg
	Mul
	Div
	Pow
	Mod
)

var numOpNames = [...]string{"add", "sub", "neg", "mul", "div", "pow", "mod"}

func (op NumOp) String() string {
	if op < Add || op > Mod {
		return fmt.Sprintf("NumOp(%d)", int(op))
	}
	return numOpNames[op]
}

// ParseNumOp maps a canonical operator name back to its NumOp.
func ParseNumOp(s string) (NumOp, error) {
	for i, n := range numOpNames {
		if s == n {
			return NumOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown numeric operator %q", s)
}

// CondInfo is the condition form carried by If expressions and loop
// headers.
type CondInfo = Inline[CondOp, PrimOr]

// BoolExp is a flat boolean application over argument slots.
type BoolExp = PreInline[CondOp, PrimOr]

// NumExp is a flat numeric application over argument slots.
type NumExp = PreInline[NumOp, PrimOr]
