package ir

// VarScope distinguishes instrument-local from orchestra-global variables.
type VarScope int

const (
	// LocalVar is visible only inside the instrument that declares it.
	LocalVar VarScope = iota
	// GlobalVar is shared across the whole orchestra.
	GlobalVar
)

// String returns the scope prefix used in decorated variable names: global
// variables carry a leading "g", locals carry nothing.
func (s VarScope) String() string {
	if s == GlobalVar {
		return "g"
	}
	return ""
}

// Var identifies a variable slot. Scope, rate, and name together are the
// identity; two Vars are the same slot exactly when all fields are equal.
//
// A verbatim Var bypasses name decoration entirely: Name is emitted as
// written, with no scope prefix or rate letter. It carries text from the
// source program that already follows the target language's conventions.
type Var struct {
	Scope    VarScope
	Rate     Rate
	Name     string
	Verbatim bool
}

// String returns the decorated variable name: scope prefix, rate letter,
// then the bare name. Verbatim variables return Name unchanged.
func (v Var) String() string {
	if v.Verbatim {
		return v.Name
	}
	return v.Scope.String() + v.Rate.String() + v.Name
}
