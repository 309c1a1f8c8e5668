package ir

import (
	"fmt"
	"strconv"
)

// Prim is a sealed interface over the primitive constants that can sit
// directly in an argument slot without allocating a node. Only PField,
// StrIndex, PrimInt, PrimDouble, PrimString, PrimInstr, and PrimVar
// implement it.
//
// Every variant is comparable, so == on two Prim values is exact
// structural equality.
type Prim interface {
	prim() // Sealed - only these types implement it
}

// PField references a score parameter field by index (p4, p5, ...).
// The value is only known when an event instantiates the instrument.
type PField int

func (PField) prim() {}

func (p PField) String() string {
	return fmt.Sprintf("p%d", int(p))
}

// StrIndex references an entry in the shared string table by index.
type StrIndex int

func (StrIndex) prim() {}

func (s StrIndex) String() string {
	return fmt.Sprintf("str#%d", int(s))
}

// PrimInt is an integer literal.
type PrimInt int

func (PrimInt) prim() {}

func (p PrimInt) String() string {
	return strconv.Itoa(int(p))
}

// PrimDouble is a floating point literal.
type PrimDouble float64

func (PrimDouble) prim() {}

// String formats the literal in the shortest form that parses back to the
// same value.
func (p PrimDouble) String() string {
	return strconv.FormatFloat(float64(p), 'g', -1, 64)
}

// PrimString is a raw string literal. Unlike the other prims it never
// inlines into an argument slot: the render layer decides how string
// constants reach the target, so they must stay visible as nodes.
type PrimString string

func (PrimString) prim() {}

func (p PrimString) String() string {
	return strconv.Quote(string(p))
}

// PrimInstr references an instrument by identifier.
type PrimInstr struct {
	Id InstrId
}

func (PrimInstr) prim() {}

func (p PrimInstr) String() string {
	return p.Id.String()
}

// PrimVar is an inlined variable reference. TargetRate records the rate the
// surrounding expression consumes the variable at; V.Rate is the rate the
// variable itself carries. The two differ only across an implicit
// conversion.
type PrimVar struct {
	TargetRate Rate
	V          Var
}

func (PrimVar) prim() {}

func (p PrimVar) String() string {
	return p.V.String()
}
