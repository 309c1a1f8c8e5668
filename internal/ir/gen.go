package ir

import "strconv"

// GenId is a sealed interface over function-table generator identifiers:
// the classic numbered GEN routines and named generators. Only GenNum and
// GenName implement it.
type GenId interface {
	genId() // Sealed - only these types implement it
	String() string
}

// GenNum identifies a numbered GEN routine. A negative number requests the
// routine without post-normalization, which is meaningful to the engine and
// preserved as written.
type GenNum int

func (GenNum) genId() {}

func (n GenNum) String() string {
	return strconv.Itoa(int(n))
}

// GenName identifies a named generator.
type GenName string

func (GenName) genId() {}

func (n GenName) String() string {
	return string(n)
}

// Gen describes a function table request. The IR carries it verbatim: Size,
// generator arguments, and the optional file reference pass through to the
// engine without interpretation.
type Gen struct {
	Size int
	Id   GenId
	Args []float64
	File string
}
