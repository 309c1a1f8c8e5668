package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// InstrId is a sealed interface over the three ways an instrument can be
// identified: a plain number, a fractional number, or a named label. Only
// InstrNum, InstrFrac, and InstrLabel implement it.
//
// Every variant is comparable, so InstrId values can key maps directly.
type InstrId interface {
	instrId() // Sealed - only these types implement it
	String() string
}

// InstrNum identifies an instrument by integer number.
type InstrNum int

func (InstrNum) instrId() {}

func (n InstrNum) String() string {
	return strconv.Itoa(int(n))
}

// InstrFrac identifies a specific instance of a numbered instrument. The
// fractional suffix addresses one running instance for targeted events.
type InstrFrac struct {
	Num  int
	Frac int
}

func (InstrFrac) instrId() {}

func (f InstrFrac) String() string {
	return fmt.Sprintf("%d.%d", f.Num, f.Frac)
}

// InstrLabel identifies an instrument by name.
type InstrLabel string

func (InstrLabel) instrId() {}

func (l InstrLabel) String() string {
	return string(l)
}

// instrRank orders the identifier forms for CompareInstrId: all numbers
// before all fractional forms before all labels.
func instrRank(id InstrId) int {
	switch id.(type) {
	case InstrNum:
		return 0
	case InstrFrac:
		return 1
	default:
		return 2
	}
}

// CompareInstrId is a total order over instrument identifiers, used when an
// instrument table must serialize in a deterministic sequence. Numbers sort
// before fractional forms, fractional forms before labels; within each form
// the natural order applies.
func CompareInstrId(a, b InstrId) int {
	ra, rb := instrRank(a), instrRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case InstrNum:
		return int(av) - int(b.(InstrNum))
	case InstrFrac:
		bv := b.(InstrFrac)
		if av.Num != bv.Num {
			return av.Num - bv.Num
		}
		return av.Frac - bv.Frac
	default:
		return strings.Compare(string(a.(InstrLabel)), string(b.(InstrLabel)))
	}
}
