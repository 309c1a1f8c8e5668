package ir

import "fmt"

// Fixity records how an operation is written in the target language. The
// IR stores it and passes it through; only the render layer interprets it.
type Fixity int

const (
	// FixityOpcode is the statement form: outputs, name, arguments.
	FixityOpcode Fixity = iota
	// FixityPrefix is the function-call form: name(arguments).
	FixityPrefix
	// FixityInfix is the binary operator form.
	FixityInfix
)

var fixityNames = [...]string{"opcode", "prefix", "infix"}

func (f Fixity) String() string {
	if f < FixityOpcode || f > FixityInfix {
		return fmt.Sprintf("Fixity(%d)", int(f))
	}
	return fixityNames[f]
}

// ParseFixity maps a fixity name back to its Fixity.
func ParseFixity(s string) (Fixity, error) {
	for i, n := range fixityNames {
		if s == n {
			return Fixity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown fixity %q", s)
}

// Signature is a sealed interface over the two shapes an operation's rate
// signature can take. Only SingleRate and MultiRate implement it.
//
// The IR stores and compares signatures; it never checks arguments against
// them. Validation against a signature database happens outside the core.
type Signature interface {
	signature() // Sealed - only these types implement it
}

// SingleRate describes a single-output operation: for each output rate the
// operation supports, the rates its arguments must have. An x entry in an
// argument list accepts any concrete rate.
type SingleRate map[Rate][]Rate

func (SingleRate) signature() {}

// OutRates returns the supported output rates in canonical rate order.
func (s SingleRate) OutRates() []Rate {
	rates := make([]Rate, 0, len(s))
	for r := Ar; r <= Xr; r++ {
		if _, ok := s[r]; ok {
			rates = append(rates, r)
		}
	}
	return rates
}

// MultiRate describes a multi-output operation with fixed output and input
// rate lists. Multi-output operations are rate-uniform: they offer exactly
// one rate per channel, never a choice.
type MultiRate struct {
	Outs []Rate
	Ins  []Rate
}

func (MultiRate) signature() {}

// Info is the metadata the IR carries for every operation it references:
// the target-language name, the rate signature, and the fixity. Info is
// opaque to the core; it influences equality and hashing but is never
// interpreted.
type Info struct {
	Name   string
	Sig    Signature
	Fixity Fixity
}
