package ir

import "fmt"

// Rate classifies how often a signal is recomputed by the audio engine.
// The enumeration is closed: exactly these eight rates exist.
//
// The declaration order is the canonical total order. It runs from the
// fastest concrete rate (audio) down through control and init time to the
// spectral rates, with Xr last for statements that produce no value.
// Deterministic serialization and rate unification both rely on this order.
type Rate int

const (
	// Ar is audio rate: recomputed every sample.
	Ar Rate = iota
	// Kr is control rate: recomputed every control block.
	Kr
	// Ir is init rate: computed once at instrument initialization.
	Ir
	// Sr is string rate: string values, fixed at init.
	Sr
	// Fr is spectral rate: streaming frequency-domain frames.
	Fr
	// Wr is the legacy spectral rate.
	Wr
	// Tvar is the spectral variant rate used by type-tracked analysis chains.
	Tvar
	// Xr marks procedures: statements that produce no output value.
	Xr
)

// rateLetters maps each Rate to the single-letter name used in the target
// language and in all serialized forms. Index order matches the enum.
var rateLetters = [...]string{"a", "k", "i", "S", "f", "w", "t", "x"}

// String returns the target-language letter for the rate.
func (r Rate) String() string {
	if r < Ar || r > Xr {
		return fmt.Sprintf("Rate(%d)", int(r))
	}
	return rateLetters[r]
}

// ParseRate maps a rate letter back to its Rate. It accepts exactly the
// eight letters produced by String.
func ParseRate(s string) (Rate, error) {
	for i, l := range rateLetters {
		if s == l {
			return Rate(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rate letter %q", s)
}

// MinRate returns the earlier of two rates in the canonical order. Rate
// unification picks the fastest participant, and the enum is ordered
// fastest first, so unification is a fold of MinRate.
func MinRate(a, b Rate) Rate {
	if a < b {
		return a
	}
	return b
}

// OptRate is a rate that may be unresolved. The zero value is unresolved.
// Nodes carry OptRate so graphs can be built before inference runs; the
// verify pass rejects any unresolved rate that survives to the boundary.
type OptRate struct {
	Rate  Rate
	Valid bool
}

// FixedRate returns a resolved OptRate.
func FixedRate(r Rate) OptRate {
	return OptRate{Rate: r, Valid: true}
}

// String returns the rate letter, or "?" while unresolved.
func (o OptRate) String() string {
	if !o.Valid {
		return "?"
	}
	return o.Rate.String()
}
