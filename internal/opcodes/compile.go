package opcodes

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/sigil-audio/sigil/internal/ir"
)

// Compile parses a CUE document into a signature table.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value should be the root of a document with an opcodes struct:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`opcodes: oscil: { single: { a: ["x","x","i"] } }`)
//	table, err := Compile(v)
func Compile(v cue.Value) (*Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	opsVal := v.LookupPath(cue.ParsePath("opcodes"))
	if !opsVal.Exists() {
		return nil, &CompileError{
			Field:   "opcodes",
			Message: "opcodes section is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := opsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	infos := make(map[string]ir.Info)
	for iter.Next() {
		// Selector().Unquoted() handles operator names like "^" that
		// CUE requires to be quoted labels.
		name := iter.Selector().Unquoted()
		info, err := compileEntry(name, iter.Value())
		if err != nil {
			return nil, err
		}
		infos[name] = info
	}

	return &Table{infos: infos}, nil
}

// compileEntry parses one opcode declaration. Exactly one of the single or
// multi signature forms must be present.
func compileEntry(name string, v cue.Value) (ir.Info, error) {
	field := "opcodes." + name
	info := ir.Info{Name: name}

	fixityVal := v.LookupPath(cue.ParsePath("fixity"))
	if fixityVal.Exists() {
		s, err := fixityVal.String()
		if err != nil {
			return ir.Info{}, formatCUEError(err)
		}
		fixity, err := ir.ParseFixity(s)
		if err != nil {
			return ir.Info{}, &CompileError{
				Field:   field + ".fixity",
				Message: err.Error(),
				Pos:     fixityVal.Pos(),
			}
		}
		info.Fixity = fixity
	}

	singleVal := v.LookupPath(cue.ParsePath("single"))
	multiVal := v.LookupPath(cue.ParsePath("multi"))
	switch {
	case singleVal.Exists() && multiVal.Exists():
		return ir.Info{}, &CompileError{
			Field:   field,
			Message: "give either single or multi, not both",
			Pos:     v.Pos(),
		}
	case singleVal.Exists():
		sig, err := compileSingle(field, singleVal)
		if err != nil {
			return ir.Info{}, err
		}
		info.Sig = sig
	case multiVal.Exists():
		sig, err := compileMulti(field, multiVal)
		if err != nil {
			return ir.Info{}, err
		}
		info.Sig = sig
	default:
		return ir.Info{}, &CompileError{
			Field:   field,
			Message: "a single or multi signature is required",
			Pos:     v.Pos(),
		}
	}

	return info, nil
}

// compileSingle parses the per-out-rate form: keys are out-rate letters,
// values list the in rates accepted when producing that out rate.
func compileSingle(field string, v cue.Value) (ir.SingleRate, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	sig := make(ir.SingleRate)
	for iter.Next() {
		letter := iter.Selector().Unquoted()
		out, err := ir.ParseRate(letter)
		if err != nil {
			return nil, &CompileError{
				Field:   field + ".single",
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		ins, err := compileRates(fmt.Sprintf("%s.single.%s", field, letter), iter.Value())
		if err != nil {
			return nil, err
		}
		sig[out] = ins
	}
	if len(sig) == 0 {
		return nil, &CompileError{
			Field:   field + ".single",
			Message: "at least one out rate is required",
			Pos:     v.Pos(),
		}
	}
	return sig, nil
}

// compileMulti parses the fixed-shape form with explicit out and in lists.
func compileMulti(field string, v cue.Value) (ir.MultiRate, error) {
	outsVal := v.LookupPath(cue.ParsePath("outs"))
	if !outsVal.Exists() {
		return ir.MultiRate{}, &CompileError{
			Field:   field + ".multi",
			Message: "outs is required",
			Pos:     v.Pos(),
		}
	}
	outs, err := compileRates(field+".multi.outs", outsVal)
	if err != nil {
		return ir.MultiRate{}, err
	}

	insVal := v.LookupPath(cue.ParsePath("ins"))
	if !insVal.Exists() {
		return ir.MultiRate{}, &CompileError{
			Field:   field + ".multi",
			Message: "ins is required",
			Pos:     v.Pos(),
		}
	}
	ins, err := compileRates(field+".multi.ins", insVal)
	if err != nil {
		return ir.MultiRate{}, err
	}

	return ir.MultiRate{Outs: outs, Ins: ins}, nil
}

func compileRates(field string, v cue.Value) ([]ir.Rate, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rates []ir.Rate
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		r, err := ir.ParseRate(s)
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		rates = append(rates, r)
	}
	return rates, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
