// Package infer resolves the rate of every node in a graph.
//
// Nodes are built either pre-rated or with the rate left open. This pass
// fills in the open ones: primitives default by kind, variable reads take
// the variable's rate, opcode calls consult their signature, and value
// expressions with several children take the fastest child rate. Statements
// and ordering markers resolve to the any-rate marker.
//
// The pass never mutates its input. It returns a parallel graph in which
// every node carries a fixed rate; aliased children are resolved once and
// stay shared in the output.
package infer

import (
	"fmt"
	"log/slog"

	"github.com/sigil-audio/sigil/internal/ir"
	"github.com/sigil-audio/sigil/internal/opcodes"
)

// UnknownOpcodeError reports an opcode call whose signature is neither
// attached to the node nor found in the table.
type UnknownOpcodeError struct {
	Name string
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode %q: no signature attached or in table", e.Name)
}

// Resolve returns a copy of the graph in which every node carries a fixed
// rate. Rates set at construction are kept. The table supplies signatures
// for opcode nodes that carry a bare name; it may be nil when every call
// site has its signature attached.
func Resolve(e *ir.E, table *opcodes.Table) (*ir.E, error) {
	r := &resolver{table: table, memo: make(map[*ir.E]*ir.E)}
	out, err := r.node(e)
	if err != nil {
		return nil, err
	}
	slog.Debug("rates resolved", "nodes", len(r.memo))
	return out, nil
}

type resolver struct {
	table *opcodes.Table
	memo  map[*ir.E]*ir.E
}

func (r *resolver) node(e *ir.E) (*ir.E, error) {
	if e == nil {
		return nil, nil
	}
	if done, ok := r.memo[e]; ok {
		return done, nil
	}

	// Children first: the rate rules below read resolved child rates.
	var slotErr error
	exp := ir.MapSlots(e.Exp, func(s ir.PrimOr) ir.PrimOr {
		if slotErr != nil || s.IsInlined() {
			return s
		}
		n, err := r.node(s.Node)
		if err != nil {
			slotErr = err
			return s
		}
		return ir.Boxed(n)
	})
	if slotErr != nil {
		return nil, slotErr
	}

	rate := e.Rate
	if !rate.Valid {
		resolved, err := r.rateOf(exp)
		if err != nil {
			return nil, err
		}
		rate = ir.FixedRate(resolved)
	}

	out := &ir.E{Rate: rate, Dep: e.Dep, Exp: exp}
	r.memo[e] = out
	return out, nil
}

func (r *resolver) rateOf(x ir.Exp) (ir.Rate, error) {
	switch v := x.(type) {
	case ir.ExpPrim:
		return primRate(v.Val), nil
	case ir.ReadVar:
		return v.V.Rate, nil
	case ir.ReadArr:
		return v.V.Rate, nil
	case ir.Opcode:
		return r.opcodeRate(v.Info)
	case ir.ConvertRate:
		return v.To, nil
	case ir.Select:
		return v.Rate, nil
	case ir.If:
		// The condition does not contribute: the value produced is one
		// of the two branches.
		return minSlotRate(v.Then, v.Else), nil
	case ir.ExpBool:
		return minSlotRate(v.Val.Args...), nil
	case ir.ExpNum:
		return minSlotRate(v.Val.Args...), nil
	case ir.ReadMacrosInt:
		return ir.Ir, nil
	case ir.ReadMacrosDouble:
		return ir.Ir, nil
	case ir.ReadMacrosString:
		return ir.Sr, nil
	default:
		// Statements, blocks, ordering markers, raw text.
		return ir.Xr, nil
	}
}

// opcodeRate picks the fastest out rate the signature offers. A signature
// attached to the call site wins over the table.
func (r *resolver) opcodeRate(info ir.Info) (ir.Rate, error) {
	sig := info.Sig
	if sig == nil && r.table != nil {
		if entry, ok := r.table.Lookup(info.Name); ok {
			sig = entry.Sig
		}
	}

	switch s := sig.(type) {
	case ir.SingleRate:
		if outs := s.OutRates(); len(outs) > 0 {
			return outs[0], nil
		}
	case ir.MultiRate:
		if len(s.Outs) > 0 {
			return s.Outs[0], nil
		}
		// A sink produces nothing; the call is a statement.
		return ir.Xr, nil
	}
	return 0, &UnknownOpcodeError{Name: info.Name}
}

func primRate(p ir.Prim) ir.Rate {
	switch v := p.(type) {
	case ir.PrimVar:
		return v.TargetRate
	case ir.PrimString:
		return ir.Sr
	case ir.StrIndex:
		return ir.Sr
	default:
		// Numbers, p-fields, and instrument ids are init-time values.
		return ir.Ir
	}
}

func slotRate(s ir.PrimOr) (ir.Rate, bool) {
	if s.IsInlined() {
		return primRate(s.Prim), true
	}
	if s.Node != nil && s.Node.Rate.Valid {
		return s.Node.Rate.Rate, true
	}
	return 0, false
}

// minSlotRate folds the fastest rate across the given slots, defaulting to
// init rate when none contributes.
func minSlotRate(slots ...ir.PrimOr) ir.Rate {
	rate := ir.Ir
	first := true
	for _, s := range slots {
		sr, ok := slotRate(s)
		if !ok {
			continue
		}
		if first {
			rate, first = sr, false
			continue
		}
		rate = ir.MinRate(rate, sr)
	}
	return rate
}
