package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/fnv"
	"math"
)

// sigHashCap bounds how many entries of each signature rate list feed the
// structural hash. Very wide signatures would otherwise dominate hashing
// cost; the cap trades a bounded risk of extra collisions for cheap
// hashing. Equality always compares full lists, so the cap never affects
// correctness.
const sigHashCap = 5

// Hash returns the structural hash of the node, consistent with Equal:
// equal nodes hash equal. Child slots hash through the same PrimOr normal
// form equality uses, so box/inline representation does not affect the
// value. Intended for hash-table bucketing by a deduplication pass, with
// Equal resolving collisions.
func (e *E) Hash() uint64 {
	h := hasher{h: fnv.New64a()}
	h.node(e)
	return h.h.Sum64()
}

// HashPrimOr hashes a child slot through the normal form.
func HashPrimOr(p PrimOr) uint64 {
	h := hasher{h: fnv.New64a()}
	h.slot(p)
	return h.h.Sum64()
}

// hasher folds structure into an FNV-1a state. Every variant contributes
// its kind tag before its fields, and every variable-length list
// contributes its length, so that different shapes cannot fold to
// identical byte streams.
type hasher struct {
	h hash.Hash64
}

func (h hasher) tag(t byte) {
	h.h.Write([]byte{t})
}

func (h hasher) num(n int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	h.h.Write(buf[:])
}

func (h hasher) f64(f float64) {
	h.num(int64(math.Float64bits(f)))
}

func (h hasher) str(s string) {
	h.num(int64(len(s)))
	h.h.Write([]byte(s))
}

func (h hasher) boolean(b bool) {
	if b {
		h.tag(1)
	} else {
		h.tag(0)
	}
}

func (h hasher) node(e *E) {
	h.boolean(e.Rate.Valid)
	if e.Rate.Valid {
		h.num(int64(e.Rate.Rate))
	}
	h.boolean(e.Dep.Valid)
	if e.Dep.Valid {
		h.num(e.Dep.Seq)
	}
	h.exp(e.Exp)
}

func (h hasher) slot(p PrimOr) {
	p = normPrimOr(p)
	if p.IsInlined() {
		h.tag(0)
		h.prim(p.Prim)
		return
	}
	h.tag(1)
	h.node(p.Node)
}

func (h hasher) slots(args []PrimOr) {
	h.num(int64(len(args)))
	for _, a := range args {
		h.slot(a)
	}
}

func (h hasher) prim(p Prim) {
	switch v := p.(type) {
	case PField:
		h.tag(0)
		h.num(int64(v))
	case StrIndex:
		h.tag(1)
		h.num(int64(v))
	case PrimInt:
		h.tag(2)
		h.num(int64(v))
	case PrimDouble:
		h.tag(3)
		h.f64(float64(v))
	case PrimString:
		h.tag(4)
		h.str(string(v))
	case PrimInstr:
		h.tag(5)
		h.instr(v.Id)
	case PrimVar:
		h.tag(6)
		h.num(int64(v.TargetRate))
		h.variable(v.V)
	}
}

func (h hasher) instr(id InstrId) {
	switch v := id.(type) {
	case InstrNum:
		h.tag(0)
		h.num(int64(v))
	case InstrFrac:
		h.tag(1)
		h.num(int64(v.Num))
		h.num(int64(v.Frac))
	case InstrLabel:
		h.tag(2)
		h.str(string(v))
	}
}

func (h hasher) variable(v Var) {
	h.num(int64(v.Scope))
	h.num(int64(v.Rate))
	h.str(v.Name)
	h.boolean(v.Verbatim)
}

// cappedRates folds at most sigHashCap entries of a rate list.
func (h hasher) cappedRates(rates []Rate) {
	n := len(rates)
	h.num(int64(n))
	if n > sigHashCap {
		n = sigHashCap
	}
	for _, r := range rates[:n] {
		h.num(int64(r))
	}
}

func (h hasher) sig(s Signature) {
	switch v := s.(type) {
	case SingleRate:
		h.tag(0)
		// Map iteration order is not deterministic; fold in enum order.
		for r := Ar; r <= Xr; r++ {
			args, ok := v[r]
			if !ok {
				continue
			}
			h.num(int64(r))
			h.cappedRates(args)
		}
	case MultiRate:
		h.tag(1)
		h.cappedRates(v.Outs)
		h.cappedRates(v.Ins)
	default:
		h.tag(2)
	}
}

func (h hasher) info(i Info) {
	h.str(i.Name)
	h.num(int64(i.Fixity))
	h.sig(i.Sig)
}

func (h hasher) tree(t InlineExp[CondOp]) {
	if !t.IsOp {
		h.tag(0)
		h.num(int64(t.Ref))
		return
	}
	h.tag(1)
	h.num(int64(t.Op))
	h.num(int64(len(t.Args)))
	for _, a := range t.Args {
		h.tree(a)
	}
}

func (h hasher) cond(c CondInfo) {
	h.tree(c.Exp)
	h.num(int64(len(c.Env)))
	for _, k := range envKeys(c.Env) {
		h.num(int64(k))
		h.slot(c.Env[k])
	}
}

func (h hasher) exp(x Exp) {
	h.tag(byte(KindOf(x)))
	switch v := x.(type) {
	case ExpPrim:
		h.prim(v.Val)
	case Opcode:
		h.info(v.Info)
		h.slots(v.Args)
	case ConvertRate:
		h.num(int64(v.To))
		h.boolean(v.From.Valid)
		if v.From.Valid {
			h.num(int64(v.From.Rate))
		}
		h.slot(v.Arg)
	case Select:
		h.num(int64(v.Rate))
		h.num(int64(v.Index))
		h.slot(v.Parent)
	case If:
		h.cond(v.Cond)
		h.slot(v.Then)
		h.slot(v.Else)
	case ExpBool:
		h.num(int64(v.Val.Op))
		h.slots(v.Val.Args)
	case ExpNum:
		h.num(int64(v.Val.Op))
		h.slots(v.Val.Args)
	case InitVar:
		h.variable(v.V)
		h.slot(v.Val)
	case ReadVar:
		h.variable(v.V)
	case WriteVar:
		h.variable(v.V)
		h.slot(v.Val)
	case InitArr:
		h.variable(v.V)
		h.slots(v.Size)
	case ReadArr:
		h.variable(v.V)
		h.slots(v.Index)
	case WriteArr:
		h.variable(v.V)
		h.slots(v.Index)
		h.slot(v.Val)
	case WriteInitArr:
		h.variable(v.V)
		h.slots(v.Index)
		h.slot(v.Val)
	case OpcodeArr:
		h.boolean(v.Init)
		h.variable(v.Out)
		h.info(v.Info)
		h.slots(v.Args)
	case Verbatim:
		h.str(v.Text)
	case IfBegin:
		h.cond(v.Cond)
	case UntilBegin:
		h.cond(v.Cond)
	case WhileBegin:
		h.cond(v.Cond)
	case WhileRefBegin:
		h.variable(v.V)
	case Seq:
		h.slot(v.A)
		h.slot(v.B)
	case Ends:
		h.slot(v.A)
	case InitMacrosInt:
		h.str(v.Name)
		h.num(int64(v.Def))
	case InitMacrosDouble:
		h.str(v.Name)
		h.f64(v.Def)
	case InitMacrosString:
		h.str(v.Name)
		h.str(v.Def)
	case ReadMacrosInt:
		h.str(v.Name)
	case ReadMacrosDouble:
		h.str(v.Name)
	case ReadMacrosString:
		h.str(v.Name)
	}
}

// DomainGraph is the domain prefix for content-addressed graph identity.
// The version suffix enables future algorithm migration.
const DomainGraph = "sigil/graph/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GraphID computes the content-addressed identity of a graph: the SHA-256
// of its canonical serialization under the graph domain. The ID is stable
// across processes and platforms given structurally equal input.
func GraphID(e *E) (string, error) {
	canonical, err := MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("GraphID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// MustGraphID is like GraphID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustGraphID(e *E) string {
	id, err := GraphID(e)
	if err != nil {
		panic(err)
	}
	return id
}
