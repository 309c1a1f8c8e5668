package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON form of a graph, the only
// serialization that feeds content-addressed identity (GraphID).
//
// Canonical form follows RFC 8785 where it applies:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Floats in shortest round-trip form; NaN and infinities are errors
//
// Child slots serialize in the PrimOr normal form, so structurally equal
// graphs always produce identical bytes.
func MarshalCanonical(e *E) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("cannot marshal nil node")
	}
	return writeCanonical(nodeCanonical(e))
}

// canon is the sealed value union the canonical writer consumes. Only
// cObj, cArr, cStr, cInt, cFloat, and cBool implement it.
type canon interface {
	canonValue() // Sealed - only these types implement it
}

type cObj map[string]canon

func (cObj) canonValue() {}

type cArr []canon

func (cArr) canonValue() {}

type cStr string

func (cStr) canonValue() {}

type cInt int64

func (cInt) canonValue() {}

type cFloat float64

func (cFloat) canonValue() {}

type cBool bool

func (cBool) canonValue() {}

// sortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort order over strings is UTF-8 byte order, which differs once
// keys leave ASCII, so the comparison encodes to UTF-16 first.
func (obj cObj) sortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units as required by
// RFC 8785. utf16.Encode handles surrogate pairs correctly.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}

func writeCanonical(v canon) ([]byte, error) {
	switch val := v.(type) {
	case cStr:
		return writeCanonicalString(string(val))
	case cInt:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case cFloat:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite float %v is forbidden in canonical JSON", f)
		}
		return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
	case cBool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case cArr:
		return writeCanonicalArray(val)
	case cObj:
		return writeCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// writeCanonicalString produces a canonical JSON string: NFC normalized,
// no HTML escaping, and U+2028/U+2029 left unescaped per RFC 8785.
func writeCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline, remove it.
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}

	// Go's encoder escapes U+2028 and U+2029 for JavaScript embedding;
	// RFC 8785 requires them literal.
	return unescapeSeparators(result), nil
}

// unescapeSeparators rewrites \u2028 and \u2029 escape sequences to the
// literal characters. A sequence preceded by an odd run of backslashes is
// escaped text (a literal backslash followed by "u2028"), not an escape,
// and must stay as written.
func unescapeSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			run := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				run++
			}
			if run%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 6
				continue
			}
		}
		out = append(out, data[i])
		i++
	}
	return out
}

func writeCanonicalArray(arr cArr) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := writeCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeCanonicalObject(obj cObj) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.sortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := writeCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := writeCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func nodeCanonical(e *E) cObj {
	obj := cObj{"exp": expCanonical(e.Exp)}
	if e.Rate.Valid {
		obj["rate"] = cStr(e.Rate.Rate.String())
	}
	if e.Dep.Valid {
		obj["dep"] = cInt(e.Dep.Seq)
	}
	return obj
}

func slotCanonical(p PrimOr) cObj {
	p = normPrimOr(p)
	if p.IsInlined() {
		return cObj{"prim": primCanonical(p.Prim)}
	}
	return cObj{"node": nodeCanonical(p.Node)}
}

func slotsCanonical(args []PrimOr) cArr {
	arr := make(cArr, len(args))
	for i, a := range args {
		arr[i] = slotCanonical(a)
	}
	return arr
}

func primCanonical(p Prim) cObj {
	switch v := p.(type) {
	case PField:
		return cObj{"kind": cStr("pfield"), "val": cInt(int64(v))}
	case StrIndex:
		return cObj{"kind": cStr("str_index"), "val": cInt(int64(v))}
	case PrimInt:
		return cObj{"kind": cStr("int"), "val": cInt(int64(v))}
	case PrimDouble:
		return cObj{"kind": cStr("double"), "val": cFloat(float64(v))}
	case PrimString:
		return cObj{"kind": cStr("string"), "val": cStr(string(v))}
	case PrimInstr:
		return cObj{"kind": cStr("instr"), "id": instrCanonical(v.Id)}
	case PrimVar:
		return cObj{
			"kind": cStr("var"),
			"rate": cStr(v.TargetRate.String()),
			"var":  varCanonical(v.V),
		}
	default:
		return cObj{"kind": cStr("unknown")}
	}
}

func instrCanonical(id InstrId) cObj {
	switch v := id.(type) {
	case InstrNum:
		return cObj{"kind": cStr("num"), "num": cInt(int64(v))}
	case InstrFrac:
		return cObj{"kind": cStr("frac"), "num": cInt(int64(v.Num)), "frac": cInt(int64(v.Frac))}
	case InstrLabel:
		return cObj{"kind": cStr("label"), "label": cStr(string(v))}
	default:
		return cObj{"kind": cStr("unknown")}
	}
}

func varCanonical(v Var) cObj {
	obj := cObj{
		"scope": cStr(scopeName(v.Scope)),
		"rate":  cStr(v.Rate.String()),
		"name":  cStr(v.Name),
	}
	if v.Verbatim {
		obj["verbatim"] = cBool(true)
	}
	return obj
}

func scopeName(s VarScope) string {
	if s == GlobalVar {
		return "global"
	}
	return "local"
}

func ratesCanonical(rates []Rate) cArr {
	arr := make(cArr, len(rates))
	for i, r := range rates {
		arr[i] = cStr(r.String())
	}
	return arr
}

func sigCanonical(s Signature) cObj {
	switch v := s.(type) {
	case SingleRate:
		rates := make(cObj, len(v))
		for r, args := range v {
			rates[r.String()] = ratesCanonical(args)
		}
		return cObj{"kind": cStr("single"), "rates": rates}
	case MultiRate:
		return cObj{
			"kind": cStr("multi"),
			"outs": ratesCanonical(v.Outs),
			"ins":  ratesCanonical(v.Ins),
		}
	default:
		return cObj{"kind": cStr("none")}
	}
}

func infoCanonical(i Info) cObj {
	return cObj{
		"name":   cStr(i.Name),
		"fixity": cStr(i.Fixity.String()),
		"sig":    sigCanonical(i.Sig),
	}
}

func treeCanonical(t InlineExp[CondOp]) cObj {
	if !t.IsOp {
		return cObj{"ref": cInt(int64(t.Ref))}
	}
	args := make(cArr, len(t.Args))
	for i, a := range t.Args {
		args[i] = treeCanonical(a)
	}
	return cObj{"op": cStr(t.Op.String()), "args": args}
}

func condCanonical(c CondInfo) cObj {
	env := make(cObj, len(c.Env))
	for k, v := range c.Env {
		env[strconv.Itoa(k)] = slotCanonical(v)
	}
	return cObj{"exp": treeCanonical(c.Exp), "env": env}
}

func expCanonical(x Exp) cObj {
	obj := cObj{"op": cStr(KindOf(x).String())}
	switch v := x.(type) {
	case ExpPrim:
		obj["val"] = primCanonical(v.Val)
	case Opcode:
		obj["info"] = infoCanonical(v.Info)
		obj["args"] = slotsCanonical(v.Args)
	case ConvertRate:
		obj["to"] = cStr(v.To.String())
		if v.From.Valid {
			obj["from"] = cStr(v.From.Rate.String())
		}
		obj["arg"] = slotCanonical(v.Arg)
	case Select:
		obj["rate"] = cStr(v.Rate.String())
		obj["index"] = cInt(int64(v.Index))
		obj["parent"] = slotCanonical(v.Parent)
	case If:
		obj["cond"] = condCanonical(v.Cond)
		obj["then"] = slotCanonical(v.Then)
		obj["else"] = slotCanonical(v.Else)
	case ExpBool:
		obj["cond_op"] = cStr(v.Val.Op.String())
		obj["args"] = slotsCanonical(v.Val.Args)
	case ExpNum:
		obj["num_op"] = cStr(v.Val.Op.String())
		obj["args"] = slotsCanonical(v.Val.Args)
	case InitVar:
		obj["var"] = varCanonical(v.V)
		obj["val"] = slotCanonical(v.Val)
	case ReadVar:
		obj["var"] = varCanonical(v.V)
	case WriteVar:
		obj["var"] = varCanonical(v.V)
		obj["val"] = slotCanonical(v.Val)
	case InitArr:
		obj["var"] = varCanonical(v.V)
		obj["size"] = slotsCanonical(v.Size)
	case ReadArr:
		obj["var"] = varCanonical(v.V)
		obj["index"] = slotsCanonical(v.Index)
	case WriteArr:
		obj["var"] = varCanonical(v.V)
		obj["index"] = slotsCanonical(v.Index)
		obj["val"] = slotCanonical(v.Val)
	case WriteInitArr:
		obj["var"] = varCanonical(v.V)
		obj["index"] = slotsCanonical(v.Index)
		obj["val"] = slotCanonical(v.Val)
	case OpcodeArr:
		if v.Init {
			obj["init"] = cBool(true)
		}
		obj["out"] = varCanonical(v.Out)
		obj["info"] = infoCanonical(v.Info)
		obj["args"] = slotsCanonical(v.Args)
	case Verbatim:
		obj["text"] = cStr(v.Text)
	case IfBegin:
		obj["cond"] = condCanonical(v.Cond)
	case UntilBegin:
		obj["cond"] = condCanonical(v.Cond)
	case WhileBegin:
		obj["cond"] = condCanonical(v.Cond)
	case WhileRefBegin:
		obj["var"] = varCanonical(v.V)
	case Seq:
		obj["a"] = slotCanonical(v.A)
		obj["b"] = slotCanonical(v.B)
	case Ends:
		obj["a"] = slotCanonical(v.A)
	case InitMacrosInt:
		obj["name"] = cStr(v.Name)
		obj["def"] = cInt(int64(v.Def))
	case InitMacrosDouble:
		obj["name"] = cStr(v.Name)
		obj["def"] = cFloat(v.Def)
	case InitMacrosString:
		obj["name"] = cStr(v.Name)
		obj["def"] = cStr(v.Def)
	case ReadMacrosInt:
		obj["name"] = cStr(v.Name)
	case ReadMacrosDouble:
		obj["name"] = cStr(v.Name)
	case ReadMacrosString:
		obj["name"] = cStr(v.Name)
	}
	return obj
}
