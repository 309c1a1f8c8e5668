package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// UnmarshalCanonical parses a serialized graph back into nodes. It accepts
// any field order and whitespace, so hand-edited graph files load too.
// Slots that were serialized in normal form come back inlined; the result
// compares Equal to the graph that was marshaled.
func UnmarshalCanonical(data []byte) (*E, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse graph JSON: %w", err)
	}
	return decodeNode(raw)
}

func asObj(v any) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	return obj, nil
}

func objStr(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}

func objOptStr(obj map[string]any, key string) (string, bool, error) {
	v, ok := obj[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, true, nil
}

func objInt(obj map[string]any, key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("field %q: expected number, got %T", key, v)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("field %q: expected integer: %w", key, err)
	}
	return i, nil
}

func objFloat(obj map[string]any, key string) (float64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("field %q: expected number, got %T", key, v)
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return f, nil
}

func objBool(obj map[string]any, key string) (bool, error) {
	v, ok := obj[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q: expected bool, got %T", key, v)
	}
	return b, nil
}

func objArr(obj map[string]any, key string) ([]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q: expected array, got %T", key, v)
	}
	return arr, nil
}

func objRate(obj map[string]any, key string) (Rate, error) {
	s, err := objStr(obj, key)
	if err != nil {
		return 0, err
	}
	r, err := ParseRate(s)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return r, nil
}

func decodeNode(v any) (*E, error) {
	obj, err := asObj(v)
	if err != nil {
		return nil, err
	}

	var e E
	if s, ok, err := objOptStr(obj, "rate"); err != nil {
		return nil, err
	} else if ok {
		r, err := ParseRate(s)
		if err != nil {
			return nil, fmt.Errorf("field \"rate\": %w", err)
		}
		e.Rate = FixedRate(r)
	}
	if _, ok := obj["dep"]; ok {
		seq, err := objInt(obj, "dep")
		if err != nil {
			return nil, err
		}
		e.Dep = Tagged(seq)
	}

	raw, ok := obj["exp"]
	if !ok {
		return nil, fmt.Errorf("missing field \"exp\"")
	}
	x, err := decodeExp(raw)
	if err != nil {
		return nil, err
	}
	e.Exp = x
	return &e, nil
}

func decodeSlot(v any) (PrimOr, error) {
	obj, err := asObj(v)
	if err != nil {
		return PrimOr{}, err
	}
	if raw, ok := obj["prim"]; ok {
		p, err := decodePrim(raw)
		if err != nil {
			return PrimOr{}, err
		}
		return Inlined(p), nil
	}
	if raw, ok := obj["node"]; ok {
		e, err := decodeNode(raw)
		if err != nil {
			return PrimOr{}, err
		}
		return Boxed(e), nil
	}
	return PrimOr{}, fmt.Errorf("slot has neither \"prim\" nor \"node\"")
}

func decodeSlots(obj map[string]any, key string) ([]PrimOr, error) {
	raw, err := objArr(obj, key)
	if err != nil {
		return nil, err
	}
	out := make([]PrimOr, len(raw))
	for i, v := range raw {
		s, err := decodeSlot(v)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out[i] = s
	}
	return out, nil
}

func decodePrim(v any) (Prim, error) {
	obj, err := asObj(v)
	if err != nil {
		return nil, err
	}
	kind, err := objStr(obj, "kind")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "pfield":
		n, err := objInt(obj, "val")
		if err != nil {
			return nil, err
		}
		return PField(n), nil
	case "str_index":
		n, err := objInt(obj, "val")
		if err != nil {
			return nil, err
		}
		return StrIndex(n), nil
	case "int":
		n, err := objInt(obj, "val")
		if err != nil {
			return nil, err
		}
		return PrimInt(n), nil
	case "double":
		f, err := objFloat(obj, "val")
		if err != nil {
			return nil, err
		}
		return PrimDouble(f), nil
	case "string":
		s, err := objStr(obj, "val")
		if err != nil {
			return nil, err
		}
		return PrimString(s), nil
	case "instr":
		raw, ok := obj["id"]
		if !ok {
			return nil, fmt.Errorf("missing field \"id\"")
		}
		id, err := decodeInstr(raw)
		if err != nil {
			return nil, err
		}
		return PrimInstr{Id: id}, nil
	case "var":
		r, err := objRate(obj, "rate")
		if err != nil {
			return nil, err
		}
		raw, ok := obj["var"]
		if !ok {
			return nil, fmt.Errorf("missing field \"var\"")
		}
		vv, err := decodeVar(raw)
		if err != nil {
			return nil, err
		}
		return PrimVar{TargetRate: r, V: vv}, nil
	default:
		return nil, fmt.Errorf("unknown prim kind %q", kind)
	}
}

func decodeInstr(v any) (InstrId, error) {
	obj, err := asObj(v)
	if err != nil {
		return nil, err
	}
	kind, err := objStr(obj, "kind")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "num":
		n, err := objInt(obj, "num")
		if err != nil {
			return nil, err
		}
		return InstrNum(n), nil
	case "frac":
		num, err := objInt(obj, "num")
		if err != nil {
			return nil, err
		}
		frac, err := objInt(obj, "frac")
		if err != nil {
			return nil, err
		}
		return InstrFrac{Num: int(num), Frac: int(frac)}, nil
	case "label":
		s, err := objStr(obj, "label")
		if err != nil {
			return nil, err
		}
		return InstrLabel(s), nil
	default:
		return nil, fmt.Errorf("unknown instr kind %q", kind)
	}
}

func decodeVar(v any) (Var, error) {
	obj, err := asObj(v)
	if err != nil {
		return Var{}, err
	}
	scope, err := objStr(obj, "scope")
	if err != nil {
		return Var{}, err
	}
	var sc VarScope
	switch scope {
	case "local":
		sc = LocalVar
	case "global":
		sc = GlobalVar
	default:
		return Var{}, fmt.Errorf("unknown scope %q", scope)
	}
	r, err := objRate(obj, "rate")
	if err != nil {
		return Var{}, err
	}
	name, err := objStr(obj, "name")
	if err != nil {
		return Var{}, err
	}
	verbatim, err := objBool(obj, "verbatim")
	if err != nil {
		return Var{}, err
	}
	return Var{Scope: sc, Rate: r, Name: name, Verbatim: verbatim}, nil
}

func decodeRates(obj map[string]any, key string) ([]Rate, error) {
	raw, err := objArr(obj, key)
	if err != nil {
		return nil, err
	}
	out := make([]Rate, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: expected string, got %T", key, i, v)
		}
		r, err := ParseRate(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out[i] = r
	}
	return out, nil
}

func decodeSig(v any) (Signature, error) {
	obj, err := asObj(v)
	if err != nil {
		return nil, err
	}
	kind, err := objStr(obj, "kind")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "single":
		raw, ok := obj["rates"]
		if !ok {
			return nil, fmt.Errorf("missing field \"rates\"")
		}
		rates, err := asObj(raw)
		if err != nil {
			return nil, fmt.Errorf("field \"rates\": %w", err)
		}
		sig := make(SingleRate, len(rates))
		for letter := range rates {
			out, err := ParseRate(letter)
			if err != nil {
				return nil, fmt.Errorf("field \"rates\": %w", err)
			}
			args, err := decodeRates(rates, letter)
			if err != nil {
				return nil, err
			}
			sig[out] = args
		}
		return sig, nil
	case "multi":
		outs, err := decodeRates(obj, "outs")
		if err != nil {
			return nil, err
		}
		ins, err := decodeRates(obj, "ins")
		if err != nil {
			return nil, err
		}
		return MultiRate{Outs: outs, Ins: ins}, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown signature kind %q", kind)
	}
}

func decodeInfo(v any) (Info, error) {
	obj, err := asObj(v)
	if err != nil {
		return Info{}, err
	}
	name, err := objStr(obj, "name")
	if err != nil {
		return Info{}, err
	}
	fs, err := objStr(obj, "fixity")
	if err != nil {
		return Info{}, err
	}
	fixity, err := ParseFixity(fs)
	if err != nil {
		return Info{}, fmt.Errorf("field \"fixity\": %w", err)
	}
	raw, ok := obj["sig"]
	if !ok {
		return Info{}, fmt.Errorf("missing field \"sig\"")
	}
	sig, err := decodeSig(raw)
	if err != nil {
		return Info{}, fmt.Errorf("field \"sig\": %w", err)
	}
	return Info{Name: name, Sig: sig, Fixity: fixity}, nil
}

func decodeTree(v any) (InlineExp[CondOp], error) {
	obj, err := asObj(v)
	if err != nil {
		return InlineExp[CondOp]{}, err
	}
	if _, ok := obj["ref"]; ok {
		ref, err := objInt(obj, "ref")
		if err != nil {
			return InlineExp[CondOp]{}, err
		}
		return InlineLeaf[CondOp](int(ref)), nil
	}
	ops, err := objStr(obj, "op")
	if err != nil {
		return InlineExp[CondOp]{}, err
	}
	op, err := ParseCondOp(ops)
	if err != nil {
		return InlineExp[CondOp]{}, err
	}
	raw, err := objArr(obj, "args")
	if err != nil {
		return InlineExp[CondOp]{}, err
	}
	args := make([]InlineExp[CondOp], len(raw))
	for i, a := range raw {
		t, err := decodeTree(a)
		if err != nil {
			return InlineExp[CondOp]{}, fmt.Errorf("args[%d]: %w", i, err)
		}
		args[i] = t
	}
	return InlineOp(op, args...), nil
}

func decodeCond(v any) (CondInfo, error) {
	obj, err := asObj(v)
	if err != nil {
		return CondInfo{}, err
	}
	raw, ok := obj["exp"]
	if !ok {
		return CondInfo{}, fmt.Errorf("missing field \"exp\"")
	}
	tree, err := decodeTree(raw)
	if err != nil {
		return CondInfo{}, fmt.Errorf("field \"exp\": %w", err)
	}
	rawEnv, ok := obj["env"]
	if !ok {
		return CondInfo{}, fmt.Errorf("missing field \"env\"")
	}
	envObj, err := asObj(rawEnv)
	if err != nil {
		return CondInfo{}, fmt.Errorf("field \"env\": %w", err)
	}
	env := make(map[int]PrimOr, len(envObj))
	for k, ev := range envObj {
		ref, err := strconv.Atoi(k)
		if err != nil {
			return CondInfo{}, fmt.Errorf("env key %q: %w", k, err)
		}
		slot, err := decodeSlot(ev)
		if err != nil {
			return CondInfo{}, fmt.Errorf("env[%s]: %w", k, err)
		}
		env[ref] = slot
	}
	return CondInfo{Exp: tree, Env: env}, nil
}

func decodeExp(v any) (Exp, error) {
	obj, err := asObj(v)
	if err != nil {
		return nil, err
	}
	ops, err := objStr(obj, "op")
	if err != nil {
		return nil, err
	}
	kind, err := ParseKind(ops)
	if err != nil {
		return nil, err
	}

	x, err := decodeExpKind(kind, obj)
	if err != nil {
		return nil, fmt.Errorf("exp %q: %w", ops, err)
	}
	return x, nil
}

func decodeExpKind(kind Kind, obj map[string]any) (Exp, error) {
	switch kind {
	case KindEmpty:
		return Empty{}, nil
	case KindPrim:
		raw, ok := obj["val"]
		if !ok {
			return nil, fmt.Errorf("missing field \"val\"")
		}
		p, err := decodePrim(raw)
		if err != nil {
			return nil, err
		}
		return ExpPrim{Val: p}, nil
	case KindOpcode:
		raw, ok := obj["info"]
		if !ok {
			return nil, fmt.Errorf("missing field \"info\"")
		}
		info, err := decodeInfo(raw)
		if err != nil {
			return nil, err
		}
		args, err := decodeSlots(obj, "args")
		if err != nil {
			return nil, err
		}
		return Opcode{Info: info, Args: args}, nil
	case KindConvertRate:
		to, err := objRate(obj, "to")
		if err != nil {
			return nil, err
		}
		var from OptRate
		if s, ok, err := objOptStr(obj, "from"); err != nil {
			return nil, err
		} else if ok {
			r, err := ParseRate(s)
			if err != nil {
				return nil, fmt.Errorf("field \"from\": %w", err)
			}
			from = FixedRate(r)
		}
		raw, ok := obj["arg"]
		if !ok {
			return nil, fmt.Errorf("missing field \"arg\"")
		}
		arg, err := decodeSlot(raw)
		if err != nil {
			return nil, err
		}
		return ConvertRate{To: to, From: from, Arg: arg}, nil
	case KindSelect:
		r, err := objRate(obj, "rate")
		if err != nil {
			return nil, err
		}
		index, err := objInt(obj, "index")
		if err != nil {
			return nil, err
		}
		raw, ok := obj["parent"]
		if !ok {
			return nil, fmt.Errorf("missing field \"parent\"")
		}
		parent, err := decodeSlot(raw)
		if err != nil {
			return nil, err
		}
		return Select{Rate: r, Index: int(index), Parent: parent}, nil
	case KindIf:
		cond, err := decodeCondField(obj)
		if err != nil {
			return nil, err
		}
		rawThen, ok := obj["then"]
		if !ok {
			return nil, fmt.Errorf("missing field \"then\"")
		}
		then, err := decodeSlot(rawThen)
		if err != nil {
			return nil, err
		}
		rawElse, ok := obj["else"]
		if !ok {
			return nil, fmt.Errorf("missing field \"else\"")
		}
		els, err := decodeSlot(rawElse)
		if err != nil {
			return nil, err
		}
		return If{Cond: cond, Then: then, Else: els}, nil
	case KindBool:
		ops, err := objStr(obj, "cond_op")
		if err != nil {
			return nil, err
		}
		op, err := ParseCondOp(ops)
		if err != nil {
			return nil, err
		}
		args, err := decodeSlots(obj, "args")
		if err != nil {
			return nil, err
		}
		return ExpBool{Val: BoolExp{Op: op, Args: args}}, nil
	case KindNum:
		ops, err := objStr(obj, "num_op")
		if err != nil {
			return nil, err
		}
		op, err := ParseNumOp(ops)
		if err != nil {
			return nil, err
		}
		args, err := decodeSlots(obj, "args")
		if err != nil {
			return nil, err
		}
		return ExpNum{Val: NumExp{Op: op, Args: args}}, nil
	case KindInitVar:
		vv, err := decodeVarField(obj)
		if err != nil {
			return nil, err
		}
		val, err := decodeSlotField(obj, "val")
		if err != nil {
			return nil, err
		}
		return InitVar{V: vv, Val: val}, nil
	case KindReadVar:
		vv, err := decodeVarField(obj)
		if err != nil {
			return nil, err
		}
		return ReadVar{V: vv}, nil
	case KindWriteVar:
		vv, err := decodeVarField(obj)
		if err != nil {
			return nil, err
		}
		val, err := decodeSlotField(obj, "val")
		if err != nil {
			return nil, err
		}
		return WriteVar{V: vv, Val: val}, nil
	case KindInitArr:
		vv, err := decodeVarField(obj)
		if err != nil {
			return nil, err
		}
		size, err := decodeSlots(obj, "size")
		if err != nil {
			return nil, err
		}
		return InitArr{V: vv, Size: size}, nil
	case KindReadArr:
		vv, err := decodeVarField(obj)
		if err != nil {
			return nil, err
		}
		index, err := decodeSlots(obj, "index")
		if err != nil {
			return nil, err
		}
		return ReadArr{V: vv, Index: index}, nil
	case KindWriteArr:
		vv, err := decodeVarField(obj)
		if err != nil {
			return nil, err
		}
		index, err := decodeSlots(obj, "index")
		if err != nil {
			return nil, err
		}
		val, err := decodeSlotField(obj, "val")
		if err != nil {
			return nil, err
		}
		return WriteArr{V: vv, Index: index, Val: val}, nil
	case KindWriteInitArr:
		vv, err := decodeVarField(obj)
		if err != nil {
			return nil, err
		}
		index, err := decodeSlots(obj, "index")
		if err != nil {
			return nil, err
		}
		val, err := decodeSlotField(obj, "val")
		if err != nil {
			return nil, err
		}
		return WriteInitArr{V: vv, Index: index, Val: val}, nil
	case KindOpcodeArr:
		init, err := objBool(obj, "init")
		if err != nil {
			return nil, err
		}
		rawOut, ok := obj["out"]
		if !ok {
			return nil, fmt.Errorf("missing field \"out\"")
		}
		out, err := decodeVar(rawOut)
		if err != nil {
			return nil, err
		}
		rawInfo, ok := obj["info"]
		if !ok {
			return nil, fmt.Errorf("missing field \"info\"")
		}
		info, err := decodeInfo(rawInfo)
		if err != nil {
			return nil, err
		}
		args, err := decodeSlots(obj, "args")
		if err != nil {
			return nil, err
		}
		return OpcodeArr{Init: init, Out: out, Info: info, Args: args}, nil
	case KindVerbatim:
		text, err := objStr(obj, "text")
		if err != nil {
			return nil, err
		}
		return Verbatim{Text: text}, nil
	case KindIfBegin:
		cond, err := decodeCondField(obj)
		if err != nil {
			return nil, err
		}
		return IfBegin{Cond: cond}, nil
	case KindElseBegin:
		return ElseBegin{}, nil
	case KindIfEnd:
		return IfEnd{}, nil
	case KindUntilBegin:
		cond, err := decodeCondField(obj)
		if err != nil {
			return nil, err
		}
		return UntilBegin{Cond: cond}, nil
	case KindUntilEnd:
		return UntilEnd{}, nil
	case KindWhileBegin:
		cond, err := decodeCondField(obj)
		if err != nil {
			return nil, err
		}
		return WhileBegin{Cond: cond}, nil
	case KindWhileRefBegin:
		vv, err := decodeVarField(obj)
		if err != nil {
			return nil, err
		}
		return WhileRefBegin{V: vv}, nil
	case KindWhileEnd:
		return WhileEnd{}, nil
	case KindStarts:
		return Starts{}, nil
	case KindSeq:
		a, err := decodeSlotField(obj, "a")
		if err != nil {
			return nil, err
		}
		b, err := decodeSlotField(obj, "b")
		if err != nil {
			return nil, err
		}
		return Seq{A: a, B: b}, nil
	case KindEnds:
		a, err := decodeSlotField(obj, "a")
		if err != nil {
			return nil, err
		}
		return Ends{A: a}, nil
	case KindInitMacrosInt:
		name, err := objStr(obj, "name")
		if err != nil {
			return nil, err
		}
		def, err := objInt(obj, "def")
		if err != nil {
			return nil, err
		}
		return InitMacrosInt{Name: name, Def: int(def)}, nil
	case KindInitMacrosDouble:
		name, err := objStr(obj, "name")
		if err != nil {
			return nil, err
		}
		def, err := objFloat(obj, "def")
		if err != nil {
			return nil, err
		}
		return InitMacrosDouble{Name: name, Def: def}, nil
	case KindInitMacrosString:
		name, err := objStr(obj, "name")
		if err != nil {
			return nil, err
		}
		def, err := objStr(obj, "def")
		if err != nil {
			return nil, err
		}
		return InitMacrosString{Name: name, Def: def}, nil
	case KindReadMacrosInt:
		name, err := objStr(obj, "name")
		if err != nil {
			return nil, err
		}
		return ReadMacrosInt{Name: name}, nil
	case KindReadMacrosDouble:
		name, err := objStr(obj, "name")
		if err != nil {
			return nil, err
		}
		return ReadMacrosDouble{Name: name}, nil
	case KindReadMacrosString:
		name, err := objStr(obj, "name")
		if err != nil {
			return nil, err
		}
		return ReadMacrosString{Name: name}, nil
	default:
		return nil, fmt.Errorf("unhandled kind %v", kind)
	}
}

func decodeVarField(obj map[string]any) (Var, error) {
	raw, ok := obj["var"]
	if !ok {
		return Var{}, fmt.Errorf("missing field \"var\"")
	}
	return decodeVar(raw)
}

func decodeSlotField(obj map[string]any, key string) (PrimOr, error) {
	raw, ok := obj[key]
	if !ok {
		return PrimOr{}, fmt.Errorf("missing field %q", key)
	}
	s, err := decodeSlot(raw)
	if err != nil {
		return PrimOr{}, fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}

func decodeCondField(obj map[string]any) (CondInfo, error) {
	raw, ok := obj["cond"]
	if !ok {
		return CondInfo{}, fmt.Errorf("missing field \"cond\"")
	}
	cond, err := decodeCond(raw)
	if err != nil {
		return CondInfo{}, fmt.Errorf("field \"cond\": %w", err)
	}
	return cond, nil
}
