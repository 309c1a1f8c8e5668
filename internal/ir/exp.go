package ir

import "fmt"

// Kind tags every expression payload variant. It is the dispatch key for
// equality, hashing, traversal, and serialization.
type Kind int

const (
	KindEmpty Kind = iota
	KindPrim
	KindOpcode
	KindConvertRate
	KindSelect
	KindIf
	KindBool
	KindNum
	KindInitVar
	KindReadVar
	KindWriteVar
	KindInitArr
	KindReadArr
	KindWriteArr
	KindWriteInitArr
	KindOpcodeArr
	KindVerbatim
	KindIfBegin
	KindElseBegin
	KindIfEnd
	KindUntilBegin
	KindUntilEnd
	KindWhileBegin
	KindWhileRefBegin
	KindWhileEnd
	KindStarts
	KindSeq
	KindEnds
	KindInitMacrosInt
	KindInitMacrosDouble
	KindInitMacrosString
	KindReadMacrosInt
	KindReadMacrosDouble
	KindReadMacrosString
)

var kindNames = [...]string{
	"empty", "prim", "opcode", "convert_rate", "select", "if", "bool", "num",
	"init_var", "read_var", "write_var",
	"init_arr", "read_arr", "write_arr", "write_init_arr", "opcode_arr",
	"verbatim",
	"if_begin", "else_begin", "if_end",
	"until_begin", "until_end",
	"while_begin", "while_ref_begin", "while_end",
	"starts", "seq", "ends",
	"init_macros_int", "init_macros_double", "init_macros_string",
	"read_macros_int", "read_macros_double", "read_macros_string",
}

func (k Kind) String() string {
	if k < KindEmpty || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a canonical kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if s == n {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown expression kind %q", s)
}

// Exp is the sealed interface over expression payloads. Only the variant
// types in this file implement it; a node holds exactly one.
//
// Pure variants compute values. Side-effecting and block variants only make
// sense under a dependency tag; the core represents them either way and
// leaves enforcement to the verify pass.
type Exp interface {
	kind() Kind // Sealed - only these types implement it
}

// KindOf returns the payload's kind tag.
func KindOf(x Exp) Kind {
	return x.kind()
}

// Empty is the payload of a node that exists only to carry a dependency
// tag, or of the root before anything is attached.
type Empty struct{}

func (Empty) kind() Kind { return KindEmpty }

// ExpPrim wraps a primitive constant as a full node.
type ExpPrim struct {
	Val Prim
}

func (ExpPrim) kind() Kind { return KindPrim }

// Opcode applies an operation to argument slots. The Info is carried
// opaquely; the core never checks Args against the signature.
type Opcode struct {
	Info Info
	Args []PrimOr
}

func (Opcode) kind() Kind { return KindOpcode }

// ConvertRate reinterprets a value at a different rate. From records the
// source rate when known; it stays unresolved until inference fills it.
type ConvertRate struct {
	To   Rate
	From OptRate
	Arg  PrimOr
}

func (ConvertRate) kind() Kind { return KindConvertRate }

// Select picks one output channel of a multi-output operation. Index
// counts channels from zero; Rate is the selected channel's rate.
type Select struct {
	Rate   Rate
	Index  int
	Parent PrimOr
}

func (Select) kind() Kind { return KindSelect }

// If is the expression-level conditional: a value that is Then or Else
// depending on Cond. It is distinct from the IfBegin block form, which
// sequences statements.
type If struct {
	Cond CondInfo
	Then PrimOr
	Else PrimOr
}

func (If) kind() Kind { return KindIf }

// ExpBool is a boolean operator application.
type ExpBool struct {
	Val BoolExp
}

func (ExpBool) kind() Kind { return KindBool }

// ExpNum is a numeric operator application.
type ExpNum struct {
	Val NumExp
}

func (ExpNum) kind() Kind { return KindNum }

// InitVar assigns a variable once at initialization time.
type InitVar struct {
	V   Var
	Val PrimOr
}

func (InitVar) kind() Kind { return KindInitVar }

// ReadVar reads a variable. Without a dependency tag a read may inline
// into its consumer; with one it is pinned into the statement order.
type ReadVar struct {
	V Var
}

func (ReadVar) kind() Kind { return KindReadVar }

// WriteVar assigns a variable at its own rate.
type WriteVar struct {
	V   Var
	Val PrimOr
}

func (WriteVar) kind() Kind { return KindWriteVar }

// InitArr allocates an array variable with the given dimension sizes.
type InitArr struct {
	V    Var
	Size []PrimOr
}

func (InitArr) kind() Kind { return KindInitArr }

// ReadArr reads an array element.
type ReadArr struct {
	V     Var
	Index []PrimOr
}

func (ReadArr) kind() Kind { return KindReadArr }

// WriteArr assigns an array element at the array's rate.
type WriteArr struct {
	V     Var
	Index []PrimOr
	Val   PrimOr
}

func (WriteArr) kind() Kind { return KindWriteArr }

// WriteInitArr assigns an array element at initialization time.
type WriteInitArr struct {
	V     Var
	Index []PrimOr
	Val   PrimOr
}

func (WriteInitArr) kind() Kind { return KindWriteInitArr }

// OpcodeArr applies an operation whose result lands in an array variable.
// Init marks the init-time form of the assignment.
type OpcodeArr struct {
	Init bool
	Out  Var
	Info Info
	Args []PrimOr
}

func (OpcodeArr) kind() Kind { return KindOpcodeArr }

// Verbatim is a line of target-language text passed through untouched.
type Verbatim struct {
	Text string
}

func (Verbatim) kind() Kind { return KindVerbatim }

// IfBegin opens a conditional statement block. Block variants must nest
// well in the final statement order: every IfBegin is closed by exactly
// one IfEnd, with an optional ElseBegin between them.
type IfBegin struct {
	Cond CondInfo
}

func (IfBegin) kind() Kind { return KindIfBegin }

// ElseBegin separates the branches of an open conditional block.
type ElseBegin struct{}

func (ElseBegin) kind() Kind { return KindElseBegin }

// IfEnd closes a conditional block.
type IfEnd struct{}

func (IfEnd) kind() Kind { return KindIfEnd }

// UntilBegin opens a loop that runs until its condition becomes true.
type UntilBegin struct {
	Cond CondInfo
}

func (UntilBegin) kind() Kind { return KindUntilBegin }

// UntilEnd closes an until loop.
type UntilEnd struct{}

func (UntilEnd) kind() Kind { return KindUntilEnd }

// WhileBegin opens a loop that runs while its condition holds.
type WhileBegin struct {
	Cond CondInfo
}

func (WhileBegin) kind() Kind { return KindWhileBegin }

// WhileRefBegin opens a loop guarded by a variable read each iteration.
type WhileRefBegin struct {
	V Var
}

func (WhileRefBegin) kind() Kind { return KindWhileRefBegin }

// WhileEnd closes a while loop.
type WhileEnd struct{}

func (WhileEnd) kind() Kind { return KindWhileEnd }

// Starts anchors the beginning of a dependency chain.
type Starts struct{}

func (Starts) kind() Kind { return KindStarts }

// Seq chains two effects: A is ordered before B. Seq nodes are ordering
// bookkeeping only and never become statements themselves.
type Seq struct {
	A PrimOr
	B PrimOr
}

func (Seq) kind() Kind { return KindSeq }

// Ends closes a dependency chain.
type Ends struct {
	A PrimOr
}

func (Ends) kind() Kind { return KindEnds }

// InitMacrosInt declares an integer macro with a default value.
type InitMacrosInt struct {
	Name string
	Def  int
}

func (InitMacrosInt) kind() Kind { return KindInitMacrosInt }

// InitMacrosDouble declares a floating point macro with a default value.
type InitMacrosDouble struct {
	Name string
	Def  float64
}

func (InitMacrosDouble) kind() Kind { return KindInitMacrosDouble }

// InitMacrosString declares a string macro with a default value.
type InitMacrosString struct {
	Name string
	Def  string
}

func (InitMacrosString) kind() Kind { return KindInitMacrosString }

// ReadMacrosInt reads an integer macro.
type ReadMacrosInt struct {
	Name string
}

func (ReadMacrosInt) kind() Kind { return KindReadMacrosInt }

// ReadMacrosDouble reads a floating point macro.
type ReadMacrosDouble struct {
	Name string
}

func (ReadMacrosDouble) kind() Kind { return KindReadMacrosDouble }

// ReadMacrosString reads a string macro.
type ReadMacrosString struct {
	Name string
}

func (ReadMacrosString) kind() Kind { return KindReadMacrosString }
