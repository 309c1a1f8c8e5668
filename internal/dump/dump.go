// Package dump renders expression graphs as indented text for debugging
// and golden tests. Output is deterministic: inline environments print in
// ascending reference order and floats use the shortest form that parses
// back. A node referenced from more than one parent is labeled at its
// first occurrence and referenced by label after that.
//
// The form is diagnostic only. Nothing downstream parses it, and it is
// not target code.
package dump

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sigil-audio/sigil/internal/ir"
)

// Graph renders the tree rooted at e. Shared subtrees print once; later
// occurrences collapse to their label.
func Graph(e *ir.E) string {
	p := newPrinter()
	p.count(e)
	p.node(0, "", e)
	return p.b.String()
}

// Statements renders an ordered statement sequence, one numbered entry per
// statement. Sharing labels span the whole sequence, so a subtree reused
// across statements prints only once.
func Statements(stmts []*ir.E) string {
	p := newPrinter()
	for _, s := range stmts {
		p.count(s)
	}
	for i, s := range stmts {
		p.node(0, "["+strconv.Itoa(i)+"]", s)
	}
	return p.b.String()
}

type printer struct {
	b         strings.Builder
	refs      map[*ir.E]int
	labels    map[*ir.E]int
	nextLabel int
}

func newPrinter() *printer {
	return &printer{refs: map[*ir.E]int{}, labels: map[*ir.E]int{}}
}

// count walks the boxed slots once so node knows which subtrees need a
// sharing label before anything is printed.
func (p *printer) count(e *ir.E) {
	if e == nil {
		return
	}
	p.refs[e]++
	if p.refs[e] > 1 {
		return
	}
	for _, s := range ir.Slots(e.Exp) {
		if s.Node != nil {
			p.count(s.Node)
		}
	}
}

func (p *printer) node(indent int, label string, e *ir.E) {
	if e == nil {
		p.line(indent, label, "nil")
		return
	}
	if id, ok := p.labels[e]; ok {
		p.line(indent, label, "&"+strconv.Itoa(id))
		return
	}
	head := header(e)
	if p.refs[e] > 1 {
		id := p.nextLabel
		p.nextLabel++
		p.labels[e] = id
		head = "&" + strconv.Itoa(id) + " " + head
	}
	p.line(indent, label, head)
	p.children(indent+1, e.Exp)
}

func (p *printer) slot(indent int, label string, s ir.PrimOr) {
	if s.IsInlined() {
		p.line(indent, label, primString(s.Prim))
		return
	}
	p.node(indent, label, s.Node)
}

// children prints the payload's slots with the labels its shape calls
// for. Positional slots (opcode arguments, operator arguments, sequence
// legs) print unlabeled.
func (p *printer) children(indent int, x ir.Exp) {
	switch v := x.(type) {
	case ir.Opcode:
		p.slots(indent, v.Args)
	case ir.ConvertRate:
		p.slot(indent, "", v.Arg)
	case ir.Select:
		p.slot(indent, "", v.Parent)
	case ir.If:
		p.env(indent, v.Cond.Env)
		p.slot(indent, "then", v.Then)
		p.slot(indent, "else", v.Else)
	case ir.ExpBool:
		p.slots(indent, v.Val.Args)
	case ir.ExpNum:
		p.slots(indent, v.Val.Args)
	case ir.InitVar:
		p.slot(indent, "", v.Val)
	case ir.WriteVar:
		p.slot(indent, "", v.Val)
	case ir.InitArr:
		for _, s := range v.Size {
			p.slot(indent, "size", s)
		}
	case ir.ReadArr:
		for _, s := range v.Index {
			p.slot(indent, "index", s)
		}
	case ir.WriteArr:
		for _, s := range v.Index {
			p.slot(indent, "index", s)
		}
		p.slot(indent, "val", v.Val)
	case ir.WriteInitArr:
		for _, s := range v.Index {
			p.slot(indent, "index", s)
		}
		p.slot(indent, "val", v.Val)
	case ir.OpcodeArr:
		p.slots(indent, v.Args)
	case ir.IfBegin:
		p.env(indent, v.Cond.Env)
	case ir.UntilBegin:
		p.env(indent, v.Cond.Env)
	case ir.WhileBegin:
		p.env(indent, v.Cond.Env)
	case ir.Seq:
		p.slot(indent, "", v.A)
		p.slot(indent, "", v.B)
	case ir.Ends:
		p.slot(indent, "", v.A)
	}
}

func (p *printer) slots(indent int, args []ir.PrimOr) {
	for _, a := range args {
		p.slot(indent, "", a)
	}
}

// env prints an inline environment in ascending reference order, each
// slot labeled with the $ref the operator tree uses for it.
func (p *printer) env(indent int, env map[int]ir.PrimOr) {
	keys := make([]int, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		p.slot(indent, "$"+strconv.Itoa(k), env[k])
	}
}

func (p *printer) line(indent int, label, text string) {
	for i := 0; i < indent; i++ {
		p.b.WriteString("  ")
	}
	if label != "" {
		p.b.WriteString(label)
		p.b.WriteString(": ")
	}
	p.b.WriteString(text)
	p.b.WriteByte('\n')
}

// header is the node's one-line form: kind and decoration, then the rate
// letter when resolved, then the dependency tag when present.
func header(e *ir.E) string {
	h := describe(e.Exp)
	if e.Rate.Valid {
		h += " :" + e.Rate.Rate.String()
	}
	if e.Dep.Valid {
		h += " " + e.Dep.String()
	}
	return h
}

func describe(x ir.Exp) string {
	k := ir.KindOf(x).String()
	switch v := x.(type) {
	case ir.ExpPrim:
		return k + " " + primString(v.Val)
	case ir.Opcode:
		return k + " " + v.Info.Name
	case ir.ConvertRate:
		return k + " " + v.From.String() + "->" + v.To.String()
	case ir.Select:
		return fmt.Sprintf("%s %d@%s", k, v.Index, v.Rate)
	case ir.If:
		return k + " " + condString(v.Cond.Exp)
	case ir.ExpBool:
		return k + " " + v.Val.Op.String()
	case ir.ExpNum:
		return k + " " + v.Val.Op.String()
	case ir.InitVar:
		return k + " " + v.V.String()
	case ir.ReadVar:
		return k + " " + v.V.String()
	case ir.WriteVar:
		return k + " " + v.V.String()
	case ir.InitArr:
		return k + " " + v.V.String()
	case ir.ReadArr:
		return k + " " + v.V.String()
	case ir.WriteArr:
		return k + " " + v.V.String()
	case ir.WriteInitArr:
		return k + " " + v.V.String()
	case ir.OpcodeArr:
		if v.Init {
			return k + " init " + v.Info.Name + " -> " + v.Out.String()
		}
		return k + " " + v.Info.Name + " -> " + v.Out.String()
	case ir.Verbatim:
		return k + " " + strconv.Quote(v.Text)
	case ir.IfBegin:
		return k + " " + condString(v.Cond.Exp)
	case ir.UntilBegin:
		return k + " " + condString(v.Cond.Exp)
	case ir.WhileBegin:
		return k + " " + condString(v.Cond.Exp)
	case ir.WhileRefBegin:
		return k + " " + v.V.String()
	case ir.InitMacrosInt:
		return fmt.Sprintf("%s %s = %d", k, v.Name, v.Def)
	case ir.InitMacrosDouble:
		return k + " " + v.Name + " = " + strconv.FormatFloat(v.Def, 'g', -1, 64)
	case ir.InitMacrosString:
		return k + " " + v.Name + " = " + strconv.Quote(v.Def)
	case ir.ReadMacrosInt:
		return k + " " + v.Name
	case ir.ReadMacrosDouble:
		return k + " " + v.Name
	case ir.ReadMacrosString:
		return k + " " + v.Name
	default:
		return k
	}
}

// primString prints an inlined primitive. A variable reference consumed at
// a rate other than its own shows the target after @, which is the one
// piece of information Prim.String drops.
func primString(pr ir.Prim) string {
	if v, ok := pr.(ir.PrimVar); ok && v.TargetRate != v.V.Rate {
		return v.V.String() + "@" + v.TargetRate.String()
	}
	return fmt.Sprint(pr)
}

// condString is the compact operator-tree form used in headers: leaves as
// $ref, applications in prefix parentheses.
func condString(x ir.InlineExp[ir.CondOp]) string {
	if !x.IsOp {
		return "$" + strconv.Itoa(x.Ref)
	}
	if len(x.Args) == 0 {
		return "(" + x.Op.String() + ")"
	}
	parts := make([]string, 0, len(x.Args)+1)
	parts = append(parts, x.Op.String())
	for _, a := range x.Args {
		parts = append(parts, condString(a))
	}
	return "(" + strings.Join(parts, " ") + ")"
}
