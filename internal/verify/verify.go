// Package verify checks that a finished graph is renderable.
//
// The node types represent ill-formed states without complaint: an
// unresolved rate, an unmatched block marker, a selection index past the
// signature bounds, and a macro read without a prior init are all
// constructible. This pass is where they surface. Checks collect every
// finding rather than stopping at the first, so a caller can report all
// problems in one round.
package verify

import (
	"errors"
	"fmt"

	"github.com/sigil-audio/sigil/internal/ir"
	"github.com/sigil-audio/sigil/internal/linear"
)

// Code categorizes verification findings.
type Code string

const (
	// CodeUnresolvedRate indicates a node whose rate was never fixed.
	CodeUnresolvedRate Code = "UNRESOLVED_RATE"

	// CodeUnmatchedBlock indicates begin/end markers that do not pair up.
	CodeUnmatchedBlock Code = "UNMATCHED_BLOCK"

	// CodeSelectOutOfRange indicates a selection index outside the
	// parent signature's output arity.
	CodeSelectOutOfRange Code = "SELECT_OUT_OF_RANGE"

	// CodeUndefinedMacro indicates a macro read with no init ordered
	// before it.
	CodeUndefinedMacro Code = "UNDEFINED_MACRO"
)

// Error is a single verification finding.
type Error struct {
	Code    Code
	Message string

	// Node is the offending node when one can be named.
	Node *ir.E
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether err is a verification finding with the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var ve *Error
	return errors.As(err, &ve) && ve.Code == code
}

// Check runs every verification over the graph: node-local checks on all
// reachable nodes, and statement-order checks over the dependency-tagged
// sequence. A graph with no findings is renderable.
func Check(e *ir.E) []error {
	c := newChecker()

	stmts := linear.Statements(e)
	c.blocks(stmts)
	c.macroOrder(stmts)
	// Reads not reachable from any statement have no position in the
	// order, so no init can precede them.
	c.checkReads(e, -1)

	w := &walker{seen: make(map[*ir.E]bool)}
	w.walk(e, c)

	return c.errs
}

// CheckStatements runs only the statement-order checks (block nesting and
// macro definition order) over an already linearized sequence.
func CheckStatements(stmts []*ir.E) []error {
	c := newChecker()
	c.blocks(stmts)
	c.macroOrder(stmts)
	return c.errs
}

type checker struct {
	errs []error

	inits     map[macroKey]int64
	initsSeen map[*ir.E]bool

	// readsSeen spans all read walks: a shared subtree validates against
	// the earliest statement that reaches it.
	readsSeen map[*ir.E]bool
}

func newChecker() *checker {
	return &checker{
		inits:     make(map[macroKey]int64),
		initsSeen: make(map[*ir.E]bool),
		readsSeen: make(map[*ir.E]bool),
	}
}

func (c *checker) report(code Code, node *ir.E, format string, args ...any) {
	c.errs = append(c.errs, &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	})
}

// walker drives the node-local checks over every reachable node.
type walker struct {
	seen map[*ir.E]bool
}

func (w *walker) walk(e *ir.E, c *checker) {
	if e == nil || w.seen[e] {
		return
	}
	w.seen[e] = true

	if !e.Rate.Valid {
		c.report(CodeUnresolvedRate, e, "%s node has unresolved rate", ir.KindOf(e.Exp))
	}
	if sel, ok := e.Exp.(ir.Select); ok {
		c.selectRange(e, sel)
	}

	for _, s := range ir.Slots(e.Exp) {
		if s.IsInlined() {
			continue
		}
		w.walk(s.Node, c)
	}
}

// selectRange checks the index against the parent's output arity where the
// signature makes it known.
func (c *checker) selectRange(node *ir.E, sel ir.Select) {
	parent := sel.Parent.Node
	if parent == nil {
		return
	}
	call, ok := parent.Exp.(ir.Opcode)
	if !ok {
		return
	}

	arity := -1
	switch sig := call.Info.Sig.(type) {
	case ir.MultiRate:
		arity = len(sig.Outs)
	case ir.SingleRate:
		arity = 1
	}
	if arity < 0 {
		return
	}

	if sel.Index < 0 || sel.Index >= arity {
		c.report(CodeSelectOutOfRange, node,
			"select index %d out of range: %s yields %d output(s)",
			sel.Index, call.Info.Name, arity)
	}
}

// blockKind names the open construct on the nesting stack.
type blockKind int

const (
	blockIf blockKind = iota
	blockUntil
	blockWhile
)

func (k blockKind) String() string {
	switch k {
	case blockIf:
		return "if"
	case blockUntil:
		return "until"
	default:
		return "while"
	}
}

type blockFrame struct {
	kind     blockKind
	node     *ir.E
	elseSeen bool
}

// blocks runs the nesting automaton over the statement sequence.
func (c *checker) blocks(stmts []*ir.E) {
	var stack []blockFrame

	pop := func(want blockKind, node *ir.E, marker string) {
		if len(stack) == 0 {
			c.report(CodeUnmatchedBlock, node, "%s without an open %s block", marker, want)
			return
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.kind != want {
			c.report(CodeUnmatchedBlock, node,
				"%s closes an open %s block", marker, top.kind)
		}
	}

	for _, s := range stmts {
		switch s.Exp.(type) {
		case ir.IfBegin:
			stack = append(stack, blockFrame{kind: blockIf, node: s})
		case ir.ElseBegin:
			if len(stack) == 0 || stack[len(stack)-1].kind != blockIf {
				c.report(CodeUnmatchedBlock, s, "else without an open if block")
				continue
			}
			top := &stack[len(stack)-1]
			if top.elseSeen {
				c.report(CodeUnmatchedBlock, s, "second else in one if block")
				continue
			}
			top.elseSeen = true
		case ir.IfEnd:
			pop(blockIf, s, "end of if")
		case ir.UntilBegin:
			stack = append(stack, blockFrame{kind: blockUntil, node: s})
		case ir.UntilEnd:
			pop(blockUntil, s, "end of until")
		case ir.WhileBegin, ir.WhileRefBegin:
			stack = append(stack, blockFrame{kind: blockWhile, node: s})
		case ir.WhileEnd:
			pop(blockWhile, s, "end of while")
		}
	}

	for _, open := range stack {
		c.report(CodeUnmatchedBlock, open.node, "unclosed %s block", open.kind)
	}
}

// macroKey separates the three macro namespaces.
type macroKey struct {
	name string
	kind ir.Kind
}

// macroOrder checks that every macro read has an init of the same name and
// type ordered strictly before the reading statement. Order is the
// dependency tag. Inits are collected over the whole sequence first, so a
// late init is reported as an ordering problem rather than a missing one.
func (c *checker) macroOrder(stmts []*ir.E) {
	for _, s := range stmts {
		c.collectInits(s, s.Dep.Seq)
	}
	for _, s := range stmts {
		c.checkReads(s, s.Dep.Seq)
	}
}

func (c *checker) collectInits(e *ir.E, order int64) {
	if e == nil || c.initsSeen[e] {
		return
	}
	c.initsSeen[e] = true

	switch x := e.Exp.(type) {
	case ir.InitMacrosInt:
		c.defineMacro(x.Name, ir.KindReadMacrosInt, order)
	case ir.InitMacrosDouble:
		c.defineMacro(x.Name, ir.KindReadMacrosDouble, order)
	case ir.InitMacrosString:
		c.defineMacro(x.Name, ir.KindReadMacrosString, order)
	}

	for _, s := range ir.Slots(e.Exp) {
		if s.IsInlined() {
			continue
		}
		c.collectInits(s.Node, order)
	}
}

func (c *checker) defineMacro(name string, kind ir.Kind, order int64) {
	key := macroKey{name: name, kind: kind}
	if prev, ok := c.inits[key]; !ok || order < prev {
		c.inits[key] = order
	}
}

func (c *checker) checkReads(e *ir.E, order int64) {
	if e == nil || c.readsSeen[e] {
		return
	}
	c.readsSeen[e] = true

	switch x := e.Exp.(type) {
	case ir.ReadMacrosInt:
		c.readMacro(e, x.Name, ir.KindReadMacrosInt, order, "int")
	case ir.ReadMacrosDouble:
		c.readMacro(e, x.Name, ir.KindReadMacrosDouble, order, "double")
	case ir.ReadMacrosString:
		c.readMacro(e, x.Name, ir.KindReadMacrosString, order, "string")
	}

	for _, s := range ir.Slots(e.Exp) {
		if s.IsInlined() {
			continue
		}
		c.checkReads(s.Node, order)
	}
}

func (c *checker) readMacro(node *ir.E, name string, kind ir.Kind, order int64, typeName string) {
	init, ok := c.inits[macroKey{name: name, kind: kind}]
	if !ok {
		c.report(CodeUndefinedMacro, node, "%s macro %q read without init", typeName, name)
		return
	}
	if order < 0 || init >= order {
		c.report(CodeUndefinedMacro, node,
			"%s macro %q read is not ordered after its init", typeName, name)
	}
}
