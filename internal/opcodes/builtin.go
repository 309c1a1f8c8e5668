package opcodes

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed builtin.cue
var builtinSrc string

var builtinTable = mustCompile(builtinSrc)

// Builtin returns the signature table for the builtin opcode set. The table
// is compiled once at package init; callers share the same instance.
func Builtin() *Table {
	return builtinTable
}

func mustCompile(src string) *Table {
	ctx := cuecontext.New()
	table, err := Compile(ctx.CompileString(src, cue.Filename("builtin.cue")))
	if err != nil {
		panic(fmt.Sprintf("builtin opcode table: %v", err))
	}
	return table
}
