// Package opcodes maintains the signature database for the target opcode
// set.
//
// Signatures are declared in CUE documents and compiled into ir.Info
// entries: the out-rate/in-rate relation a rate-inference pass consults, and
// the fixity a renderer uses to pick call syntax. The database describes
// rates only; argument counts are not checked here.
package opcodes

import (
	"sort"

	"github.com/sigil-audio/sigil/internal/ir"
)

// Table maps opcode names to their signatures. A Table is immutable after
// construction and safe for concurrent lookups.
type Table struct {
	infos map[string]ir.Info
}

// Lookup returns the signature entry for name.
func (t *Table) Lookup(name string) (ir.Info, bool) {
	info, ok := t.infos[name]
	return info, ok
}

// Names returns all opcode names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.infos))
	for name := range t.infos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.infos)
}

// Merge combines tables left to right; later tables win on name conflicts.
// Use it to overlay user-defined opcodes on the builtin set.
func Merge(tables ...*Table) *Table {
	m := make(map[string]ir.Info)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for name, info := range t.infos {
			m[name] = info
		}
	}
	return &Table{infos: m}
}
