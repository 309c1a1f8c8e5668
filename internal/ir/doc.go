// Package ir defines the intermediate representation for sigil instrument
// graphs: rate-typed expression nodes, primitive atoms, opcode metadata,
// dependency ordering tags, and the structural equality, hashing, and
// canonical serialization that give graphs a stable content identity.
//
// This package contains type definitions and their identity operations only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps the IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Nodes are immutable after construction; WithRate and WithDep copy
//   - Sharing a *E between two parents aliases one computation, never copies
//   - Rates may stay unresolved during construction (OptRate), but an
//     unresolved rate must not survive to the render boundary
//   - Side effects are ordered by dependency tags only, never by traversal
//   - All JSON field names use snake_case
package ir
