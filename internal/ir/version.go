package ir

// Version constants for the IR schema and compiler.
const (
	// IRVersion is the IR schema version. It participates in cache keys so
	// that graphs serialized under an older schema are never misread.
	IRVersion = "1"

	// CompilerVersion is the sigil compiler version.
	CompilerVersion = "0.1.0"
)
