package ir

// Version constants recorded alongside stored statements.
const (
	// FormatVersion is the version of the statement record format.
	FormatVersion = "1"

	// CompilerVersion is the weave-io compiler version.
	CompilerVersion = "0.1.0"
)
