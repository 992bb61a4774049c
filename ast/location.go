package ast

// Location records byte offsets into the SRC buffer, plus the extra
// sub-ranges individual node kinds need (selector, name, endless flag,
// opening/closing delimiters). It mirrors the SimpleLocation/SendLocation/
// DefLocation/XStrLocation family: rather than four Go
// types implementing a common interface (which would force every consumer
// to type-switch), the extra fields live on one struct and are nil/zero
// when not applicable to the node's kind.
type Location struct {
	StartOffset int
	EndOffset   int
	Line        int // 1-based source line of StartOffset, for error messages
	Column      int // 0-based column of StartOffset on that line

	// Raw is the exact SRC text for this node's span, kept around for
	// diagnostics and for filters (like the component filter) that
	// need to fall back to literal source text.
	Raw string

	// Send carries the extra span SendLocation adds: the end offset of the
	// method selector, used by the converter to place inline comments and
	// by private-method detection.
	Send *SendExtra

	// Def carries DefLocation's additions: name end offset and whether the
	// method is declared endless (`def f(x) = expr`, no `end`).
	Def *DefExtra

	// XStr carries XStrLocation's opening/closing delimiter offsets, used
	// to recover the exact backtick-string source for the security check
	// in (x-strings without a binding option).
	XStr *XStrExtra
}

// SendExtra is the SendLocation addition: the selector sub-range.
type SendExtra struct {
	SelectorStart int
	SelectorEnd   int
}

// DefExtra is the DefLocation addition.
type DefExtra struct {
	NameEnd  int
	Endless  bool
	HasParens bool
}

// XStrExtra is the XStrLocation addition.
type XStrExtra struct {
	OpeningEnd   int
	ClosingStart int
}
