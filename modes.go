package termgrid

// Mode is a bitmask of the terminal print-engine's behavioral modes: a
// subset of real VT modes, selected because they change how
// print/cursor operations behave rather than how bytes are parsed
// (parsing itself is out of scope for this core).
type Mode uint32

const (
	// ModeWraparound (DECAWM) enables automatic wrap at the right
	// margin.
	ModeWraparound Mode = 1 << iota
	// ModeReverseWrap (mode 45 / reverseWrap) lets cursorLeft cross
	// from the left margin up to the previous row.
	ModeReverseWrap
	// ModeReverseWrapExtended additionally permits wrapping from
	// (0,0) to the bottom-right corner.
	ModeReverseWrapExtended
	// ModeOrigin (DECOM) makes cursor positioning relative to the
	// scrolling region instead of the whole screen.
	ModeOrigin
	// ModeInsert (IRM) shifts existing characters right instead of
	// overwriting them.
	ModeInsert
	// ModeLinefeed (LNM) makes linefeed also perform a carriage
	// return.
	ModeLinefeed
	// ModeGraphemeCluster is VT mode 2027: codepoints are clustered
	// into grapheme clusters per UAX #29 instead of one-codepoint-
	// per-cell.
	ModeGraphemeCluster
	// ModeLeftRightMargin (DECLRMM) enables the left/right margin
	// commands; without it, SetLeftAndRightMargin is a no-op.
	ModeLeftRightMargin
)

// Has reports whether m is set.
func (mode Mode) Has(m Mode) bool { return mode&m != 0 }

// StatusDisplay selects which "screen" print targets: the main grid,
// or an OSC-set status line. The core only tracks the flag; it has no
// separate status-line storage (out of scope).
type StatusDisplay int

const (
	StatusMain StatusDisplay = iota
	StatusOther
)

// ScrollRegion is the current scrolling/margin rectangle. Top/Bottom
// are always valid (top<bottom); Left/Right are only meaningful when
// ModeLeftRightMargin is set.
type ScrollRegion struct {
	Top, Bottom, Left, Right int
}
