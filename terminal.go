package termgrid

import "fmt"

// Terminal is the print/cursor engine: it interprets decoded
// codepoints and high-level control events (fed to it by an external
// VT byte parser, out of scope here) into mutations of the embedded
// Screen's grid. It owns the mode bits, scrolling/margin region and
// tab stops that govern how print behaves.
type Terminal struct {
	*Screen

	modes  Mode
	region ScrollRegion
	tabs   *Tabstops
	status StatusDisplay

	// cellPxW, cellPxH are the renderer-reported cell pixel size, used
	// only to fall back a Kitty placement's grid size from its source
	// pixel rectangle when the command didn't specify cols/rows
	// directly. Zero until SetCellPixelSize is called.
	cellPxW, cellPxH int

	images *ImageStorage
}

// Option configures a Terminal at construction.
type Option func(*Terminal)

// WithMaxScrollback sets the primary buffer's scrollback row limit.
func WithMaxScrollback(n int) Option {
	return func(t *Terminal) {
		t.Screen.primary.maxScrollback = n
	}
}

// WithModes ORs the given modes into the terminal's initial mode set
// (in addition to the default ModeWraparound).
func WithModes(m Mode) Option {
	return func(t *Terminal) { t.modes |= m }
}

// WithKittyStorageOptions forwards options to the embedded
// ImageStorage's constructor (e.g. WithTotalLimit). A total limit of
// 0 disables the Kitty protocol entirely.
func WithKittyStorageOptions(opts ...StorageOption) Option {
	return func(t *Terminal) { t.images = NewImageStorage(opts...) }
}

// New creates a terminal of the given size with wraparound enabled by
// default (matching xterm/DECAWM's power-on default) and a 512-row
// primary scrollback.
func New(cols, rows int, opts ...Option) *Terminal {
	t := &Terminal{
		Screen: NewScreen(cols, rows, 512),
		modes:  ModeWraparound,
		tabs:   NewTabstops(cols),
		images: NewImageStorage(),
	}
	t.region = ScrollRegion{Top: 0, Bottom: rows - 1, Left: 0, Right: cols - 1}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Images returns the terminal's Kitty image storage.
func (t *Terminal) Images() *ImageStorage { return t.images }

// SetCellPixelSize records the renderer's current cell pixel
// dimensions, used by placement grid-size fallback math.
func (t *Terminal) SetCellPixelSize(w, h int) {
	t.cellPxW, t.cellPxH = w, h
}

// SetMode enables or disables mode bits m.
func (t *Terminal) SetMode(m Mode, enabled bool) {
	if enabled {
		t.modes |= m
	} else {
		t.modes &^= m
	}
}

// HasMode reports whether every bit in m is set.
func (t *Terminal) HasMode(m Mode) bool { return t.modes.Has(m) }

// SetStatusDisplay switches which "screen" print targets.
func (t *Terminal) SetStatusDisplay(s StatusDisplay) { t.status = s }

// Region returns the current scrolling/margin rectangle.
func (t *Terminal) Region() ScrollRegion { return t.region }

func (t *Terminal) rightLimit() int {
	if t.cursor.X > t.region.Right {
		return t.Cols()
	}
	return t.region.Right + 1
}

// Print interprets one decoded codepoint: grapheme
// attachment, wide-character handling, pending wrap and cell writes.
func (t *Terminal) Print(c rune) {
	if t.status != StatusMain {
		return
	}

	if c > 0xFF && t.modes.Has(ModeGraphemeCluster) && t.cursor.X > 0 {
		if t.tryGraphemeAttach(c) {
			return
		}
	}

	width := runeWidth(c)

	if width == 0 {
		if !t.modes.Has(ModeGraphemeCluster) && t.cursor.X > 0 {
			t.appendZeroWidthToLeft(c)
		}
		return
	}

	rightLimit := t.rightLimit()

	if t.cursor.PendingWrap && t.modes.Has(ModeWraparound) {
		t.wrapToNextRow()
	}

	if width == 1 {
		if t.modes.Has(ModeInsert) {
			t.insertBlanks(rightLimit, 1)
		}
		t.printCell(c, WideNarrow)
		t.advanceAfterWrite(rightLimit)
		return
	}

	// width == 2
	if rightLimit-t.region.Left == 1 {
		if t.modes.Has(ModeInsert) {
			t.insertBlanks(rightLimit, 1)
		}
		t.printCell(' ', WideNarrow)
		t.advanceAfterWrite(rightLimit)
		return
	}

	if t.cursor.X == rightLimit-1 {
		if !t.modes.Has(ModeWraparound) {
			return
		}
		t.printCell(0, WideSpacerHead)
		t.wrapToNextRow()
	}

	if t.modes.Has(ModeInsert) {
		t.insertBlanks(t.rightLimit(), 2)
	}
	t.printCell(c, WideWide)
	_, x, y := t.cell()
	t.CursorAbsolute(x+1, y)
	t.printCell(0, WideSpacerTail)
	t.advanceAfterWrite(rightLimit)
}

// wrapToNextRow performs the "pending wrap" transition: marks the
// current row as wrapped, indexes down (scrolling if at the region
// bottom), and moves to the region's left margin, marking the new
// row as a wrap continuation.
func (t *Terminal) wrapToNextRow() {
	page, _, y := t.cell()
	page.SetRowFlags(y, page.GetRow(y).Flags()|RowWrap)
	t.indexLocked()
	t.CursorAbsolute(t.region.Left, t.cursor.Y)
	page2, _, y2 := t.cell()
	page2.SetRowFlags(y2, page2.GetRow(y2).Flags()|RowWrapContinuation)
}

// advanceAfterWrite implements the shared post-write cursor rule: at
// the right limit, set pending wrap instead of moving; otherwise
// advance one column.
func (t *Terminal) advanceAfterWrite(rightLimit int) {
	if t.cursor.X == rightLimit-1 {
		t.cursor.PendingWrap = true
		return
	}
	t.CursorAbsolute(t.cursor.X+1, t.cursor.Y)
}

// tryGraphemeAttach implements the grapheme-attach path of print: it
// looks at the previous text-bearing cell and either folds c into its
// cluster (returning true) or reports that c starts a new cluster
// (returning false, so the caller falls through to normal width
// handling).
func (t *Terminal) tryGraphemeAttach(c rune) bool {
	page, x, y := t.cell()
	px := x - 1
	if px >= 0 && page.GetCell(px, y).Wide() == WideSpacerTail {
		px--
	}
	if px < 0 {
		return false
	}
	prev := page.GetCell(px, y)
	if prev.Codepoint() == 0 {
		return false
	}

	prefix := string(prev.Codepoint())
	for _, g := range page.LookupGrapheme(px, y) {
		prefix += string(g)
	}

	if !graphemeBreak(prefix, c) {
		// c extends the previous cluster.
		switch {
		case c == vs16 && isExtendedPictographic(prev.Codepoint()) && prev.Wide() != WideWide:
			t.rewriteAsWideWithVS16(page, px, y)
			page.AppendGrapheme(px, y, c)
		case c == vs15 && prev.Wide() == WideWide:
			page.SetCell(px, y, prev.withWide(WideNarrow))
			if px+1 < page.Size().Cols {
				tail := page.GetCell(px+1, y)
				if tail.Wide() == WideSpacerTail {
					page.SetCell(px+1, y, tail.withWide(WideNarrow))
				}
			}
		default:
			page.AppendGrapheme(px, y, c)
		}
		return true
	}
	return false
}

// rewriteAsWideWithVS16 turns the cell at (px, y) into a wide cell
// (VS16 requests emoji presentation), allocating a spacer_tail to its
// right — wrapping first if there's no room, exactly as the
// width-2 print path does for a brand-new wide character.
func (t *Terminal) rewriteAsWideWithVS16(page *Page, px, y int) {
	rightLimit := t.rightLimit()
	if px == rightLimit-1 {
		if !t.modes.Has(ModeWraparound) {
			return
		}
		page.SetCell(px, y, page.GetCell(px, y).withWide(WideSpacerHead))
		// The base char that was about to become wide has already
		// been written; the caller's cursor is elsewhere (mid grapheme
		// attach), so we only flip the stored cell's role here and let
		// print's own pending-wrap machinery handle the *next* fresh
		// character. This is the documented gap for spacer_head
		// reinterpretation noted in DESIGN.md.
		return
	}
	cell := page.GetCell(px, y)
	page.SetCell(px, y, cell.withWide(WideWide))
	if px+1 < page.Size().Cols {
		tail := page.GetCell(px+1, y)
		page.SetCell(px+1, y, tail.withCodepoint(0).withWide(WideSpacerTail).withStyleID(cell.StyleID()))
	}
}

// appendZeroWidthToLeft attaches a combining-mark codepoint to the
// immediately-left text-bearing cell (used only when grapheme cluster
// mode is off; mode 2027 subsumes this via tryGraphemeAttach).
func (t *Terminal) appendZeroWidthToLeft(c rune) {
	page, x, y := t.cell()
	px := x - 1
	if px >= 0 && page.GetCell(px, y).Wide() == WideSpacerTail {
		px--
	}
	if px < 0 {
		return
	}
	page.AppendGrapheme(px, y, c)
}

// insertBlanks implements IRM (ModeInsert): shifts the n cells from
// the cursor's column up to rightLimit-1 right by n, discarding
// whatever falls off the end, then leaves the n cells at the cursor
// blank for printCell to overwrite. Grounded on the teacher's
// Buffer.InsertBlanks, adapted to route every cell move through
// Page.SetCell so style ref counts stay correct.
func (t *Terminal) insertBlanks(rightLimit, n int) {
	page, x, y := t.cell()
	if x+n > rightLimit {
		n = rightLimit - x
	}
	if n <= 0 {
		return
	}
	for dst := rightLimit - 1; dst >= x+n; dst-- {
		page.SetCell(dst, y, page.GetCell(dst-n, y))
	}
	t.clearRowRange(page, y, x, x+n-1)
}

// printCell writes a single cell at the cursor: cleans up any
// wide-pairing the overwritten cell held, clears its grapheme, then
// writes the new codepoint/style/wide-kind.
func (t *Terminal) printCell(c rune, wide WideKind) {
	page, x, y := t.cell()
	old := page.GetCell(x, y)

	if old.Wide() != wide {
		switch old.Wide() {
		case WideWide:
			if x+1 < page.Size().Cols {
				tail := page.GetCell(x+1, y)
				if tail.Wide() == WideSpacerTail {
					page.SetCell(x+1, y, tail.withWide(WideNarrow))
				}
			}
			if x == t.region.Left && page.GetRow(y).HasFlag(RowWrapContinuation) {
				t.resetPrecedingSpacerHead(page, y)
			}
		case WideSpacerTail:
			if x-1 >= 0 {
				left := page.GetCell(x-1, y)
				if left.Wide() == WideWide {
					page.SetCell(x-1, y, left.withWide(WideNarrow))
				}
			}
			if x-1 == t.region.Left && page.GetRow(y).HasFlag(RowWrapContinuation) {
				t.resetPrecedingSpacerHead(page, y)
			}
		case WideSpacerHead:
			// Overwriting a spacer_head in place is left as-is: xterm's
			// own behavior here is undocumented (this is flagged as an
			// as an open question). Policy chosen for this port: no
			// special cleanup, matching the reference core's TODO.
		}
	}

	styleID := t.cursor.StyleID
	page.SetCell(x, y, makeCell(c, styleID, wide, false))
}

// resetPrecedingSpacerHead clears the spacer_head reserved in the
// previous row (if any) for a wide pair that was going to wrap into
// row y's left margin, but no longer will because that wide pair was
// just overwritten.
func (t *Terminal) resetPrecedingSpacerHead(page *Page, y int) {
	pin, ok := t.ActivePin(t.region.Left, y)
	if !ok {
		return
	}
	prevPin, overflow := t.Active().PinUpOverflow(pin, 1)
	if overflow != nil {
		return
	}
	prevPage, prevY := prevPin.RowAt()
	lastCol := prevPage.Size().Cols - 1
	last := prevPage.GetCell(lastCol, prevY)
	if last.Wide() == WideSpacerHead {
		prevPage.SetCell(lastCol, prevY, last.withWide(WideNarrow))
	}
}

// CarriageReturn clears pending wrap and moves the cursor to the left
// margin in origin mode or when it is at or right of that margin, and
// to column 0 when it is left of the margin.
func (t *Terminal) CarriageReturn() {
	t.cursor.PendingWrap = false
	x := 0
	if t.modes.Has(ModeOrigin) {
		x = t.region.Left
	} else if t.cursor.X >= t.region.Left {
		x = t.region.Left
	}
	t.CursorAbsolute(x, t.cursor.Y)
}

// LineFeed performs Index, then CarriageReturn if ModeLinefeed is set.
func (t *Terminal) LineFeed() {
	t.Index()
	if t.modes.Has(ModeLinefeed) {
		t.CarriageReturn()
	}
}

// indexLocked is Index's body shared with the pending-wrap path
// (which must not re-clear pending_wrap the way the public Index
// does via CursorAbsolute — in practice CursorAbsolute always
// clears it, which is correct for both call sites).
func (t *Terminal) indexLocked() {
	y := t.cursor.Y
	if y < t.region.Top || y > t.region.Bottom {
		if y < t.Rows()-1 {
			t.CursorAbsolute(t.cursor.X, y+1)
		}
		return
	}
	if y == t.region.Bottom {
		if t.region.Top == 0 && t.region.Bottom == t.Rows()-1 {
			_ = t.CursorDownScroll()
		} else {
			t.scrollRegionUp(1)
		}
		return
	}
	t.CursorAbsolute(t.cursor.X, y+1)
}

// Index moves the cursor down one row, scrolling the region (or
// extending into scrollback, for the full-screen case) when already
// at the region's bottom.
func (t *Terminal) Index() { t.indexLocked() }

// ReverseIndex is Index's mirror: move up one row, scrolling the
// region down when already at its top.
func (t *Terminal) ReverseIndex() {
	y := t.cursor.Y
	if y < t.region.Top || y > t.region.Bottom {
		if y > 0 {
			t.CursorAbsolute(t.cursor.X, y-1)
		}
		return
	}
	if y == t.region.Top {
		t.scrollRegionDown(1)
		return
	}
	t.CursorAbsolute(t.cursor.X, y-1)
}

// CursorLeft moves left by n columns, honoring wraparound/reverse
// wrap: in reverse_wrap mode, hitting the left margin moves
// up one row (after n has consumed one step); reverse_wrap_extended
// additionally permits crossing from (0,0) to the bottom-right corner
// instead of stopping.
func (t *Terminal) CursorLeft(n int) {
	wrapped := false
	for n > 0 {
		if t.cursor.X > t.region.Left {
			step := t.cursor.X - t.region.Left
			if step > n {
				step = n
			}
			t.CursorAbsolute(t.cursor.X-step, t.cursor.Y)
			n -= step
			continue
		}
		// At the left margin with steps remaining.
		if !t.modes.Has(ModeReverseWrap) && !t.modes.Has(ModeReverseWrapExtended) {
			return
		}
		if t.cursor.Y == t.region.Top && t.cursor.X == 0 {
			if !t.modes.Has(ModeReverseWrapExtended) || wrapped {
				return
			}
			// Wrap from (0,0) to the bottom-right corner exactly once;
			// further left-steps terminate here rather than looping,
			// per the documented boundary behavior and the open
			// question (xterm itself crashes in this case).
			t.CursorAbsolute(t.Cols()-1, t.region.Bottom)
			n--
			wrapped = true
			continue
		}
		t.CursorAbsolute(t.Cols()-1, t.cursor.Y-1)
		n--
	}
}

// SetCursorPos moves the cursor to 1-indexed (row, col), clamped to
// the scrolling region when ModeOrigin is set, or the full screen
// otherwise. A value of 0 is treated as 1 (both are "column/row one").
func (t *Terminal) SetCursorPos(row, col int) {
	if row <= 0 {
		row = 1
	}
	if col <= 0 {
		col = 1
	}
	x, y := col-1, row-1
	if t.modes.Has(ModeOrigin) {
		x += t.region.Left
		y += t.region.Top
		if x > t.region.Right {
			x = t.region.Right
		}
		if y > t.region.Bottom {
			y = t.region.Bottom
		}
	} else {
		if x > t.Cols()-1 {
			x = t.Cols() - 1
		}
		if y > t.Rows()-1 {
			y = t.Rows() - 1
		}
	}
	t.CursorAbsolute(x, y)
}

// SetTopAndBottomMargin sets the scrolling region's vertical bounds
// (1-indexed, inclusive). Rejects t>=b. Moves the cursor to (1,1)
// (origin-relative).
func (t *Terminal) SetTopAndBottomMargin(top, bottom int) error {
	if top < 1 {
		top = 1
	}
	if bottom > t.Rows() {
		bottom = t.Rows()
	}
	if top >= bottom {
		return fmt.Errorf("termgrid: set_top_and_bottom_margin: top %d >= bottom %d", top, bottom)
	}
	t.region.Top = top - 1
	t.region.Bottom = bottom - 1
	t.SetCursorPos(1, 1)
	return nil
}

// SetLeftAndRightMargin sets the scrolling region's horizontal bounds
// (1-indexed, inclusive). No-op unless ModeLeftRightMargin is set.
func (t *Terminal) SetLeftAndRightMargin(left, right int) error {
	if !t.modes.Has(ModeLeftRightMargin) {
		return nil
	}
	if left < 1 {
		left = 1
	}
	if right > t.Cols() {
		right = t.Cols()
	}
	if left >= right {
		return fmt.Errorf("termgrid: set_left_and_right_margin: left %d >= right %d", left, right)
	}
	t.region.Left = left - 1
	t.region.Right = right - 1
	t.CursorAbsolute(t.region.Left, t.region.Top)
	return nil
}

// clearRow zeroes every cell in row y of page, releasing style refs
// and grapheme storage, and clears the row's flags.
func (t *Terminal) clearRow(page *Page, y int) {
	t.clearRowRange(page, y, 0, page.Size().Cols-1)
	page.SetRowFlags(y, 0)
}

// clearRowRange zeroes cells [left, right] (inclusive) of row y.
func (t *Terminal) clearRowRange(page *Page, y, left, right int) {
	for x := left; x <= right && x < page.Size().Cols; x++ {
		if x < 0 {
			continue
		}
		page.SetCell(x, y, 0)
	}
}

// copyRowRange copies cells [left, right] of row src into row dst
// (used for margin-restricted scrolling, where a full row-header swap
// would also move columns outside the margin).
func (t *Terminal) copyRowRange(page *Page, src, dst, left, right int) {
	srcCells := append([]Cell(nil), page.GetCells(src)[left:min(right+1, page.Size().Cols)]...)
	for i, c := range srcCells {
		page.SetCell(left+i, dst, c)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// scrollRegionUp shifts the scrolling region's rows up by n (rows
// fall off the top of the region, n blank rows appear at the bottom).
// Uses an O(1)-per-row header rotation when the region spans the full
// screen width; otherwise falls back to per-cell copies restricted to
// [left, right].
func (t *Terminal) scrollRegionUp(n int) {
	top, bottom, left, right := t.region.Top, t.region.Bottom, t.region.Left, t.region.Right
	if n > bottom-top+1 {
		n = bottom - top + 1
	}
	if n <= 0 {
		return
	}
	page, _, _ := t.cell()

	if left == 0 && right == t.Cols()-1 {
		saved := make([]Row, n)
		for i := 0; i < n; i++ {
			saved[i] = page.GetRow(top + i)
		}
		for y := top; y <= bottom-n; y++ {
			page.SetRowHeader(y, page.GetRow(y+n))
		}
		for i := 0; i < n; i++ {
			page.SetRowHeader(bottom-n+1+i, saved[i])
		}
		for y := bottom - n + 1; y <= bottom; y++ {
			t.clearRow(page, y)
		}
		return
	}

	for y := top; y <= bottom-n; y++ {
		t.copyRowRange(page, y+n, y, left, right)
	}
	for y := bottom - n + 1; y <= bottom; y++ {
		t.clearRowRange(page, y, left, right)
	}
}

// scrollRegionDown is scrollRegionUp's mirror: rows fall off the
// bottom, n blank rows appear at the top.
func (t *Terminal) scrollRegionDown(n int) {
	top, bottom, left, right := t.region.Top, t.region.Bottom, t.region.Left, t.region.Right
	if n > bottom-top+1 {
		n = bottom - top + 1
	}
	if n <= 0 {
		return
	}
	page, _, _ := t.cell()

	if left == 0 && right == t.Cols()-1 {
		saved := make([]Row, n)
		for i := 0; i < n; i++ {
			saved[i] = page.GetRow(bottom - n + 1 + i)
		}
		for y := bottom; y >= top+n; y-- {
			page.SetRowHeader(y, page.GetRow(y-n))
		}
		for i := 0; i < n; i++ {
			page.SetRowHeader(top+i, saved[i])
		}
		for y := top; y < top+n; y++ {
			t.clearRow(page, y)
		}
		return
	}

	for y := bottom; y >= top+n; y-- {
		t.copyRowRange(page, y-n, y, left, right)
	}
	for y := top; y < top+n; y++ {
		t.clearRowRange(page, y, left, right)
	}
}

// InsertLines inserts n blank rows at the cursor's row, shifting rows
// between the cursor and the region's bottom down (rows that fall off
// the bottom are discarded). A no-op when the cursor is outside the
// scrolling region.
func (t *Terminal) InsertLines(n int) {
	if t.cursor.Y < t.region.Top || t.cursor.Y > t.region.Bottom {
		return
	}
	if n <= 0 {
		return
	}
	saveTop := t.region.Top
	t.region.Top = t.cursor.Y
	t.scrollRegionDown(n)
	t.region.Top = saveTop
	t.CursorAbsolute(t.region.Left, t.cursor.Y)
}

// DeleteLines removes n rows at the cursor's row, shifting rows below
// up (blank rows appear at the region's bottom). A no-op when the
// cursor is outside the scrolling region.
func (t *Terminal) DeleteLines(n int) {
	if t.cursor.Y < t.region.Top || t.cursor.Y > t.region.Bottom {
		return
	}
	if n <= 0 {
		return
	}
	saveTop := t.region.Top
	t.region.Top = t.cursor.Y
	t.scrollRegionUp(n)
	t.region.Top = saveTop
	t.CursorAbsolute(t.region.Left, t.cursor.Y)
}

// ScrollDown shifts the whole scrolling region down by n, as if
// InsertLines(n) had been issued at the region's top, but without
// disturbing the cursor's position.
func (t *Terminal) ScrollDown(n int) {
	savedX, savedY, savedWrap := t.cursor.X, t.cursor.Y, t.cursor.PendingWrap
	t.CursorAbsolute(t.region.Left, t.region.Top)
	t.InsertLines(n)
	t.CursorAbsolute(savedX, savedY)
	t.cursor.PendingWrap = savedWrap
}

// ScrollUp is ScrollDown's mirror (DECSTBM-region "scroll up" / SU).
func (t *Terminal) ScrollUp(n int) {
	savedX, savedY, savedWrap := t.cursor.X, t.cursor.Y, t.cursor.PendingWrap
	t.CursorAbsolute(t.region.Left, t.region.Top)
	t.DeleteLines(n)
	t.CursorAbsolute(savedX, savedY)
	t.cursor.PendingWrap = savedWrap
}

// EraseChars clears n cells starting at the cursor, clamped to the
// row's tail. If the last cleared cell was the left half of a wide
// pair, the clear is extended by one to sweep its spacer_tail too.
func (t *Terminal) EraseChars(n int) {
	page, x, y := t.cell()
	cols := page.Size().Cols
	if n <= 0 {
		n = 1
	}
	end := x + n - 1
	if end >= cols {
		end = cols - 1
	}
	if end < cols-1 {
		if page.GetCell(end, y).Wide() == WideWide {
			end++
		}
	}
	for i := x; i <= end; i++ {
		page.SetCell(i, y, 0)
	}
	page.SetRowFlags(y, page.GetRow(y).Flags()&^RowWrap)
	t.cursor.PendingWrap = false
}

// HorizontalTab moves the cursor right to the next tab stop, or to
// the scrolling region's right margin if none remains. No cell is
// written.
func (t *Terminal) HorizontalTab() {
	next := t.tabs.Next(t.cursor.X, t.region.Right)
	t.CursorAbsolute(next, t.cursor.Y)
}

// HorizontalTabBack is HorizontalTab's mirror: moves left to the
// previous tab stop, or to the origin-aware left limit if none
// remains.
func (t *Terminal) HorizontalTabBack() {
	limit := 0
	if t.modes.Has(ModeOrigin) {
		limit = t.region.Left
	}
	prev := t.tabs.Prev(t.cursor.X, limit)
	t.CursorAbsolute(prev, t.cursor.Y)
}
