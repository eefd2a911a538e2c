package termgrid

import "strings"

// Cursor is the print engine's current position and style state.
// Its tracked pin is a derived cache of (X, Y) against the active
// area; it must be refreshed (via Screen.CursorAbsolute)
// whenever an operation could have moved rows in memory — insertLines,
// scrollDown, or any direct jump to an absolute position.
type Cursor struct {
	X, Y        int
	PendingWrap bool
	StyleID     StyleID

	pin *Pin // tracked; nil until the first CursorAbsolute call
}

// Screen owns the primary and alternate page lists, the cursor, and
// the viewport pin used when the user has scrolled back. The
// alternate screen is constructed with maxScrollback=0; since
// scrollback is evicted a whole page at a time, rows scrolled off its
// active area stay in its page list until their page is dropped.
type Screen struct {
	cols, rows int

	primary   *PageList
	alternate *PageList
	active    *PageList
	onAlt     bool

	cursor Cursor

	// viewportPin is nil when the viewport is pinned to the active
	// area (the common case); non-nil while the user has scrolled
	// back into history.
	viewportPin *Pin

	dirty bool

	selection Selection
}

// NewScreen creates a screen with the given size and primary-buffer
// scrollback limit (in rows; enforced a whole page at a time, see
// PageList).
func NewScreen(cols, rows, maxScrollback int) *Screen {
	s := &Screen{
		cols:      cols,
		rows:      rows,
		primary:   NewPageList(cols, rows, maxScrollback),
		alternate: NewPageList(cols, rows, 0),
	}
	s.active = s.primary
	s.CursorAbsolute(0, 0)
	return s
}

// Cols and Rows report the screen's fixed active-area dimensions.
func (s *Screen) Cols() int { return s.cols }
func (s *Screen) Rows() int { return s.rows }

// Cursor returns a copy of the current cursor state.
func (s *Screen) Cursor() Cursor { return s.cursor }

// IsAlternateScreen reports whether the alternate buffer is active.
func (s *Screen) IsAlternateScreen() bool { return s.onAlt }

// EnterAlternateScreen switches to the alternate buffer (which always
// has an empty, freshly-sized active area) and resets its cursor.
func (s *Screen) EnterAlternateScreen() {
	if s.onAlt {
		return
	}
	s.onAlt = true
	s.active = s.alternate
	s.CursorAbsolute(0, 0)
	s.MarkDirty()
}

// ExitAlternateScreen switches back to the primary buffer, leaving its
// content and cursor exactly as they were before entry.
func (s *Screen) ExitAlternateScreen() {
	if !s.onAlt {
		return
	}
	s.onAlt = false
	s.active = s.primary
	s.CursorAbsolute(s.cursor.X, s.cursor.Y)
	s.MarkDirty()
}

// Active returns the currently active page list (primary or
// alternate).
func (s *Screen) Active() *PageList { return s.active }

// MarkDirty sets the monotonic dirty flag; the renderer is expected
// to clear it after drawing.
func (s *Screen) MarkDirty() { s.dirty = true }

// Dirty reports whether any mutation has happened since the last
// ClearDirty.
func (s *Screen) Dirty() bool { return s.dirty }

// ClearDirty resets the dirty flag. Only the renderer should call
// this.
func (s *Screen) ClearDirty() { s.dirty = false }

// CursorAbsolute moves the cursor to (x, y) in active-area
// coordinates and reloads its tracked pin from scratch. This is the
// only way the cursor's pin is refreshed, and must be
// called after any operation that might have relocated rows.
func (s *Screen) CursorAbsolute(x, y int) {
	if s.cursor.pin != nil {
		s.active.UntrackPin(s.cursor.pin)
	}
	pin, ok := s.active.Pin(Point{Tag: PointActive, X: x, Y: y})
	if !ok {
		pin, _ = s.active.Pin(Point{Tag: PointActive, X: x, Y: 0})
	}
	s.cursor.X, s.cursor.Y = x, y
	s.cursor.pin = s.active.TrackPin(pin)
	s.cursor.PendingWrap = false
}

// cell returns the page and (x,y) the cursor currently addresses.
func (s *Screen) cell() (*Page, int, int) {
	page, y := s.cursor.pin.RowAt()
	return page, s.cursor.X, y
}

// ActivePin resolves (x, y) in active-area coordinates to an
// untracked Pin, for callers (e.g. cross-row cleanup in print) that
// need to walk to a neighboring row without disturbing the cursor's
// own tracked pin.
func (s *Screen) ActivePin(x, y int) (*Pin, bool) {
	return s.active.Pin(Point{Tag: PointActive, X: x, Y: y})
}

// CursorRight advances the cursor one column, refreshing page/row
// state if doing so crosses a page boundary (it never will in this
// port, since a row never spans pages, but the absolute reload is
// cheap and keeps the contract honest for future paging changes).
func (s *Screen) CursorRight() {
	s.CursorAbsolute(s.cursor.X+1, s.cursor.Y)
}

// CursorDown advances the cursor one row without scrolling, clamped
// to the active area's last row.
func (s *Screen) CursorDown() {
	y := s.cursor.Y + 1
	if y > s.rows-1 {
		y = s.rows - 1
	}
	s.CursorAbsolute(s.cursor.X, y)
}

// CursorLeft moves the cursor left by n columns, clamped at 0.
func (s *Screen) CursorLeft(n int) {
	x := s.cursor.X - n
	if x < 0 {
		x = 0
	}
	s.CursorAbsolute(x, s.cursor.Y)
}

// CursorDownScroll grows the active area by one row (extending the
// tail page or appending a new one, evicting scrollback as needed)
// and moves the cursor to the new bottom row at its current column.
func (s *Screen) CursorDownScroll() error {
	if err := s.active.CursorDownScroll(); err != nil {
		return err
	}
	s.CursorAbsolute(s.cursor.X, s.rows-1)
	s.MarkDirty()
	return nil
}

// ScrollToTop pins the viewport to the first row of scrollback.
func (s *Screen) ScrollToTop() {
	pin, ok := s.active.Pin(Point{Tag: PointScreen, X: 0, Y: 0})
	if ok {
		s.viewportPin = pin
	}
}

// ScrollToActive re-pins the viewport to the active area (the normal,
// non-scrolled-back state).
func (s *Screen) ScrollToActive() {
	s.viewportPin = nil
}

// viewportOrigin returns the (node, rowIndex) the viewport currently
// starts at, falling back to the active area's origin when not
// scrolled back.
func (s *Screen) viewportOrigin() *Pin {
	if s.viewportPin != nil {
		return s.viewportPin
	}
	pin, _ := s.active.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	return pin
}

// PlainString dumps the viewport (the active area unless the user has
// scrolled back) as text, one line per row joined
// by "\n", with trailing blank columns of each row trimmed. Wide
// spacer cells contribute no character of their own.
func (s *Screen) PlainString() string {
	return s.dumpFrom(s.viewportOrigin(), s.rows)
}

// ScrollbackString dumps the full page list (scrollback + active) as
// text, same trimming rules as PlainString.
func (s *Screen) ScrollbackString() string {
	origin, _ := s.active.Pin(Point{Tag: PointScreen, X: 0, Y: 0})
	return s.dumpFrom(origin, s.active.TotalRows())
}

func (s *Screen) dumpFrom(origin *Pin, n int) string {
	var lines []string
	next := s.active.RowIterator(origin, DirectionForward, n)
	for {
		pin, ok := next()
		if !ok {
			break
		}
		page, y := pin.RowAt()
		lines = append(lines, lineText(page, y))
	}
	return strings.Join(lines, "\n")
}

// SelectionPoint is a (row, col) position in active-area coordinates,
// as used by Selection and Search results.
type SelectionPoint struct {
	Row, Col int
}

// Before reports whether p sorts strictly before o in row-major order.
func (p SelectionPoint) Before(o SelectionPoint) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Col < o.Col
}

// Selection is a linear (row-major, not box) text region, start
// and end normalized so Start never sorts after End.
type Selection struct {
	Start, End SelectionPoint
	Active     bool
}

// SetSelection activates a selection, normalizing start/end order.
func (s *Screen) SetSelection(start, end SelectionPoint) {
	if end.Before(start) {
		start, end = end, start
	}
	s.selection = Selection{Start: start, End: end, Active: true}
}

// ClearSelection deactivates the current selection.
func (s *Screen) ClearSelection() { s.selection.Active = false }

// GetSelection returns the current selection state.
func (s *Screen) GetSelection() Selection { return s.selection }

// IsSelected reports whether (row, col) falls within the active
// selection.
func (s *Screen) IsSelected(row, col int) bool {
	if !s.selection.Active {
		return false
	}
	p := SelectionPoint{Row: row, Col: col}
	return !p.Before(s.selection.Start) && !s.selection.End.Before(p)
}

// SelectedText extracts the active selection's text content, one line
// per row, empty cells rendered as spaces.
func (s *Screen) SelectedText() string {
	if !s.selection.Active {
		return ""
	}
	start, end := s.selection.Start, s.selection.End
	var lines []string
	for row := start.Row; row <= end.Row && row < s.rows; row++ {
		startCol, endCol := 0, s.cols
		if row == start.Row {
			startCol = start.Col
		}
		if row == end.Row {
			endCol = end.Col + 1
		}
		pin, ok := s.active.Pin(Point{Tag: PointActive, X: 0, Y: row})
		if !ok {
			continue
		}
		page, y := pin.RowAt()
		cells := page.GetCells(y)
		var sb strings.Builder
		for col := startCol; col < endCol && col < len(cells); col++ {
			c := cells[col]
			if c.Wide() == WideSpacerTail || c.Wide() == WideSpacerHead {
				continue
			}
			if c.Codepoint() == 0 {
				sb.WriteRune(' ')
			} else {
				sb.WriteRune(c.Codepoint())
			}
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// Search finds every occurrence of pattern in the active area's
// visible text, returning the position of each match's first rune.
func (s *Screen) Search(pattern string) []SelectionPoint {
	if pattern == "" {
		return nil
	}
	pr := []rune(pattern)
	var matches []SelectionPoint
	for row := 0; row < s.rows; row++ {
		pin, ok := s.active.Pin(Point{Tag: PointActive, X: 0, Y: row})
		if !ok {
			continue
		}
		page, y := pin.RowAt()
		lr := []rune(lineText(page, y))
		for col := 0; col <= len(lr)-len(pr); col++ {
			if runesEqual(lr[col:col+len(pr)], pr) {
				matches = append(matches, SelectionPoint{Row: row, Col: col})
			}
		}
	}
	return matches
}

// SearchScrollback finds every occurrence of pattern across the full
// page list (scrollback + active), returning positions in screen
// coordinates (row 0 is the oldest scrollback line).
func (s *Screen) SearchScrollback(pattern string) []SelectionPoint {
	if pattern == "" {
		return nil
	}
	pr := []rune(pattern)
	var matches []SelectionPoint
	origin, _ := s.active.Pin(Point{Tag: PointScreen, X: 0, Y: 0})
	next := s.active.RowIterator(origin, DirectionForward, s.active.TotalRows())
	row := 0
	for {
		pin, ok := next()
		if !ok {
			break
		}
		page, y := pin.RowAt()
		lr := []rune(lineText(page, y))
		for col := 0; col <= len(lr)-len(pr); col++ {
			if runesEqual(lr[col:col+len(pr)], pr) {
				matches = append(matches, SelectionPoint{Row: row, Col: col})
			}
		}
		row++
	}
	return matches
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// lineText renders one row's visible text, skipping spacer cells and
// trimming trailing blanks.
func lineText(page *Page, y int) string {
	cells := page.GetCells(y)
	last := -1
	for i, c := range cells {
		if c.Wide() == WideSpacerTail || c.Wide() == WideSpacerHead {
			continue
		}
		if c.Codepoint() != 0 && c.Codepoint() != ' ' {
			last = i
		}
	}
	if last < 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i <= last; i++ {
		c := cells[i]
		if c.Wide() == WideSpacerTail || c.Wide() == WideSpacerHead {
			continue
		}
		cp := c.Codepoint()
		if cp == 0 {
			sb.WriteRune(' ')
		} else {
			sb.WriteRune(cp)
			if g := page.LookupGrapheme(i, y); len(g) > 0 {
				for _, extra := range g {
					sb.WriteRune(extra)
				}
			}
		}
	}
	return sb.String()
}
