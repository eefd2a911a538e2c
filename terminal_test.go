package termgrid

import "testing"

func cellAt(term *Terminal, x, y int) Cell {
	pin, ok := term.ActivePin(x, y)
	if !ok {
		return Cell(0)
	}
	page, row := pin.RowAt()
	return page.GetCell(x, row)
}

func graphemeAt(term *Terminal, x, y int) []rune {
	pin, ok := term.ActivePin(x, y)
	if !ok {
		return nil
	}
	page, row := pin.RowAt()
	return page.LookupGrapheme(x, row)
}

func setCellAt(term *Terminal, x, y int, c Cell) {
	pin, ok := term.ActivePin(x, y)
	if !ok {
		return
	}
	page, row := pin.RowAt()
	page.SetCell(x, row, c)
}

func TestTerminalPrintNarrowChar(t *testing.T) {
	term := New(10, 5)
	term.Print('a')
	if got := cellAt(term, 0, 0).Codepoint(); got != 'a' {
		t.Fatalf("cell(0,0) = %q, want 'a'", got)
	}
	if c := term.Cursor(); c.X != 1 {
		t.Errorf("cursor X after printing one narrow char = %d, want 1", c.X)
	}
}

func TestTerminalPrintWideChar(t *testing.T) {
	term := New(10, 5)
	term.Print('中') // CJK wide char
	if got := cellAt(term, 0, 0).Wide(); got != WideWide {
		t.Errorf("Wide at (0,0) = %v, want WideWide", got)
	}
	if got := cellAt(term, 1, 0).Wide(); got != WideSpacerTail {
		t.Errorf("Wide at (1,0) = %v, want WideSpacerTail", got)
	}
	if c := term.Cursor(); c.X != 2 {
		t.Errorf("cursor X after a wide char = %d, want 2", c.X)
	}
}

func TestTerminalPrintVS16AttachesWideGraphemeCluster(t *testing.T) {
	term := New(10, 1) // single row, so PlainString has no trailing blank lines to join in
	term.SetMode(ModeGraphemeCluster, true)
	// Seed the base cell directly rather than via Print, since the
	// text-presentation display width of U+2764 on its own is not the
	// behavior under test here: what's under test is what happens when
	// VS16 attaches to a narrow pictographic base.
	setCellAt(term, 0, 0, makeCell(0x2764, 0, WideNarrow, false))
	term.SetCursorPos(1, 2) // row 0, col 1: just past the seeded cell
	term.Print(0xFE0F)      // VS16: request emoji presentation

	if got := cellAt(term, 0, 0).Codepoint(); got != 0x2764 {
		t.Fatalf("cell(0,0) codepoint = %#x, want 0x2764", got)
	}
	if got := cellAt(term, 0, 0).Wide(); got != WideWide {
		t.Errorf("cell(0,0) wide = %v, want WideWide after VS16", got)
	}
	if got := cellAt(term, 1, 0).Wide(); got != WideSpacerTail {
		t.Errorf("cell(1,0) wide = %v, want WideSpacerTail", got)
	}
	g := graphemeAt(term, 0, 0)
	if len(g) != 1 || g[0] != 0xFE0F {
		t.Fatalf("grapheme at (0,0) = %v, want [0xFE0F]", g)
	}

	want := "❤️"
	if got := term.PlainString(); got != want {
		t.Errorf("PlainString = %q, want %q", got, want)
	}
}

func TestTerminalModeInsertShiftsExistingChars(t *testing.T) {
	term := New(5, 2)
	for _, r := range "abc" {
		term.Print(r)
	}
	term.SetCursorPos(1, 1) // row 0, col 0
	term.SetMode(ModeInsert, true)
	term.Print('X')

	if got := cellAt(term, 0, 0).Codepoint(); got != 'X' {
		t.Fatalf("cell(0,0) = %q, want 'X'", got)
	}
	if got := cellAt(term, 1, 0).Codepoint(); got != 'a' {
		t.Errorf("cell(1,0) = %q, want 'a' (shifted right)", got)
	}
	if got := cellAt(term, 2, 0).Codepoint(); got != 'b' {
		t.Errorf("cell(2,0) = %q, want 'b' (shifted right)", got)
	}
	if got := cellAt(term, 3, 0).Codepoint(); got != 'c' {
		t.Errorf("cell(3,0) = %q, want 'c' (shifted right)", got)
	}
}

func TestTerminalPendingWrapAndWraparound(t *testing.T) {
	term := New(4, 3)
	for _, r := range "abcd" {
		term.Print(r)
	}
	if c := term.Cursor(); !c.PendingWrap {
		t.Fatal("expected PendingWrap after filling the last column")
	}
	term.Print('e')
	if c := term.Cursor(); c.Y != 1 || c.X != 1 {
		t.Errorf("cursor after wrap-triggering print = (%d,%d), want (1,1)", c.X, c.Y)
	}
	if got := cellAt(term, 0, 1).Codepoint(); got != 'e' {
		t.Errorf("wrapped char landed at %q, want 'e' on row 1 col 0", got)
	}
}

func TestTerminalWraparoundDisabledClampsAtMargin(t *testing.T) {
	term := New(4, 3)
	term.SetMode(ModeWraparound, false)
	for _, r := range "abcd" {
		term.Print(r)
	}
	term.Print('e')
	if c := term.Cursor(); c.Y != 0 {
		t.Errorf("without wraparound the cursor should stay on row 0, got row %d", c.Y)
	}
}

func TestTerminalCarriageReturnLineFeed(t *testing.T) {
	term := New(10, 5)
	term.Print('a')
	term.CarriageReturn()
	if c := term.Cursor(); c.X != 0 {
		t.Errorf("CarriageReturn should reset X to 0, got %d", c.X)
	}
	term.LineFeed()
	if c := term.Cursor(); c.Y != 1 {
		t.Errorf("LineFeed should move down one row, got Y=%d", c.Y)
	}
}

func TestTerminalLineFeedWithLNM(t *testing.T) {
	term := New(10, 5)
	term.SetMode(ModeLinefeed, true)
	term.Print('a') // cursor now at X=1
	term.LineFeed()
	if c := term.Cursor(); c.X != 0 || c.Y != 1 {
		t.Errorf("LineFeed with LNM set = (%d,%d), want (0,1)", c.X, c.Y)
	}
}

func TestTerminalIndexScrollsAtBottom(t *testing.T) {
	term := New(10, 3)
	term.SetCursorPos(3, 1) // bottom row, 1-indexed
	before := term.Active().TotalRows()
	term.Index()
	if got := term.Active().TotalRows(); got != before+1 {
		t.Errorf("Index at the bottom row should grow scrollback, TotalRows = %d, want %d", got, before+1)
	}
}

func TestTerminalSetTopAndBottomMargin(t *testing.T) {
	term := New(10, 10)
	if err := term.SetTopAndBottomMargin(2, 5); err != nil {
		t.Fatalf("SetTopAndBottomMargin: %v", err)
	}
	r := term.Region()
	if r.Top != 1 || r.Bottom != 4 {
		t.Errorf("region = {Top:%d Bottom:%d}, want {1, 4}", r.Top, r.Bottom)
	}
}

func TestTerminalSetTopAndBottomMarginRejectsInverted(t *testing.T) {
	term := New(10, 10)
	if err := term.SetTopAndBottomMargin(5, 2); err == nil {
		t.Fatal("expected an error for top >= bottom")
	}
}

func TestTerminalSetLeftAndRightMarginRequiresMode(t *testing.T) {
	term := New(10, 10)
	if err := term.SetLeftAndRightMargin(2, 8); err != nil {
		t.Fatalf("SetLeftAndRightMargin without DECLRMM should be a no-op, not error: %v", err)
	}
	if r := term.Region(); r.Left != 0 || r.Right != 9 {
		t.Error("region should be unchanged without ModeLeftRightMargin")
	}

	term.SetMode(ModeLeftRightMargin, true)
	if err := term.SetLeftAndRightMargin(2, 8); err != nil {
		t.Fatalf("SetLeftAndRightMargin: %v", err)
	}
	if r := term.Region(); r.Left != 1 || r.Right != 7 {
		t.Errorf("region = {Left:%d Right:%d}, want {1, 7}", r.Left, r.Right)
	}
}

func TestTerminalInsertLinesAndDeleteLines(t *testing.T) {
	term := New(5, 4)
	for row := 0; row < 4; row++ {
		term.SetCursorPos(row+1, 1)
		term.Print(rune('0' + row))
	}

	term.SetCursorPos(2, 1) // row index 1 (the '1' row)
	term.InsertLines(1)
	if got := cellAt(term, 0, 1).Codepoint(); got != 0 {
		t.Errorf("InsertLines should blank the cursor's row, got %q", got)
	}
	if got := cellAt(term, 0, 2).Codepoint(); got != '1' {
		t.Errorf("InsertLines should push the old row down, got %q want '1'", got)
	}

	term.DeleteLines(1)
	if got := cellAt(term, 0, 1).Codepoint(); got != '1' {
		t.Errorf("DeleteLines should restore the shifted-down row, got %q want '1'", got)
	}
}

func TestTerminalEraseCharsSweepsWidePair(t *testing.T) {
	term := New(5, 2)
	term.Print('中') // wide char at (0,0)/(1,0)
	term.SetCursorPos(1, 1)
	term.EraseChars(1)
	if got := cellAt(term, 0, 0).Codepoint(); got != 0 {
		t.Error("EraseChars should clear the wide char's lead cell")
	}
	if got := cellAt(term, 1, 0).Wide(); got != WideNarrow {
		t.Error("EraseChars should also sweep the orphaned spacer_tail")
	}
}

func TestTerminalHorizontalTabAndBack(t *testing.T) {
	term := New(40, 3)
	term.HorizontalTab()
	if c := term.Cursor(); c.X != 7 {
		t.Errorf("first HorizontalTab from col 0 = %d, want 7", c.X)
	}
	term.HorizontalTabBack()
	if c := term.Cursor(); c.X != 0 {
		t.Errorf("HorizontalTabBack from col 7 = %d, want 0", c.X)
	}
}

func TestTerminalCursorLeftReverseWrap(t *testing.T) {
	term := New(5, 3)
	term.SetMode(ModeReverseWrap, true)
	term.SetCursorPos(2, 1) // row 1, col 0
	term.CursorLeft(1)
	if c := term.Cursor(); c.Y != 0 || c.X != 4 {
		t.Errorf("CursorLeft crossing the left margin with reverse_wrap = (%d,%d), want (4,0)", c.X, c.Y)
	}
}

func TestTerminalCursorLeftWithoutReverseWrapStopsAtMargin(t *testing.T) {
	term := New(5, 3)
	term.SetCursorPos(2, 1)
	term.CursorLeft(1)
	if c := term.Cursor(); c.Y != 1 || c.X != 0 {
		t.Errorf("CursorLeft without reverse_wrap = (%d,%d), want (0,1)", c.X, c.Y)
	}
}
