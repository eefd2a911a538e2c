package termgrid

import "testing"

func TestNewScreenCursorStartsAtOrigin(t *testing.T) {
	s := NewScreen(10, 5, 100)
	c := s.Cursor()
	if c.X != 0 || c.Y != 0 {
		t.Errorf("cursor = (%d, %d), want (0, 0)", c.X, c.Y)
	}
}

func TestScreenAlternateScreenRoundTrip(t *testing.T) {
	s := NewScreen(10, 5, 100)
	page, x, y := s.cell()
	page.SetCell(x, y, makeCell('p', 0, WideNarrow, false))

	s.EnterAlternateScreen()
	if !s.IsAlternateScreen() {
		t.Fatal("IsAlternateScreen should be true after entering")
	}
	altPage, altX, altY := s.cell()
	if altPage.GetCell(altX, altY).Codepoint() != 0 {
		t.Error("alternate screen should start empty")
	}

	s.ExitAlternateScreen()
	if s.IsAlternateScreen() {
		t.Fatal("IsAlternateScreen should be false after exiting")
	}
	primaryPage, primaryX, primaryY := s.cell()
	if got := primaryPage.GetCell(primaryX, primaryY).Codepoint(); got != 'p' {
		t.Errorf("primary content after exiting alt screen = %q, want 'p'", got)
	}
}

func TestScreenEnterAlternateScreenIsIdempotent(t *testing.T) {
	s := NewScreen(10, 5, 100)
	s.EnterAlternateScreen()
	s.EnterAlternateScreen()
	if !s.IsAlternateScreen() {
		t.Fatal("expected alternate screen to remain active")
	}
}

func TestScreenCursorMotionClampsAtEdges(t *testing.T) {
	s := NewScreen(10, 5, 100)
	s.CursorLeft(100)
	if c := s.Cursor(); c.X != 0 {
		t.Errorf("CursorLeft past 0 should clamp, got X=%d", c.X)
	}

	for i := 0; i < 100; i++ {
		s.CursorDown()
	}
	if c := s.Cursor(); c.Y != s.Rows()-1 {
		t.Errorf("CursorDown past last row should clamp, got Y=%d, want %d", c.Y, s.Rows()-1)
	}
}

func TestScreenCursorDownScrollGrowsScrollback(t *testing.T) {
	s := NewScreen(10, 5, 100)
	before := s.Active().TotalRows()
	if err := s.CursorDownScroll(); err != nil {
		t.Fatalf("CursorDownScroll: %v", err)
	}
	if got := s.Active().TotalRows(); got != before+1 {
		t.Errorf("TotalRows = %d, want %d", got, before+1)
	}
	if c := s.Cursor(); c.Y != s.Rows()-1 {
		t.Errorf("cursor Y after CursorDownScroll = %d, want %d", c.Y, s.Rows()-1)
	}
}

func TestScreenDirtyFlag(t *testing.T) {
	s := NewScreen(10, 5, 100)
	s.ClearDirty()
	if s.Dirty() {
		t.Fatal("Dirty should be false right after ClearDirty")
	}
	s.MarkDirty()
	if !s.Dirty() {
		t.Fatal("Dirty should be true after MarkDirty")
	}
}

func TestScreenPlainStringTrimsTrailingBlanks(t *testing.T) {
	s := NewScreen(5, 2, 100)
	page, _, y := s.cell()
	page.SetCell(0, y, makeCell('h', 0, WideNarrow, false))
	page.SetCell(1, y, makeCell('i', 0, WideNarrow, false))

	got := s.PlainString()
	want := "hi\n"
	if got != want {
		t.Errorf("PlainString = %q, want %q", got, want)
	}
}

func TestScreenSelectionNormalizesOrder(t *testing.T) {
	s := NewScreen(10, 5, 100)
	s.SetSelection(SelectionPoint{Row: 3, Col: 2}, SelectionPoint{Row: 1, Col: 0})
	sel := s.GetSelection()
	if sel.Start.Row != 1 || sel.End.Row != 3 {
		t.Errorf("selection not normalized: start=%+v end=%+v", sel.Start, sel.End)
	}
}

func TestScreenIsSelected(t *testing.T) {
	s := NewScreen(10, 5, 100)
	s.SetSelection(SelectionPoint{Row: 1, Col: 2}, SelectionPoint{Row: 1, Col: 5})
	if !s.IsSelected(1, 3) {
		t.Error("(1,3) should be inside the selection")
	}
	if s.IsSelected(1, 6) {
		t.Error("(1,6) should be outside the selection")
	}
	if s.IsSelected(0, 3) {
		t.Error("(0,3) should be outside the selection (different row)")
	}
}

func TestScreenClearSelectionDeactivates(t *testing.T) {
	s := NewScreen(10, 5, 100)
	s.SetSelection(SelectionPoint{Row: 0, Col: 0}, SelectionPoint{Row: 0, Col: 1})
	s.ClearSelection()
	if s.GetSelection().Active {
		t.Fatal("selection should be inactive after ClearSelection")
	}
	if s.IsSelected(0, 0) {
		t.Error("IsSelected should be false once selection is cleared")
	}
}

func TestScreenSelectedText(t *testing.T) {
	s := NewScreen(5, 2, 100)
	page, _, y := s.cell()
	for i, r := range []rune("hello") {
		page.SetCell(i, y, makeCell(r, 0, WideNarrow, false))
	}
	s.SetSelection(SelectionPoint{Row: 0, Col: 1}, SelectionPoint{Row: 0, Col: 3})
	if got, want := s.SelectedText(), "ell"; got != want {
		t.Errorf("SelectedText = %q, want %q", got, want)
	}
}

func TestScreenSearch(t *testing.T) {
	s := NewScreen(10, 2, 100)
	page, _, y := s.cell()
	for i, r := range []rune("foobar") {
		page.SetCell(i, y, makeCell(r, 0, WideNarrow, false))
	}
	matches := s.Search("bar")
	if len(matches) != 1 {
		t.Fatalf("Search matches = %d, want 1", len(matches))
	}
	if matches[0].Row != 0 || matches[0].Col != 3 {
		t.Errorf("match = %+v, want {Row:0 Col:3}", matches[0])
	}
}

func TestScreenSearchEmptyPattern(t *testing.T) {
	s := NewScreen(10, 2, 100)
	if got := s.Search(""); got != nil {
		t.Errorf("Search(\"\") = %v, want nil", got)
	}
}

func TestScreenSearchScrollbackCoversHistory(t *testing.T) {
	s := NewScreen(5, 2, 100)
	for i := 0; i < 10; i++ {
		if err := s.CursorDownScroll(); err != nil {
			t.Fatalf("CursorDownScroll: %v", err)
		}
	}
	page, _, y := s.cell()
	for i, r := range []rune("needle") {
		if i >= s.Cols() {
			break
		}
		page.SetCell(i, y, makeCell(r, 0, WideNarrow, false))
	}
	matches := s.SearchScrollback("needle")
	if len(matches) == 0 {
		t.Fatal("expected at least one match scanning scrollback+active")
	}
}

func TestScrollToTopAndBack(t *testing.T) {
	s := NewScreen(5, 2, 100)
	for i := 0; i < 10; i++ {
		if err := s.CursorDownScroll(); err != nil {
			t.Fatalf("CursorDownScroll: %v", err)
		}
	}
	s.ScrollToTop()
	if s.viewportPin == nil {
		t.Fatal("ScrollToTop should pin the viewport")
	}
	s.ScrollToActive()
	if s.viewportPin != nil {
		t.Error("ScrollToActive should clear the viewport pin")
	}
}
