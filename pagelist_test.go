package termgrid

import "testing"

func TestPageListPinActiveOrigin(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	p, ok := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	if !ok {
		t.Fatal("Pin(PointActive) failed on a fresh list")
	}
	if p.rowIndex != 0 {
		t.Errorf("rowIndex = %d, want 0", p.rowIndex)
	}
}

func TestPageListPinWalksOffEnd(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	if _, ok := pl.Pin(Point{Tag: PointActive, X: 0, Y: 999}); ok {
		t.Fatal("Pin should fail walking far past the end of the list")
	}
}

func TestPageListScreenVsActiveOrigin(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	for i := 0; i < 20; i++ {
		if err := pl.CursorDownScroll(); err != nil {
			t.Fatalf("CursorDownScroll: %v", err)
		}
	}

	screenOrigin, ok := pl.Pin(Point{Tag: PointScreen, X: 0, Y: 0})
	if !ok {
		t.Fatal("Pin(PointScreen) failed")
	}
	activeOrigin, ok := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	if !ok {
		t.Fatal("Pin(PointActive) failed")
	}
	if screenOrigin.globalRow() >= activeOrigin.globalRow() {
		t.Errorf("screen origin (row %d) should precede active origin (row %d) once scrollback exists",
			screenOrigin.globalRow(), activeOrigin.globalRow())
	}
}

func TestPinEqual(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	a, _ := pl.Pin(Point{Tag: PointActive, X: 2, Y: 1})
	b, _ := pl.Pin(Point{Tag: PointActive, X: 7, Y: 1})
	if !a.Equal(b) {
		t.Error("pins on the same (page, row) should be Equal regardless of X")
	}
	c, _ := pl.Pin(Point{Tag: PointActive, X: 2, Y: 2})
	if a.Equal(c) {
		t.Error("pins on different rows should not be Equal")
	}
}

func TestPinIsBetween(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	topLeft, _ := pl.Pin(Point{Tag: PointActive, X: 2, Y: 1})
	bottomRight, _ := pl.Pin(Point{Tag: PointActive, X: 7, Y: 3})

	mid, _ := pl.Pin(Point{Tag: PointActive, X: 5, Y: 2})
	if !mid.IsBetween(topLeft, bottomRight) {
		t.Error("a pin on a row strictly between top and bottom should be inside regardless of column")
	}

	leftOfTop, _ := pl.Pin(Point{Tag: PointActive, X: 1, Y: 1})
	if leftOfTop.IsBetween(topLeft, bottomRight) {
		t.Error("a pin left of topLeft.X on the top row should fall outside")
	}

	rightOfBottom, _ := pl.Pin(Point{Tag: PointActive, X: 8, Y: 3})
	if rightOfBottom.IsBetween(topLeft, bottomRight) {
		t.Error("a pin right of bottomRight.X on the bottom row should fall outside")
	}

	aboveRow, _ := pl.Pin(Point{Tag: PointActive, X: 5, Y: 0})
	if aboveRow.IsBetween(topLeft, bottomRight) {
		t.Error("a pin on a row above top should fall outside")
	}

	belowRow, _ := pl.Pin(Point{Tag: PointActive, X: 5, Y: 4})
	if belowRow.IsBetween(topLeft, bottomRight) {
		t.Error("a pin on a row below bottom should fall outside")
	}
}

func TestPinUpDownOverflowRoundTrip(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	for i := 0; i < 5; i++ {
		if err := pl.CursorDownScroll(); err != nil {
			t.Fatalf("CursorDownScroll: %v", err)
		}
	}
	start, _ := pl.Pin(Point{Tag: PointScreen, X: 0, Y: 0})

	down, overflow := pl.PinDownOverflow(start, 3)
	if overflow != nil {
		t.Fatalf("unexpected overflow walking down 3 rows: %+v", overflow)
	}
	back, overflow := pl.PinUpOverflow(down, 3)
	if overflow != nil {
		t.Fatalf("unexpected overflow walking back up 3 rows: %+v", overflow)
	}
	if !back.Equal(start) {
		t.Errorf("round trip down-then-up should return to the start pin")
	}
}

func TestPinDownOverflowClampsAtEnd(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	start, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	_, overflow := pl.PinDownOverflow(start, 1000)
	if overflow == nil {
		t.Fatal("expected overflow walking far past the end")
	}
	if overflow.Remaining <= 0 {
		t.Errorf("Remaining = %d, want > 0", overflow.Remaining)
	}
}

func TestPinUpOverflowClampsAtStart(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	start, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	_, overflow := pl.PinUpOverflow(start, 1000)
	if overflow == nil {
		t.Fatal("expected overflow walking before the start")
	}
}

func TestRowIteratorForward(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	start, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	next := pl.RowIterator(start, DirectionForward, 0)

	count := 0
	var last *Pin
	for {
		p, ok := next()
		if !ok {
			break
		}
		last = p
		count++
		if count > 1000 {
			t.Fatal("iterator did not terminate")
		}
	}
	if count != 5 {
		t.Errorf("forward iteration count = %d, want 5", count)
	}
	if last == nil {
		t.Fatal("expected a last pin")
	}
}

func TestRowIteratorReverse(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	end, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 4})
	next := pl.RowIterator(end, DirectionReverse, 0)

	count := 0
	for {
		_, ok := next()
		if !ok {
			break
		}
		count++
		if count > 1000 {
			t.Fatal("iterator did not terminate")
		}
	}
	if count != 5 {
		t.Errorf("reverse iteration count = %d, want 5", count)
	}
}

func TestRowIteratorRespectsLimit(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	start, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	next := pl.RowIterator(start, DirectionForward, 2)

	count := 0
	for {
		_, ok := next()
		if !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("limited iteration count = %d, want 2", count)
	}
}

func TestPageListTrackedPinMigratesOnEviction(t *testing.T) {
	pl := NewPageList(10, 5, 1) // tiny scrollback so eviction kicks in fast
	origin, _ := pl.Pin(Point{Tag: PointScreen, X: 0, Y: 0})
	tracked := pl.TrackPin(&Pin{node: origin.node, rowIndex: origin.rowIndex, X: 0})
	defer pl.UntrackPin(tracked)

	for i := 0; i < 50; i++ {
		if err := pl.CursorDownScroll(); err != nil {
			t.Fatalf("CursorDownScroll: %v", err)
		}
	}

	if tracked.node == nil {
		t.Fatal("tracked pin's node should never become nil")
	}
}

func TestPageListCursorDownScrollGrowsTotalRows(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	before := pl.TotalRows()
	if err := pl.CursorDownScroll(); err != nil {
		t.Fatalf("CursorDownScroll: %v", err)
	}
	if pl.TotalRows() != before+1 {
		t.Errorf("TotalRows = %d, want %d", pl.TotalRows(), before+1)
	}
}

func TestPageListScrollbackRowsNeverNegative(t *testing.T) {
	pl := NewPageList(10, 5, 100)
	if got := pl.ScrollbackRows(); got != 0 {
		t.Errorf("ScrollbackRows on a fresh list = %d, want 0", got)
	}
}
