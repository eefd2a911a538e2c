package termgrid

import "testing"

func TestDiacriticIndexRoundTrip(t *testing.T) {
	for _, i := range []int{0, 1, 53, 54, 100, 297} {
		mark := diacriticTable[i]
		if got := diacriticIndex(mark); got != i {
			t.Errorf("diacriticIndex(%U) = %d, want %d", mark, got, i)
		}
	}
}

func TestDiacriticIndexUnknownMark(t *testing.T) {
	if got := diacriticIndex(0x41); got != -1 {
		t.Errorf("diacriticIndex of a non-diacritic rune = %d, want -1", got)
	}
}

func TestScanVirtualPlacementsDecodesPlaceholder(t *testing.T) {
	pl := NewPageList(10, 3, 100)
	origin, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	page, y := origin.RowAt()

	page.SetCell(2, y, makeCell(placeholderCodepoint, 0, WideNarrow, false))
	page.AppendGrapheme(2, y, diacriticTable[1])
	page.AppendGrapheme(2, y, diacriticTable[3])

	start, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	got := ScanVirtualPlacements(pl, start, DirectionForward, 0)
	if len(got) != 1 {
		t.Fatalf("ScanVirtualPlacements found %d placements, want 1", len(got))
	}
	if got[0].Row != 1 || got[0].Col != 3 {
		t.Errorf("decoded (Row,Col) = (%d,%d), want (1,3)", got[0].Row, got[0].Col)
	}
	if got[0].Pin.X != 2 {
		t.Errorf("decoded Pin.X = %d, want 2", got[0].Pin.X)
	}
}

func TestScanVirtualPlacementsSkipsRowsWithoutGraphemeHint(t *testing.T) {
	pl := NewPageList(10, 3, 100)
	start, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	got := ScanVirtualPlacements(pl, start, DirectionForward, 0)
	if len(got) != 0 {
		t.Errorf("ScanVirtualPlacements on a blank page list found %d, want 0", len(got))
	}
}

func TestScanVirtualPlacementsIgnoresSingleDiacritic(t *testing.T) {
	pl := NewPageList(10, 3, 100)
	origin, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	page, y := origin.RowAt()

	page.SetCell(0, y, makeCell(placeholderCodepoint, 0, WideNarrow, false))
	page.AppendGrapheme(0, y, diacriticTable[0]) // only one mark, not two

	start, _ := pl.Pin(Point{Tag: PointActive, X: 0, Y: 0})
	got := ScanVirtualPlacements(pl, start, DirectionForward, 0)
	if len(got) != 0 {
		t.Errorf("a placeholder cell with only one diacritic should not decode, got %d", len(got))
	}
}
