package termgrid

import "testing"

func TestNewTabstopsDefaultEvery8Columns(t *testing.T) {
	ts := NewTabstops(40)
	for _, col := range []int{7, 15, 23, 31} {
		if !ts.IsSet(col) {
			t.Errorf("col %d should be a default stop", col)
		}
	}
	if ts.IsSet(8) {
		t.Error("col 8 should not be a default stop")
	}
}

func TestTabstopsSetClear(t *testing.T) {
	ts := NewTabstops(20)
	ts.Set(5)
	if !ts.IsSet(5) {
		t.Fatal("Set(5) should make IsSet(5) true")
	}
	ts.Clear(5)
	if ts.IsSet(5) {
		t.Fatal("Clear(5) should make IsSet(5) false")
	}
}

func TestTabstopsSetClearOutOfRangeNoPanic(t *testing.T) {
	ts := NewTabstops(20)
	ts.Set(-1)
	ts.Set(100)
	ts.Clear(-1)
	ts.Clear(100)
	if ts.IsSet(-1) || ts.IsSet(100) {
		t.Error("out-of-range columns should never report as set")
	}
}

func TestTabstopsClearAll(t *testing.T) {
	ts := NewTabstops(40)
	ts.ClearAll()
	for col := 0; col < 40; col++ {
		if ts.IsSet(col) {
			t.Fatalf("col %d should be clear after ClearAll", col)
		}
	}
}

func TestTabstopsNext(t *testing.T) {
	ts := NewTabstops(40)
	if got := ts.Next(0, 39); got != 7 {
		t.Errorf("Next(0, 39) = %d, want 7", got)
	}
	if got := ts.Next(7, 39); got != 15 {
		t.Errorf("Next(7, 39) = %d, want 15", got)
	}
}

func TestTabstopsNextClampsToLimit(t *testing.T) {
	ts := NewTabstops(40)
	ts.ClearAll()
	if got := ts.Next(0, 39); got != 39 {
		t.Errorf("Next with no stops set = %d, want limit 39", got)
	}
}

func TestTabstopsPrev(t *testing.T) {
	ts := NewTabstops(40)
	if got := ts.Prev(20, 0); got != 15 {
		t.Errorf("Prev(20, 0) = %d, want 15", got)
	}
}

func TestTabstopsPrevClampsToLimit(t *testing.T) {
	ts := NewTabstops(40)
	ts.ClearAll()
	if got := ts.Prev(20, 0); got != 0 {
		t.Errorf("Prev with no stops set = %d, want limit 0", got)
	}
}

func TestTabstopsResizeGrowPreservesStops(t *testing.T) {
	ts := NewTabstops(20)
	ts.Set(5)
	ts.Resize(40)
	if !ts.IsSet(5) {
		t.Error("stop at col 5 should survive growing the width")
	}
	if ts.IsSet(30) {
		t.Error("newly exposed columns should start clear")
	}
}

func TestTabstopsResizeSpillsToHeap(t *testing.T) {
	ts := NewTabstops(40)
	ts.Set(5)
	ts.Resize(inlineTabstopCols + 64)
	if ts.spill == nil {
		t.Fatal("resizing past inlineTabstopCols should spill to heap storage")
	}
	if !ts.IsSet(5) {
		t.Error("stop at col 5 should survive spilling to heap storage")
	}
}

func TestTabstopsResizeShrinksBackToInline(t *testing.T) {
	ts := NewTabstops(inlineTabstopCols + 64)
	ts.Set(5)
	ts.Resize(40)
	if ts.spill != nil {
		t.Error("resizing back under inlineTabstopCols should drop heap storage")
	}
	if !ts.IsSet(5) {
		t.Error("stop at col 5 should survive shrinking back to inline storage")
	}
}
