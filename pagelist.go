package termgrid

import "fmt"

// pageNode is one node of the PageList's doubly-linked list.
type pageNode struct {
	page       *Page
	prev, next *pageNode
}

// PointTag selects which origin a Point's (x, y) coordinate is
// relative to.
type PointTag int

const (
	// PointActive addresses the active (cursor-reachable) area: the
	// last Rows rows of the page list. Its bottom-right may reference
	// rows that exist in capacity but have not been written yet.
	PointActive PointTag = iota
	// PointViewport addresses whatever is currently scrolled into
	// view; equal to PointActive when not scrolled back.
	PointViewport
	// PointScreen addresses from the very first page, row 0.
	PointScreen
	// PointHistory is an alias of PointScreen used by callers that
	// want to make the "this coordinate may be scrollback" intent
	// explicit at the call site.
	PointHistory
)

// Point is a coordinate tagged with the origin it's relative to.
type Point struct {
	Tag  PointTag
	X, Y int
}

// Pin is a tracked, stable pointer into the page list. The list
// migrates a tracked Pin's page/row automatically across splits,
// merges and evictions; untracked Pin values are plain snapshots that
// go stale the moment the list mutates.
type Pin struct {
	node     *pageNode
	rowIndex int
	X        int
}

// Equal compares pins by (page, row); x is not part of
// identity for ordering two rows).
func (p *Pin) Equal(o *Pin) bool {
	return p.node == o.node && p.rowIndex == o.rowIndex
}

// IsBetween reports whether p falls within the rectangle spanned by
// topLeft and bottomRight (inclusive), implementing the containment
// check placements use to test intersection with a pin.
func (p *Pin) IsBetween(topLeft, bottomRight *Pin) bool {
	lo := topLeft.globalRow()
	hi := bottomRight.globalRow()
	r := p.globalRow()
	if r < lo || r > hi {
		return false
	}
	if r == lo && p.X < topLeft.X {
		return false
	}
	if r == hi && p.X > bottomRight.X {
		return false
	}
	return true
}

// PageList is a doubly-linked list of fixed-capacity pages forming
// scrollback (older pages) plus the active area (the tail of the
// last page, or several pages if the active area spans a page
// boundary). New pages are appended on demand; pages beyond
// maxScrollback are evicted from the head.
type PageList struct {
	first, last   *pageNode
	cols          int
	rows          int // active area height
	maxScrollback int // scrollback rows to keep; pages are evicted whole, so more may remain
	totalRows     int // sum of all pages' logical row counts

	pins map[*Pin]struct{}
}

// NewPageList creates a list with one page sized to hold at least the
// active area, using DefaultCapacity (adjusted to cols) as the page
// template.
func NewPageList(cols, rows, maxScrollback int) *PageList {
	cap, err := DefaultCapacity.Adjust(cols)
	if err != nil || cap.Size.Rows < rows {
		cap = Capacity{Size: Size{Cols: cols, Rows: rows}, Styles: DefaultCapacity.Styles, GraphemeBytes: DefaultCapacity.GraphemeBytes}
	}

	pl := &PageList{
		cols:          cols,
		rows:          rows,
		maxScrollback: maxScrollback,
		pins:          make(map[*Pin]struct{}),
	}
	first := &pageNode{page: NewPage(cap)}
	if err := first.page.Resize(Size{Cols: cols, Rows: rows}); err != nil {
		panic(err)
	}
	pl.first, pl.last = first, first
	pl.totalRows = rows
	return pl
}

// Cols returns the list's fixed column width.
func (pl *PageList) Cols() int { return pl.cols }

// Rows returns the active area's row count.
func (pl *PageList) Rows() int { return pl.rows }

// TotalRows returns the total number of logical rows across every
// page (scrollback + active).
func (pl *PageList) TotalRows() int { return pl.totalRows }

// ScrollbackRows returns how many rows precede the active area.
func (pl *PageList) ScrollbackRows() int {
	n := pl.totalRows - pl.rows
	if n < 0 {
		return 0
	}
	return n
}

// activeOrigin locates the page/row-index that is logical row 0 of
// the active area: walk backward from the tail summing each page's
// row count until the running total reaches pl.rows.
func (pl *PageList) activeOrigin() (*pageNode, int) {
	remaining := pl.rows
	node := pl.last
	for node != nil {
		n := node.page.Size().Rows
		if remaining <= n {
			return node, n - remaining
		}
		remaining -= n
		node = node.prev
	}
	// Active area taller than all content combined: clamp to the
	// first row of the first page (unwritten rows read as empty).
	return pl.first, 0
}

// resolveOrigin returns the (node, rowIndex) that Point{Tag,0,0} maps
// to for the given tag.
func (pl *PageList) resolveOrigin(tag PointTag) (*pageNode, int) {
	switch tag {
	case PointScreen, PointHistory:
		return pl.first, 0
	default: // PointActive, PointViewport
		return pl.activeOrigin()
	}
}

// Pin resolves a tagged Point to an (untracked) Pin, or ok=false if
// the coordinate walks off the end of the list.
func (pl *PageList) Pin(pt Point) (*Pin, bool) {
	node, rowIdx := pl.resolveOrigin(pt.Tag)
	y := pt.Y
	for node != nil {
		n := node.page.Size().Rows
		if rowIdx+y < n {
			return &Pin{node: node, rowIndex: rowIdx + y, X: pt.X}, true
		}
		y -= n - rowIdx
		rowIdx = 0
		node = node.next
	}
	return nil, false
}

// globalRow returns a monotonically increasing row index usable to
// order two pins (first page's row 0 is 0).
func (p *Pin) globalRow() int {
	n := p.node
	total := p.rowIndex
	for n.prev != nil {
		n = n.prev
		total += n.page.Size().Rows
	}
	return total
}

// TrackPin registers pin so future list mutations keep it valid, and
// returns the same pointer for convenience.
func (pl *PageList) TrackPin(p *Pin) *Pin {
	pl.pins[p] = struct{}{}
	return p
}

// UntrackPin stops tracking a previously tracked pin.
func (pl *PageList) UntrackPin(p *Pin) {
	delete(pl.pins, p)
}

// Overflow describes the result of walking a pin down or up by more
// rows than remain in the list.
type Overflow struct {
	Remaining int
	End       *Pin
}

// PinDownOverflow walks pin forward n rows, crossing page boundaries.
// If it runs out of rows, it returns the pin clamped to the last row
// and a non-nil Overflow holding that pin and the number of rows it
// could not walk.
func (pl *PageList) PinDownOverflow(p *Pin, n int) (*Pin, *Overflow) {
	node, idx := p.node, p.rowIndex
	for n > 0 && node != nil {
		roomInPage := node.page.Size().Rows - idx - 1
		if n <= roomInPage {
			idx += n
			return &Pin{node: node, rowIndex: idx, X: p.X}, nil
		}
		n -= roomInPage + 1
		if node.next == nil {
			return &Pin{node: node, rowIndex: node.page.Size().Rows - 1, X: p.X}, &Overflow{Remaining: n + 1, End: &Pin{node: node, rowIndex: node.page.Size().Rows - 1, X: p.X}}
		}
		node = node.next
		idx = 0
	}
	return &Pin{node: node, rowIndex: idx, X: p.X}, nil
}

// PinUpOverflow is the mirror of PinDownOverflow for reverse
// traversal.
func (pl *PageList) PinUpOverflow(p *Pin, n int) (*Pin, *Overflow) {
	node, idx := p.node, p.rowIndex
	for n > 0 && node != nil {
		if n <= idx {
			idx -= n
			return &Pin{node: node, rowIndex: idx, X: p.X}, nil
		}
		n -= idx + 1
		if node.prev == nil {
			return &Pin{node: node, rowIndex: 0, X: p.X}, &Overflow{Remaining: n + 1, End: &Pin{node: node, rowIndex: 0, X: p.X}}
		}
		node = node.prev
		idx = node.page.Size().Rows - 1
	}
	return &Pin{node: node, rowIndex: idx, X: p.X}, nil
}

// Direction selects which way RowIterator walks.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionReverse
)

// RowIterator yields successive Pins (at column 0) starting at start
// and walking in the given direction, up to limit rows (limit<=0
// means unbounded — walk to the end of the list).
func (pl *PageList) RowIterator(start *Pin, dir Direction, limit int) func() (*Pin, bool) {
	cur := &Pin{node: start.node, rowIndex: start.rowIndex, X: 0}
	emitted := 0
	done := false
	return func() (*Pin, bool) {
		if done || cur == nil {
			return nil, false
		}
		if limit > 0 && emitted >= limit {
			return nil, false
		}
		out := cur
		emitted++

		if dir == DirectionForward {
			if cur.rowIndex+1 < cur.node.page.Size().Rows {
				cur = &Pin{node: cur.node, rowIndex: cur.rowIndex + 1}
			} else if cur.node.next != nil {
				cur = &Pin{node: cur.node.next, rowIndex: 0}
			} else {
				done = true
			}
		} else {
			if cur.rowIndex > 0 {
				cur = &Pin{node: cur.node, rowIndex: cur.rowIndex - 1}
			} else if cur.node.prev != nil {
				prev := cur.node.prev
				cur = &Pin{node: prev, rowIndex: prev.page.Size().Rows - 1}
			} else {
				done = true
			}
		}
		return out, true
	}
}

// appendPage adds a new, empty page of the list's standard capacity
// at the tail.
func (pl *PageList) appendPage() *pageNode {
	cap, err := DefaultCapacity.Adjust(pl.cols)
	if err != nil {
		cap = Capacity{Size: Size{Cols: pl.cols, Rows: pl.rows}, Styles: DefaultCapacity.Styles, GraphemeBytes: DefaultCapacity.GraphemeBytes}
	}
	node := &pageNode{page: NewPage(cap)}
	if err := node.page.Resize(Size{Cols: pl.cols, Rows: 0}); err != nil {
		panic(err)
	}
	node.prev = pl.last
	pl.last.next = node
	pl.last = node
	return node
}

// evictHead drops the oldest page if it is entirely outside
// maxScrollback + the active area, migrating or dropping any pins
// still referencing it.
func (pl *PageList) evictHead() {
	if pl.maxScrollback < 0 {
		return
	}
	for pl.first != pl.last && pl.ScrollbackRows()-pl.first.page.Size().Rows >= pl.maxScrollback {
		dead := pl.first
		n := dead.page.Size().Rows
		pl.first = dead.next
		pl.first.prev = nil
		pl.totalRows -= n

		for p := range pl.pins {
			if p.node == dead {
				p.node = pl.first
				p.rowIndex = 0
			}
		}
	}
}

// CursorDownScroll appends a new blank row to the bottom of the
// active area, extending the current tail page if it has spare
// capacity or appending a fresh page otherwise, then evicts
// scrollback beyond maxScrollback. The new row is the active area's
// bottom row; the error reports a failed page resize.
func (pl *PageList) CursorDownScroll() error {
	tail := pl.last
	sz := tail.page.Size()
	if sz.Rows < tail.page.Capacity().Size.Rows {
		if err := tail.page.Resize(Size{Cols: sz.Cols, Rows: sz.Rows + 1}); err != nil {
			return fmt.Errorf("termgrid: cursor_down_scroll: %w", err)
		}
	} else {
		pl.appendPage()
		if err := pl.last.page.Resize(Size{Cols: pl.cols, Rows: 1}); err != nil {
			return fmt.Errorf("termgrid: cursor_down_scroll: %w", err)
		}
	}
	pl.totalRows++
	pl.evictHead()
	return nil
}

// RowAt resolves a Pin to its Row header and (x,y) cell-access
// helpers via the owning Page.
func (p *Pin) RowAt() (page *Page, y int) {
	return p.node.page, p.rowIndex
}
