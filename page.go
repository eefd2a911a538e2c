package termgrid

import (
	"fmt"
	"unsafe"
)

// WideKind classifies how a cell participates in a (possibly)
// multi-column character.
type WideKind uint8

const (
	WideNarrow     WideKind = iota
	WideWide                // left half of a 2-column character
	WideSpacerTail          // right half, immediately follows a WideWide cell
	WideSpacerHead          // placeholder at the rightmost column, reserving
	// space for a WideWide pair that wraps to column 0 of the next row
)

// cellBits lays out Cell's 64-bit packed representation: codepoint in
// the low 21 bits, style id in the next 16, wide kind in the next 2,
// has-grapheme in bit 39. The remaining high bits are reserved.
const (
	cellCodepointBits = 21
	cellCodepointMask = 1<<cellCodepointBits - 1
	cellStyleShift    = cellCodepointBits
	cellStyleMask     = 0xFFFF
	cellWideShift     = cellStyleShift + 16
	cellWideMask      = 0x3
	cellGraphemeBit   = cellWideShift + 2
)

// Cell is the packed 64-bit grid cell: codepoint, style id, wide kind
// and a has-grapheme flag. The zero value is a valid empty cell
// (codepoint 0, default style, narrow, no grapheme) — pages are
// zero-initialized and need no per-cell construction.
type Cell uint64

// Codepoint returns the cell's base codepoint (0 for an empty cell).
func (c Cell) Codepoint() rune {
	return rune(uint64(c) & cellCodepointMask)
}

// StyleID returns the cell's deduplicated style id.
func (c Cell) StyleID() StyleID {
	return StyleID((uint64(c) >> cellStyleShift) & cellStyleMask)
}

// Wide returns the cell's wide-character role.
func (c Cell) Wide() WideKind {
	return WideKind((uint64(c) >> cellWideShift) & cellWideMask)
}

// HasGrapheme reports whether the cell has an entry in its page's
// grapheme map.
func (c Cell) HasGrapheme() bool {
	return uint64(c)&(1<<cellGraphemeBit) != 0
}

// IsEmpty reports whether the cell is the zero-valued empty cell.
func (c Cell) IsEmpty() bool {
	return c == 0
}

func makeCell(cp rune, style StyleID, wide WideKind, hasGrapheme bool) Cell {
	v := uint64(cp) & cellCodepointMask
	v |= (uint64(style) & cellStyleMask) << cellStyleShift
	v |= (uint64(wide) & cellWideMask) << cellWideShift
	if hasGrapheme {
		v |= 1 << cellGraphemeBit
	}
	return Cell(v)
}

func (c Cell) withCodepoint(cp rune) Cell {
	return Cell(uint64(c)&^cellCodepointMask | (uint64(cp) & cellCodepointMask))
}

func (c Cell) withStyleID(id StyleID) Cell {
	return Cell(uint64(c)&^(uint64(cellStyleMask)<<cellStyleShift) | (uint64(id)&cellStyleMask)<<cellStyleShift)
}

func (c Cell) withWide(w WideKind) Cell {
	return Cell(uint64(c)&^(uint64(cellWideMask)<<cellWideShift) | (uint64(w)&cellWideMask)<<cellWideShift)
}

func (c Cell) withGrapheme(has bool) Cell {
	if has {
		return Cell(uint64(c) | 1<<cellGraphemeBit)
	}
	return Cell(uint64(c) &^ (1 << cellGraphemeBit))
}

// RowFlags is a bitmask of per-row state.
type RowFlags uint8

const (
	// RowWrap means the next row's first cell logically continues
	// this row (the line wrapped instead of ending with a newline).
	RowWrap RowFlags = 1 << iota
	// RowWrapContinuation marks a row as the continuation of a
	// wrapped line (the inverse edge of RowWrap on the row above).
	RowWrapContinuation
	// RowGrapheme is a hint that at least one cell in the row has a
	// grapheme map entry. It is only ever set confidently; clearing it
	// is a best-effort hint, not a guarantee (see Page.ClearGrapheme).
	RowGrapheme
)

// Row is the packed 64-bit row header: a 32-bit offset to the row's
// cell run plus an 8-bit flag byte.
type Row uint64

func makeRow(cellsOffset uint32, flags RowFlags) Row {
	return Row(uint64(cellsOffset) | uint64(flags)<<32)
}

func (r Row) cellsOffset() uint32 {
	return uint32(r)
}

// Flags returns the row's current flag bits.
func (r Row) Flags() RowFlags {
	return RowFlags(uint64(r) >> 32)
}

func (r Row) withFlags(f RowFlags) Row {
	return Row(uint64(r.cellsOffset()) | uint64(f)<<32)
}

// HasFlag reports whether f is set.
func (r Row) HasFlag(f RowFlags) bool { return r.Flags()&f != 0 }

// Size is a {cols, rows} extent, used both for a page's current
// logical size and its fixed capacity.
type Size struct {
	Cols, Rows int
}

// DefaultCapacity matches the reference core's page sizing: enough
// for a large scrollback-friendly page (~512 KiB) before a new page
// is appended.
var DefaultCapacity = Capacity{
	Size:          Size{Cols: 250, Rows: 250},
	Styles:        128,
	GraphemeBytes: 1024,
}

// Capacity is a page's fixed, immutable-after-construction allocation
// size: how many rows/cols of cells it can ever hold, how many
// distinct styles its style set is sized for, and how much grapheme
// storage it reserves.
type Capacity struct {
	Size          Size
	Styles        int
	GraphemeBytes int
}

// Adjust returns a new Capacity with Cols set to newCols, solving for
// a Rows value that keeps total cell-grid bytes (rows*sizeof(Row) +
// rows*cols*sizeof(Cell)) constant. Returns an error if the solution
// would require zero rows.
func (c Capacity) Adjust(newCols int) (Capacity, error) {
	const rowSize = 8  // sizeof(Row), both are uint64
	const cellSize = 8 // sizeof(Cell)
	total := c.Size.Rows*rowSize + c.Size.Rows*c.Size.Cols*cellSize
	perRow := rowSize + newCols*cellSize
	if perRow <= 0 {
		return Capacity{}, fmt.Errorf("termgrid: capacity adjust: invalid column width %d", newCols)
	}
	newRows := total / perRow
	if newRows <= 0 {
		return Capacity{}, fmt.Errorf("termgrid: capacity adjust: no rows fit within %d bytes at %d cols", total, newCols)
	}
	out := c
	out.Size = Size{Cols: newCols, Rows: newRows}
	return out, nil
}

// Page is a fixed-capacity slab holding rows, cells, a style set and
// grapheme storage. Its row/cell grid lives in a single contiguous,
// offset-addressed arena so the whole page is memmove-copyable; the
// style set and grapheme map are ordinary Go-managed structures owned
// alongside it, outside the byte arena.
type Page struct {
	capacity Capacity
	size     Size

	arena *OffsetBuf
	rows  OffsetSlice[Row]
	cells OffsetSlice[Cell]

	styles    *RefCountedSet
	graphemes map[uint32][]rune // key: cell offset relative to page base
	graphemeBytes int               // bytes consumed against GraphemeBytes, advisory only
}

// NewPage allocates a page with the given capacity. The arena is
// zero-initialized, which is a valid all-empty grid per the Cell/Row
// zero-value invariant.
func NewPage(capacity Capacity) *Page {
	rowSize := 8
	cellSize := 8
	bufLen := capacity.Size.Rows*rowSize + capacity.Size.Rows*capacity.Size.Cols*cellSize
	buf := make([]byte, bufLen)
	arena := NewOffsetBuf(buf)

	rows := allocSlice[Row](arena, capacity.Size.Rows)
	cells := allocSlice[Cell](arena, capacity.Size.Rows*capacity.Size.Cols)

	p := &Page{
		capacity:  capacity,
		size:      capacity.Size,
		arena:     arena,
		rows:      rows,
		cells:     cells,
		styles:    NewRefCountedSet(capacity.Styles),
		graphemes: make(map[uint32][]rune),
	}
	p.initRows()
	return p
}

func (p *Page) initRows() {
	base := p.arena.Base()
	for y := 0; y < p.capacity.Size.Rows; y++ {
		rowCellsOffset := uint32(p.cells.Off) + uint32(y*p.capacity.Size.Cols)*8
		*p.rows.at(base, y) = makeRow(rowCellsOffset, 0)
	}
}

// Capacity returns the page's fixed allocation size.
func (p *Page) Capacity() Capacity { return p.capacity }

// Size returns the page's current logical size (<= Capacity.Size).
func (p *Page) Size() Size { return p.size }

// Styles returns the page's style set.
func (p *Page) Styles() *RefCountedSet { return p.styles }

// GetRow returns the row header at logical row y.
func (p *Page) GetRow(y int) Row {
	base := p.arena.Base()
	return *p.rows.at(base, y)
}

// SetRowFlags replaces row y's flags.
func (p *Page) SetRowFlags(y int, f RowFlags) {
	base := p.arena.Base()
	ptr := p.rows.at(base, y)
	*ptr = ptr.withFlags(f)
}

// SetRowHeader overwrites row y's header wholesale (cells offset and
// flags together), without touching any cell bytes. Row-shifting
// operations (insert/delete lines, region scroll) use this to move
// rows by repointing which cell run each row index addresses, instead
// of copying cols*rows cells.
func (p *Page) SetRowHeader(y int, r Row) {
	base := p.arena.Base()
	*p.rows.at(base, y) = r
}

// GetCells returns the row's live cell slice (length Size.Cols),
// aliasing the page's arena memory directly.
func (p *Page) GetCells(y int) []Cell {
	base := p.arena.Base()
	row := p.rows.at(base, y)
	off := Offset[Cell](row.cellsOffset())
	ptr := off.resolve(base)
	return unsafeCellSlice(ptr, p.size.Cols)
}

// cellOffset returns the byte offset, relative to the page base, of
// cell (x, y). This is the key used by the grapheme map.
func (p *Page) cellOffset(x, y int) uint32 {
	row := p.GetRow(y)
	return row.cellsOffset() + uint32(x)*8
}

// GetCell returns the cell at (x, y).
func (p *Page) GetCell(x, y int) Cell {
	return p.GetCells(y)[x]
}

// SetCell overwrites the cell at (x, y), maintaining style ref counts
// and clearing any outgoing grapheme: the caller only needs to have
// already interned c's style via Styles().Add before calling this.
func (p *Page) SetCell(x, y int, c Cell) {
	cells := p.GetCells(y)
	old := cells[x]
	if old.HasGrapheme() {
		p.ClearGrapheme(x, y)
	}
	if oldStyle := old.StyleID(); !oldStyle.IsDefault() {
		p.styles.Release(oldStyle)
	}
	cells[x] = c
	if style := c.StyleID(); !style.IsDefault() {
		p.styles.Retain(style)
	}
}

// setCellRaw overwrites a cell without touching style ref counts or
// clearing graphemes — used internally by operations (row shifts,
// clears) that already account for refcounting themselves.
func (p *Page) setCellRaw(x, y int, c Cell) {
	p.GetCells(y)[x] = c
}

// AppendGrapheme appends codepoint cp to the grapheme list attached to
// cell (x, y), marking both the cell and its row as carrying
// graphemes.
func (p *Page) AppendGrapheme(x, y int, cp rune) {
	key := p.cellOffset(x, y)
	p.graphemes[key] = append(p.graphemes[key], cp)
	p.graphemeBytes += 4

	cells := p.GetCells(y)
	cells[x] = cells[x].withGrapheme(true)
	p.SetRowFlags(y, p.GetRow(y).Flags()|RowGrapheme)
}

// ClearGrapheme releases cell (x, y)'s grapheme slot and clears its
// has-grapheme flag. It does not rescan the row to see if any other
// cell still carries a grapheme: RowGrapheme is a hint bit only, and
// may remain set even when no cell in the row has one any more.
func (p *Page) ClearGrapheme(x, y int) {
	key := p.cellOffset(x, y)
	if g, ok := p.graphemes[key]; ok {
		p.graphemeBytes -= len(g) * 4
		delete(p.graphemes, key)
	}
	cells := p.GetCells(y)
	cells[x] = cells[x].withGrapheme(false)
}

// LookupGrapheme returns the codepoints attached to cell (x, y), or
// nil if it has none.
func (p *Page) LookupGrapheme(x, y int) []rune {
	return p.graphemes[p.cellOffset(x, y)]
}

// GraphemeBytesUsed is an advisory counter of grapheme storage
// consumed, checked against Capacity.GraphemeBytes by callers that
// want to preflight before appending (the map itself has no hard
// limit in this port).
func (p *Page) GraphemeBytesUsed() int { return p.graphemeBytes }

// Resize changes the page's logical size within its fixed capacity.
// Cols beyond the previous size are left zero-valued (empty); growing
// rows exposes previously blank capacity rows.
func (p *Page) Resize(newSize Size) error {
	if newSize.Cols > p.capacity.Size.Cols || newSize.Rows > p.capacity.Size.Rows {
		return fmt.Errorf("termgrid: page resize %+v exceeds capacity %+v", newSize, p.capacity.Size)
	}
	p.size = newSize
	return nil
}

// unsafeCellSlice builds a []Cell view over count cells starting at
// ptr, aliasing arena memory directly (no copy).
func unsafeCellSlice(ptr *Cell, count int) []Cell {
	if count == 0 {
		return nil
	}
	return unsafe.Slice(ptr, count)
}
