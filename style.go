package termgrid

import "math/bits"

// ColorKind discriminates the three ways a Style color can be
// specified.
type ColorKind uint8

const (
	ColorNone ColorKind = iota
	ColorPalette
	ColorRGB
)

// Color is a foreground/background/underline color: either unset,
// an index into the 256-color palette, or a direct RGB triple.
type Color struct {
	Kind    ColorKind
	Palette uint8
	R, G, B uint8
}

// UnderlineStyle enumerates the underline renderings a Style can
// request.
type UnderlineStyle uint8

const (
	UnderlineNone UnderlineStyle = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineCurly
	UnderlineDotted
	UnderlineDashed
)

// StyleFlags is a bitmask of boolean style attributes.
type StyleFlags uint16

const (
	StyleBold StyleFlags = 1 << iota
	StyleItalic
	StyleFaint
	StyleBlink
	StyleInverse
	StyleInvisible
	StyleStrikethrough
)

// Style is the full set of rendering attributes a cell can carry,
// deduplicated by the page's RefCountedSet so that cells only ever
// store a 16-bit Id.
type Style struct {
	Fg, Bg, Underline Color
	UnderlineStyle    UnderlineStyle
	Flags             StyleFlags
}

// StyleID references a deduplicated Style within one page's style
// set. Id 0 always means "default style" and is never itself stored
// in the set.
type StyleID uint16

// IsDefault reports whether id denotes the unstyled default cell
// style.
func (id StyleID) IsDefault() bool {
	return id == 0
}

// styleItem is one slot of the RefCountedSet's open-addressed table.
type styleItem struct {
	value  Style
	hash   uint64
	ref    uint32
	occupied bool // slot ever used; distinguishes "empty" from "tombstone" (ref==0, occupied==true)
}

// StyleSetError is the fallible-outcome taxonomy for RefCountedSet.Add.
type StyleSetError int

const (
	// StyleSetOK indicates Add completed normally.
	StyleSetOK StyleSetError = iota
	// StyleSetNeedsRehash names the state in which >=10% of items are
	// tombstones (ref==0) and compacting via Rehash pays off. Add never
	// returns it: Add reclaims tombstones in place and fails only with
	// StyleSetOutOfMemory once every slot is live. NeedsRehash is the
	// separate check for this state.
	StyleSetNeedsRehash
	// StyleSetOutOfMemory indicates the table is full and compaction
	// would not help.
	StyleSetOutOfMemory
)

// RefCountedSet deduplicates Style values behind small integer ids
// using Robin Hood open addressing. Capacity is fixed at construction
// (rounded up to a power of two) and never grows; Rehash compacts
// tombstones away at the same capacity.
type RefCountedSet struct {
	items    []styleItem
	ids      []StyleID // ids[bucket] -> id assigned to that bucket, 0 if bucket never assigned an id
	byID     []int     // byID[id] -> bucket index, -1 if id unused
	mask     uint64
	maxPSL   int
	pslStats [32]uint32
	freeIDs  []StyleID // ids below nextID that were released and can be reused
	nextID   StyleID
	count    int // occupied slots (including tombstones)
	live     int // slots with ref > 0
}

// NewRefCountedSet creates a set with capacity rounded up to the next
// power of two, sized so the load factor stays around 13/16 at the
// requested item count.
func NewRefCountedSet(capacityHint int) *RefCountedSet {
	cap := nextPow2(maxInt(capacityHint*16/13, 4))
	return &RefCountedSet{
		items:  make([]styleItem, cap),
		ids:    make([]StyleID, cap),
		byID:   []int{-1}, // index 0 reserved for the default style, never resolved
		mask:   uint64(cap - 1),
		nextID: 1,
	}
}

func nextPow2(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func hashStyle(s Style) uint64 {
	// FNV-1a over the struct's scalar fields; Style has no pointers so
	// this is stable and allocation-free.
	h := uint64(14695981039346656037)
	mix := func(v uint64) {
		h ^= v
		h *= 1099511628211
	}
	mixColor := func(c Color) {
		mix(uint64(c.Kind)<<24 | uint64(c.Palette)<<16 | uint64(c.R)<<8 | uint64(c.G))
		mix(uint64(c.B))
	}
	mixColor(s.Fg)
	mixColor(s.Bg)
	mixColor(s.Underline)
	mix(uint64(s.UnderlineStyle))
	mix(uint64(s.Flags))
	return h
}

// deleted is invoked by Add when it discovers the caller is inserting
// a value identical to one already present: the caller's copy (e.g.
// a hyperlink or other owned resource embedded in a future Style
// extension) is redundant and this callback is the hook to free it.
// The zero value is a no-op.
type deletedFunc func(Style)

// Add inserts value (incrementing its ref count if already present)
// and returns its id. deleted, if non-nil, is invoked with the
// caller's value when an existing entry absorbs the insert instead.
func (s *RefCountedSet) Add(value Style, deleted deletedFunc) (StyleID, StyleSetError) {
	h := hashStyle(value)
	if id, ok := s.find(value, h); ok {
		s.items[s.byID[id]].ref++
		if deleted != nil {
			deleted(value)
		}
		return id, StyleSetOK
	}

	if s.live >= len(s.items) {
		return 0, StyleSetOutOfMemory
	}

	// Robin Hood insertion: walk from the preferred bucket, swapping
	// the incoming entry into any slot whose occupant has a shorter
	// probe sequence length (psl) than ours.
	incoming := styleItem{value: value, hash: h, ref: 1, occupied: true}
	incomingID := s.allocID()
	bucket := h & s.mask
	psl := 0
	for {
		slot := &s.items[bucket]
		if !slot.occupied || slot.ref == 0 {
			if slot.occupied && slot.ref == 0 {
				// reclaiming a tombstone
				s.byID[s.idAt(bucket)] = -1
			} else {
				s.count++
			}
			*slot = incoming
			s.ids[bucket] = incomingID
			s.setByID(incomingID, int(bucket))
			s.live++
			s.recordPSL(psl)
			return incomingID, StyleSetOK
		}

		existingPSL := s.probeLength(bucket)
		if existingPSL < psl {
			// Swap: incoming takes this slot, displaced occupant keeps
			// searching from the next bucket with its own growing psl.
			displacedItem := *slot
			displacedID := s.ids[bucket]
			*slot = incoming
			s.ids[bucket] = incomingID
			s.setByID(incomingID, int(bucket))
			s.recordPSL(psl)

			incoming = displacedItem
			incomingID = displacedID
			psl = existingPSL
		}

		bucket = (bucket + 1) & s.mask
		psl++

		if psl > len(s.items) {
			// Pathological: table corrupt or genuinely full; caller
			// should have hit the live>=len check above. Bail safely.
			return 0, StyleSetOutOfMemory
		}
	}
}

// probeLength returns the current occupant's distance from its own
// preferred bucket.
func (s *RefCountedSet) probeLength(bucket uint64) int {
	preferred := s.items[bucket].hash & s.mask
	return int((bucket - preferred + uint64(len(s.items))) % uint64(len(s.items)))
}

func (s *RefCountedSet) recordPSL(psl int) {
	if psl > s.maxPSL {
		s.maxPSL = psl
	}
	bucket := psl
	if bucket >= len(s.pslStats) {
		bucket = len(s.pslStats) - 1
	}
	s.pslStats[bucket]++
}

func (s *RefCountedSet) allocID() StyleID {
	if n := len(s.freeIDs); n > 0 {
		id := s.freeIDs[n-1]
		s.freeIDs = s.freeIDs[:n-1]
		return id
	}
	id := s.nextID
	s.nextID++
	return id
}

func (s *RefCountedSet) setByID(id StyleID, bucket int) {
	for len(s.byID) <= int(id) {
		s.byID = append(s.byID, -1)
	}
	s.byID[id] = bucket
}

func (s *RefCountedSet) idAt(bucket uint64) StyleID {
	return s.ids[bucket]
}

// find performs a bounded probe (never exceeding maxPSL, which Robin
// Hood guarantees is sufficient) for value/hash, returning its id if
// present and live.
func (s *RefCountedSet) find(value Style, h uint64) (StyleID, bool) {
	bucket := h & s.mask
	for psl := 0; psl <= s.maxPSL; psl++ {
		slot := &s.items[bucket]
		if !slot.occupied {
			return 0, false
		}
		if slot.ref > 0 && slot.hash == h && slot.value == value {
			return s.idAt(bucket), true
		}
		bucket = (bucket + 1) & s.mask
	}
	return 0, false
}

// Lookup returns the Style for a previously added, still-live id.
func (s *RefCountedSet) Lookup(id StyleID) (Style, bool) {
	if id == 0 || int(id) >= len(s.byID) {
		return Style{}, false
	}
	b := s.byID[id]
	if b < 0 {
		return Style{}, false
	}
	item := &s.items[b]
	if item.ref == 0 {
		return Style{}, false
	}
	return item.value, true
}

// Ref returns the current reference count for id, or 0 if unknown.
func (s *RefCountedSet) Ref(id StyleID) uint32 {
	if id == 0 || int(id) >= len(s.byID) {
		return 0
	}
	b := s.byID[id]
	if b < 0 {
		return 0
	}
	return s.items[b].ref
}

// Retain increments id's reference count directly (used when a cell
// is overwritten with a style id it already resolved, e.g. during
// printCell, rather than going through Add again).
func (s *RefCountedSet) Retain(id StyleID) {
	if id == 0 {
		return
	}
	if b := s.byID[id]; b >= 0 {
		s.items[b].ref++
	}
}

// Release decrements id's reference count. At zero the slot becomes a
// tombstone: it stays in the table (so Robin Hood probe chains through
// it remain valid) until a future Add reclaims it.
func (s *RefCountedSet) Release(id StyleID) {
	if id == 0 {
		return
	}
	b := s.byID[id]
	if b < 0 {
		return
	}
	item := &s.items[b]
	if item.ref == 0 {
		return
	}
	item.ref--
	if item.ref == 0 {
		s.live--
	}
}

// NeedsRehash reports whether at least 10% of occupied slots are dead
// tombstones, the threshold at which compacting via Rehash pays off.
// Add does not consult it.
func (s *RefCountedSet) NeedsRehash() bool {
	dead := s.count - s.live
	return s.count > 0 && dead*10 >= s.count
}

// MaxPSL returns the longest probe sequence length observed across all
// insertions, the bound Add's duplicate search (find) uses to
// terminate its probe early.
func (s *RefCountedSet) MaxPSL() int {
	return s.maxPSL
}

// Rehash rebuilds the table (same capacity) keeping only live items,
// compacting away tombstones. Ids are preserved.
func (s *RefCountedSet) Rehash() {
	old := s.items
	oldIDs := s.ids
	s.items = make([]styleItem, len(old))
	s.ids = make([]StyleID, len(old))
	for i := range s.byID {
		s.byID[i] = -1
	}
	s.count = 0
	s.live = 0
	s.maxPSL = 0
	s.pslStats = [32]uint32{}

	for bucket, item := range old {
		if !item.occupied || item.ref == 0 {
			continue
		}
		id := oldIDs[bucket]
		s.insertLive(item.value, item.hash, item.ref, id)
	}
}

// insertLive re-inserts an already-known-live item during Rehash,
// preserving its id and ref count exactly.
func (s *RefCountedSet) insertLive(value Style, h uint64, ref uint32, id StyleID) {
	incoming := styleItem{value: value, hash: h, ref: ref, occupied: true}
	bucket := h & s.mask
	psl := 0
	for {
		slot := &s.items[bucket]
		if !slot.occupied {
			*slot = incoming
			s.ids[bucket] = id
			s.setByID(id, int(bucket))
			s.count++
			s.live++
			s.recordPSL(psl)
			return
		}
		existingPSL := s.probeLength(bucket)
		if existingPSL < psl {
			displacedItem := *slot
			displacedID := s.ids[bucket]
			*slot = incoming
			s.ids[bucket] = id
			s.setByID(id, int(bucket))
			s.recordPSL(psl)
			incoming = displacedItem
			id = displacedID
			psl = existingPSL
		}
		bucket = (bucket + 1) & s.mask
		psl++
	}
}

// Len returns the number of live (ref>0) entries.
func (s *RefCountedSet) Len() int {
	return s.live
}

// Cap returns the table's fixed capacity.
func (s *RefCountedSet) Cap() int {
	return len(s.items)
}
