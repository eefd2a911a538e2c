package termgrid

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	ximagedraw "golang.org/x/image/draw"
)

// Image is a fully-loaded (decompressed, rgb/rgba) Kitty image.
type Image struct {
	ID          uint32
	Number      uint32
	Width       int
	Height      int
	Format      KittyFormat
	Data        []byte
	TransmitTime int64
	ImplicitID  bool
}

// NewImage constructs an Image directly from already-decoded pixels,
// bypassing LoadingImage's decompress/PNG-decode pipeline. Unlike
// LoadingImage.Complete, this constructor is lenient: it only requires
// len(data) >= width*height*bpp. Kitty's own documented self-test
// transmits undersized data on this path intentionally.
func NewImage(id uint32, width, height int, format KittyFormat, data []byte) (*Image, error) {
	bpp, err := bytesPerPixel(format)
	if err != nil {
		return nil, err
	}
	if want := width * height * bpp; len(data) < want {
		return nil, loaderErr(ErrInvalidData, "data length %d < minimum %d", len(data), want)
	}
	return &Image{ID: id, Width: width, Height: height, Format: format, Data: data}, nil
}

// asNRGBA wraps the image's raw bytes in a standard image.Image,
// without copying, so the draw package can read it.
func (img *Image) asNRGBA() (*image.NRGBA, error) {
	bpp, err := bytesPerPixel(img.Format)
	if err != nil {
		return nil, err
	}
	data := img.Data
	if bpp == 3 {
		data = rgbToRGBA(data)
	}
	return &image.NRGBA{
		Pix:    data,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}, nil
}

// CroppedSource renders a placement's source rectangle (SrcX/Y/W/H,
// defaulting to the full image) into a destination buffer sized to
// the placement's cell grid times the renderer's cell pixel size,
// handing the GPU renderer exactly the pixels it needs to paint
// without reaching into the stored image itself. dstCellPxW/H come
// from the terminal's reported cell pixel size.
func (s *ImageStorage) CroppedSource(p *Placement, dstCellPxW, dstCellPxH int) (*image.NRGBA, error) {
	img, ok := s.Image(p.ImageID)
	if !ok {
		return nil, fmt.Errorf("termgrid: kitty storage: no image with id %d", p.ImageID)
	}
	src, err := img.asNRGBA()
	if err != nil {
		return nil, err
	}

	srcRect := src.Bounds()
	if p.SrcW > 0 && p.SrcH > 0 {
		srcRect = image.Rect(p.SrcX, p.SrcY, p.SrcX+p.SrcW, p.SrcY+p.SrcH).Intersect(src.Bounds())
	}

	cols, rows := p.Cols, p.Rows
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, cols*dstCellPxW, rows*dstCellPxH))
	// Fill transparent first: a source rectangle smaller than the
	// destination grid (a partial last cell) leaves the remainder
	// blank rather than stretched.
	ximagedraw.Draw(dst, dst.Bounds(), image.NewUniform(color.Transparent), image.Point{}, ximagedraw.Src)
	ximagedraw.CatmullRom.Scale(dst, dst.Bounds(), src, srcRect, ximagedraw.Over, nil)
	return dst, nil
}

// PlacementLocation discriminates a screen-pinned placement from a
// virtual one (positioned by Unicode placeholder characters rather
// than a tracked Pin; see kitty_unicode.go).
type PlacementLocation struct {
	Pin     *Pin
	Virtual bool
}

// Placement is a positioned, optionally clipped drawing of an image.
type Placement struct {
	ImageID     uint32
	PlacementID uint32 // internal id if this placement was auto-assigned
	Location    PlacementLocation

	SrcX, SrcY, SrcW, SrcH int
	Cols, Rows             int
	OffsetX, OffsetY       int
	Z                      int32

	transmitOrder int64
}

// placementKey identifies one placement: (image_id, internal|external
// id).
type placementKey struct {
	imageID     uint32
	placementID uint32
}

// ImageStorage owns every loaded image and placement for one
// terminal, enforcing a total byte budget via eviction.
type ImageStorage struct {
	dirty bool

	images     map[uint32]*Image
	placements map[placementKey]*Placement

	loading *LoadingImage

	nextImageID            uint32
	nextInternalPlacementID uint32
	transmitCounter         int64

	totalBytes int64
	totalLimit int64
}

// StorageOption configures an ImageStorage at construction.
type StorageOption func(*ImageStorage)

// WithTotalLimit overrides the default 320 MB budget. A limit of 0
// disables the Kitty protocol entirely.
func WithTotalLimit(n int64) StorageOption {
	return func(s *ImageStorage) { s.totalLimit = n }
}

const defaultTotalLimit = 320 * 1024 * 1024

// initialImplicitID is where auto-assigned image ids start counting
// up from: starts at 2^31-1 and increments.
const initialImplicitID = 1<<31 - 1

// NewImageStorage creates an empty store with a 320 MB default
// budget.
func NewImageStorage(opts ...StorageOption) *ImageStorage {
	s := &ImageStorage{
		images:       make(map[uint32]*Image),
		placements:   make(map[placementKey]*Placement),
		nextImageID:  initialImplicitID,
		totalLimit:   defaultTotalLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dirty reports whether any mutation has happened since ClearDirty.
func (s *ImageStorage) Dirty() bool { return s.dirty }

// ClearDirty resets the dirty flag.
func (s *ImageStorage) ClearDirty() { s.dirty = false }

// TotalBytes returns the sum of every stored image's data length.
func (s *ImageStorage) TotalBytes() int64 { return s.totalBytes }

// NextImplicitID allocates (and advances) the next auto-assigned
// image id. Collision with a user-supplied id in the upper half of
// the id space is an open question this port resolves by detecting
// the collision and keeps incrementing past it, documented in
// DESIGN.md as the chosen recovery policy.
func (s *ImageStorage) NextImplicitID() uint32 {
	id := s.nextImageID
	for {
		if _, exists := s.images[id]; !exists {
			break
		}
		id++
	}
	s.nextImageID = id + 1
	return id
}

// AddImage upserts img by id, evicting as needed to stay within the
// total byte budget.
func (s *ImageStorage) AddImage(img *Image) error {
	size := int64(len(img.Data))
	if size > s.totalLimit {
		return loaderErr(ErrInvalidData, "image %d (%d bytes) exceeds total limit %d", img.ID, size, s.totalLimit)
	}

	var existingSize int64
	if old, ok := s.images[img.ID]; ok {
		existingSize = int64(len(old.Data))
	}

	if s.totalBytes-existingSize+size > s.totalLimit {
		required := s.totalBytes - existingSize + size - s.totalLimit
		s.evict(required)
		if s.totalBytes-existingSize+size > s.totalLimit {
			return fmt.Errorf("termgrid: kitty storage: out of memory adding image %d", img.ID)
		}
	}

	s.transmitCounter++
	img.TransmitTime = s.transmitCounter
	s.totalBytes = s.totalBytes - existingSize + size
	s.images[img.ID] = img
	s.dirty = true
	return nil
}

// AddPlacement upserts a placement for imageID. If placementID is 0,
// an internal id is auto-assigned (monotonically wrapping).
func (s *ImageStorage) AddPlacement(imageID, placementID uint32, p Placement) uint32 {
	p.ImageID = imageID
	if placementID == 0 {
		s.nextInternalPlacementID++
		placementID = s.nextInternalPlacementID
		p.PlacementID = placementID
	} else {
		p.PlacementID = placementID
	}
	s.transmitCounter++
	p.transmitOrder = s.transmitCounter
	s.placements[placementKey{imageID, placementID}] = &p
	s.dirty = true
	return placementID
}

// Image looks up an image by id.
func (s *ImageStorage) Image(id uint32) (*Image, bool) {
	img, ok := s.images[id]
	return img, ok
}

// Placements returns every placement currently stored, in no
// particular order.
func (s *ImageStorage) Placements() []*Placement {
	out := make([]*Placement, 0, len(s.placements))
	for _, p := range s.placements {
		out = append(out, p)
	}
	return out
}

func (s *ImageStorage) removePlacement(key placementKey) {
	if p, ok := s.placements[key]; ok {
		if p.Location.Pin != nil {
			// Untrack is the caller PageList's responsibility; storage
			// only holds the Pin, so we just drop our reference here.
			p.Location.Pin = nil
		}
		delete(s.placements, key)
	}
}

func (s *ImageStorage) imageUnused(id uint32) bool {
	for _, p := range s.placements {
		if p.ImageID == id {
			return false
		}
	}
	return true
}

func (s *ImageStorage) deleteImageIfUnused(id uint32, force bool) {
	if !force {
		return
	}
	if s.imageUnused(id) {
		s.deleteImage(id)
	}
}

func (s *ImageStorage) deleteImage(id uint32) {
	if img, ok := s.images[id]; ok {
		s.totalBytes -= int64(len(img.Data))
		delete(s.images, id)
	}
}

// Execute applies a delete command's algebra.
// active is the PageList placements' pins belong to (needed for
// rectangle math); untrackPin, if non-nil, is called for every
// placement's tracked pin before it is dropped.
func (s *ImageStorage) Execute(cmd *KittyCommand, active *PageList, cursor *Pin, untrackPin func(*Pin)) {
	defer func() { s.dirty = true }()

	drop := func(key placementKey) {
		if p, ok := s.placements[key]; ok && p.Location.Pin != nil && untrackPin != nil {
			untrackPin(p.Location.Pin)
		}
		s.removePlacement(key)
	}

	switch cmd.Delete {
	case DeleteAll:
		var toCheck []uint32
		for key, p := range s.placements {
			if p.Location.Virtual {
				continue
			}
			toCheck = append(toCheck, p.ImageID)
			drop(key)
		}
		if cmd.DeleteAlsoImage {
			for _, id := range toCheck {
				s.deleteImageIfUnused(id, true)
			}
		}

	case DeleteID:
		s.deleteByImageAndMaybePlacement(cmd.ImageID, cmd.PlacementID, cmd.DeleteAlsoImage, drop)

	case DeleteNewest:
		id, ok := s.findNewestByNumber(cmd.ImageNumber)
		if ok {
			s.deleteByImageAndMaybePlacement(id, cmd.PlacementID, cmd.DeleteAlsoImage, drop)
		}

	case DeleteCursor:
		s.deleteWhere(cmd.DeleteAlsoImage, drop, func(p *Placement) bool {
			return s.placementContains(active, p, cursor)
		})

	case DeleteCell:
		x, y := int(cmd.CellOffsetX)-1, int(cmd.CellOffsetY)-1
		s.deleteWhere(cmd.DeleteAlsoImage, drop, func(p *Placement) bool {
			return s.placementContainsXY(active, p, x, y)
		})

	case DeleteCellZ:
		x, y, z := int(cmd.CellOffsetX)-1, int(cmd.CellOffsetY)-1, cmd.DeleteZValue
		s.deleteWhere(cmd.DeleteAlsoImage, drop, func(p *Placement) bool {
			return !p.Location.Virtual && p.Z == z && s.placementContainsXY(active, p, x, y)
		})

	case DeleteColumn:
		x := int(cmd.CellOffsetX) - 1
		s.deleteWhere(cmd.DeleteAlsoImage, drop, func(p *Placement) bool {
			return s.placementOverlapsColumn(active, p, x)
		})

	case DeleteRow:
		y := int(cmd.CellOffsetY) - 1
		s.deleteWhere(cmd.DeleteAlsoImage, drop, func(p *Placement) bool {
			return s.placementOverlapsRow(active, p, y)
		})

	case DeleteZ:
		z := cmd.DeleteZValue
		s.deleteWhere(cmd.DeleteAlsoImage, drop, func(p *Placement) bool {
			return !p.Location.Virtual && p.Z == z
		})

	case KittyDeleteKind('f'): // animation_frames: accepted, no-op.
	}
}

func (s *ImageStorage) deleteByImageAndMaybePlacement(imageID, placementID uint32, also bool, drop func(placementKey)) {
	if placementID == 0 {
		for key, p := range s.placements {
			if p.ImageID == imageID {
				drop(key)
			}
		}
	} else {
		drop(placementKey{imageID, placementID})
	}
	s.deleteImageIfUnused(imageID, also)
}

func (s *ImageStorage) findNewestByNumber(number uint32) (uint32, bool) {
	var best *Image
	for _, img := range s.images {
		if img.Number != number {
			continue
		}
		if best == nil || img.TransmitTime > best.TransmitTime || (img.TransmitTime == best.TransmitTime && img.ID > best.ID) {
			best = img
		}
	}
	if best == nil {
		return 0, false
	}
	return best.ID, true
}

func (s *ImageStorage) deleteWhere(also bool, drop func(placementKey), pred func(*Placement) bool) {
	var affected []uint32
	for key, p := range s.placements {
		if pred(p) {
			affected = append(affected, p.ImageID)
			drop(key)
		}
	}
	for _, id := range affected {
		s.deleteImageIfUnused(id, also)
	}
}

// placementRect computes a placement's pin rectangle:
// grid_size defaults to (Cols, Rows) if both set, else would be
// derived from source/image pixel dimensions against the terminal's
// cell pixel size (that derivation lives in the caller, which alone
// knows cell_px; see Terminal.placementGridSize). Virtual placements
// have no rectangle.
func (s *ImageStorage) placementRect(active *PageList, p *Placement) ([2]*Pin, bool) {
	if p.Location.Virtual || p.Location.Pin == nil {
		return [2]*Pin{}, false
	}
	rows := p.Rows
	if rows <= 0 {
		rows = 1
	}
	cols := p.Cols
	if cols <= 0 {
		cols = 1
	}
	bottomRight, overflow := active.PinDownOverflow(p.Location.Pin, rows-1)
	if overflow != nil {
		bottomRight = overflow.End
	}
	br := &Pin{}
	*br = *bottomRight
	maxX := p.Location.Pin.X + cols - 1
	if maxX > br.X {
		maxX = br.X
	}
	br.X = maxX
	return [2]*Pin{p.Location.Pin, br}, true
}

func (s *ImageStorage) placementContains(active *PageList, p *Placement, cursor *Pin) bool {
	if cursor == nil {
		return false
	}
	rect, ok := s.placementRect(active, p)
	if !ok {
		return false
	}
	return cursor.IsBetween(rect[0], rect[1])
}

func (s *ImageStorage) placementContainsXY(active *PageList, p *Placement, x, y int) bool {
	rect, ok := s.placementRect(active, p)
	if !ok {
		return false
	}
	target := &Pin{node: rect[0].node, rowIndex: rect[0].rowIndex, X: x}
	return rowInRange(rect[0], rect[1], target, y)
}

func (s *ImageStorage) placementOverlapsColumn(active *PageList, p *Placement, x int) bool {
	rect, ok := s.placementRect(active, p)
	if !ok {
		return false
	}
	return x >= rect[0].X && x <= rect[1].X
}

func (s *ImageStorage) placementOverlapsRow(active *PageList, p *Placement, y int) bool {
	rect, ok := s.placementRect(active, p)
	if !ok {
		return false
	}
	lo, hi := rect[0].globalRow(), rect[1].globalRow()
	target := rect[0].globalRow() + y
	return target >= lo && target <= hi
}

// rowInRange reports whether target (whose row offset from topLeft is
// the y-th row down) falls within [topLeft, bottomRight]'s column
// bounds on its own row.
func rowInRange(topLeft, bottomRight, target *Pin, y int) bool {
	row := topLeft.globalRow() + y
	lo, hi := topLeft.globalRow(), bottomRight.globalRow()
	if row < lo || row > hi {
		return false
	}
	if row == lo && target.X < topLeft.X {
		return false
	}
	if row == hi && target.X > bottomRight.X {
		return false
	}
	return true
}

// evict drops images (and their placements) until at least required
// bytes are reclaimed, preferring unused images, then oldest first.
func (s *ImageStorage) evict(required int64) {
	type candidate struct {
		id     uint32
		time   int64
		used   bool
	}
	cands := make([]candidate, 0, len(s.images))
	for id, img := range s.images {
		cands = append(cands, candidate{id: id, time: img.TransmitTime, used: !s.imageUnused(id)})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].used != cands[j].used {
			return !cands[i].used
		}
		if cands[i].time != cands[j].time {
			return cands[i].time < cands[j].time
		}
		return cands[i].id < cands[j].id
	})

	var reclaimed int64
	for _, c := range cands {
		if reclaimed >= required {
			break
		}
		img := s.images[c.id]
		reclaimed += int64(len(img.Data))
		for key, p := range s.placements {
			if p.ImageID == c.id {
				delete(s.placements, key)
			}
		}
		s.deleteImage(c.id)
	}
}
