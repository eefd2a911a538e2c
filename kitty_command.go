package termgrid

import (
	"fmt"
	"strconv"
)

// KittyAction is the Kitty graphics protocol's "a" key.
type KittyAction byte

const (
	ActionQuery               KittyAction = 'q'
	ActionTransmit            KittyAction = 't'
	ActionTransmitAndDisplay  KittyAction = 'T'
	ActionDisplay             KittyAction = 'p'
	ActionDelete              KittyAction = 'd'
	ActionTransmitAnimFrame   KittyAction = 'f'
	ActionControlAnimation    KittyAction = 'a'
	ActionComposeAnimation    KittyAction = 'c'
)

// KittyQuiet is the "q" key's response-suppression level.
type KittyQuiet byte

const (
	QuietNo       KittyQuiet = 0
	QuietOK       KittyQuiet = 1
	QuietFailures KittyQuiet = 2
)

// KittyFormat is the "f" key's pixel format.
type KittyFormat uint32

const (
	FormatRGB  KittyFormat = 24
	FormatRGBA KittyFormat = 32
	FormatPNG  KittyFormat = 100
)

// KittyMedium is the "t" key's transmission medium.
type KittyMedium byte

const (
	MediumDirect       KittyMedium = 'd'
	MediumFile         KittyMedium = 'f'
	MediumTempFile     KittyMedium = 't'
	MediumSharedMemory KittyMedium = 's'
)

// KittyCompression is the "o" key.
type KittyCompression byte

const (
	CompressionNone       KittyCompression = 0
	CompressionZlibDeflate KittyCompression = 'z'
)

// KittyDeleteKind is the "d" key of a delete command, with the
// uppercase/lowercase distinction ("also delete image if unused")
// folded into DeleteAlsoImage.
type KittyDeleteKind byte

const (
	DeleteAll             KittyDeleteKind = 'a'
	DeleteID               KittyDeleteKind = 'i'
	DeleteNewest           KittyDeleteKind = 'n'
	DeleteCursor           KittyDeleteKind = 'c'
	DeleteFrameAnimation   KittyDeleteKind = 'f'
	DeleteCell             KittyDeleteKind = 'p'
	DeleteCellZ            KittyDeleteKind = 'q'
	DeleteColumn           KittyDeleteKind = 'x'
	DeleteRow              KittyDeleteKind = 'y'
	DeleteZ                KittyDeleteKind = 'z'
)

// KittyCommand is the fully-decoded form of one APC graphics escape:
// every wire field from the protocol's key table, resolved to typed values.
// Payload is the raw (already base64-decoded, by the external VT
// parser) data slice, owned by the caller.
type KittyCommand struct {
	Action      KittyAction
	Quiet       KittyQuiet
	Format      KittyFormat
	Medium      KittyMedium
	Compression KittyCompression

	ImageID     uint32
	ImageNumber uint32
	PlacementID uint32

	Width, Height uint32
	Size, Offset  uint32
	More          bool

	SrcX, SrcY, SrcW, SrcH uint32
	Cols, Rows             uint32
	CellOffsetX, CellOffsetY uint32
	ZIndex                 int32
	NoMoveCursor           bool

	Delete          KittyDeleteKind
	DeleteAlsoImage bool
	DeleteZValue    int32

	Payload []byte
}

// kittyParseState drives the byte-fed APC parser: control_key and
// control_value alternate on '=' and ',', data begins at ';', and any
// overflow (value longer than 10 bytes, or a multi-byte key) enters
// the matching ignore variant for the remainder of that field.
type kittyParseState int

const (
	stateControlKey kittyParseState = iota
	stateControlValue
	stateData
	stateIgnoreKey
	stateIgnoreValue
)

// KittyCommandParser incrementally decodes one APC graphics command
// from a byte stream (as already isolated by the external VT parser's
// APC collector — this type does not see the `ESC _ G` / `ESC \`
// envelope, only the bytes between them).
type KittyCommandParser struct {
	state kittyParseState

	key      byte
	value    [10]byte
	valueLen int

	kv   map[byte]string
	data []byte
}

// NewKittyCommandParser creates a fresh parser.
func NewKittyCommandParser() *KittyCommandParser {
	return &KittyCommandParser{kv: make(map[byte]string)}
}

// Feed consumes one byte of the APC payload.
func (p *KittyCommandParser) Feed(b byte) {
	switch p.state {
	case stateControlKey:
		if b == ';' {
			p.state = stateData
			return
		}
		if b == '=' {
			if p.key != 0 {
				p.state = stateControlValue
			}
			return
		}
		if p.key != 0 {
			// A second key byte before '=': overflow, ignore this key.
			p.state = stateIgnoreKey
			return
		}
		p.key = b

	case stateControlValue:
		if b == ',' || b == ';' {
			p.kv[p.key] = string(p.value[:p.valueLen])
			p.key = 0
			p.valueLen = 0
			if b == ';' {
				p.state = stateData
			} else {
				p.state = stateControlKey
			}
			return
		}
		if p.valueLen >= len(p.value) {
			p.state = stateIgnoreValue
			return
		}
		p.value[p.valueLen] = b
		p.valueLen++

	case stateIgnoreKey:
		if b == '=' {
			p.state = stateIgnoreValue
		}

	case stateIgnoreValue:
		if b == ',' {
			p.key = 0
			p.valueLen = 0
			p.state = stateControlKey
		} else if b == ';' {
			p.key = 0
			p.valueLen = 0
			p.state = stateData
		}

	case stateData:
		p.data = append(p.data, b)
	}
}

// FeedAll feeds every byte of data in order.
func (p *KittyCommandParser) FeedAll(data []byte) {
	for _, b := range data {
		p.Feed(b)
	}
}

// Finish resolves the accumulated key/value pairs and data into a
// KittyCommand. It is safe to call Finish multiple times only if Feed
// has not been called again in between; the parser is otherwise
// single-use.
func (p *KittyCommandParser) Finish() (*KittyCommand, error) {
	if p.state == stateControlValue && p.valueLen > 0 {
		p.kv[p.key] = string(p.value[:p.valueLen])
	}

	cmd := &KittyCommand{
		Action: ActionTransmit,
		Medium: MediumDirect,
		Delete: DeleteAll,
	}

	if v, ok := p.kv['a']; ok && len(v) == 1 {
		cmd.Action = KittyAction(v[0])
	}
	if v, ok := p.kv['q']; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("termgrid: kitty command: invalid quiet value %q: %w", v, err)
		}
		cmd.Quiet = KittyQuiet(n)
	}
	if v, ok := p.kv['f']; ok {
		n, err := parseUint32(v)
		if err != nil {
			return nil, fmt.Errorf("termgrid: kitty command: invalid format %q: %w", v, err)
		}
		cmd.Format = KittyFormat(n)
	} else {
		cmd.Format = FormatRGBA
	}
	if v, ok := p.kv['t']; ok && len(v) == 1 {
		cmd.Medium = KittyMedium(v[0])
	}
	if v, ok := p.kv['o']; ok && len(v) == 1 && v[0] == 'z' {
		cmd.Compression = CompressionZlibDeflate
	}

	var err error
	if cmd.ImageID, err = parseKVUint32(p.kv, 'i'); err != nil {
		return nil, err
	}
	if cmd.ImageNumber, err = parseKVUint32(p.kv, 'I'); err != nil {
		return nil, err
	}
	if cmd.PlacementID, err = parseKVUint32(p.kv, 'p'); err != nil {
		return nil, err
	}
	if cmd.Width, err = parseKVUint32(p.kv, 's'); err != nil {
		return nil, err
	}
	if cmd.Height, err = parseKVUint32(p.kv, 'v'); err != nil {
		return nil, err
	}
	if cmd.Size, err = parseKVUint32(p.kv, 'S'); err != nil {
		return nil, err
	}
	if cmd.Offset, err = parseKVUint32(p.kv, 'O'); err != nil {
		return nil, err
	}
	if m, ok := p.kv['m']; ok {
		cmd.More = m == "1"
	}
	if cmd.SrcX, err = parseKVUint32(p.kv, 'x'); err != nil {
		return nil, err
	}
	if cmd.SrcY, err = parseKVUint32(p.kv, 'y'); err != nil {
		return nil, err
	}
	if cmd.SrcW, err = parseKVUint32(p.kv, 'w'); err != nil {
		return nil, err
	}
	if cmd.SrcH, err = parseKVUint32(p.kv, 'h'); err != nil {
		return nil, err
	}
	if cmd.CellOffsetX, err = parseKVUint32(p.kv, 'X'); err != nil {
		return nil, err
	}
	if cmd.CellOffsetY, err = parseKVUint32(p.kv, 'Y'); err != nil {
		return nil, err
	}
	if cmd.Cols, err = parseKVUint32(p.kv, 'c'); err != nil {
		return nil, err
	}
	if cmd.Rows, err = parseKVUint32(p.kv, 'r'); err != nil {
		return nil, err
	}
	if v, ok := p.kv['z']; ok {
		n, err := parseInt32(v)
		if err != nil {
			return nil, fmt.Errorf("termgrid: kitty command: invalid z %q: %w", v, err)
		}
		cmd.ZIndex = n
	}
	if v, ok := p.kv['C']; ok {
		cmd.NoMoveCursor = v == "1"
	}

	if cmd.Action == ActionDelete {
		kind := DeleteAll
		also := false
		if v, ok := p.kv['d']; ok && len(v) == 1 {
			c := v[0]
			if c >= 'A' && c <= 'Z' {
				also = true
				c += 'a' - 'A'
			}
			kind = KittyDeleteKind(c)
		}
		cmd.Delete = kind
		cmd.DeleteAlsoImage = also
		if kind == DeleteZ || kind == DeleteCellZ {
			if v, ok := p.kv['z']; ok {
				n, err := parseInt32(v)
				if err != nil {
					return nil, fmt.Errorf("termgrid: kitty command: invalid delete z %q: %w", v, err)
				}
				cmd.DeleteZValue = n
			}
		}
	}

	cmd.Payload = p.data
	return cmd, nil
}

func parseKVUint32(kv map[byte]string, key byte) (uint32, error) {
	v, ok := kv[key]
	if !ok {
		return 0, nil
	}
	n, err := parseUint32(v)
	if err != nil {
		return 0, fmt.Errorf("termgrid: kitty command: invalid %c=%q: %w", key, v, err)
	}
	return n, nil
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

// FormatKittyResponse builds the wire response for a completed
// command: `i=<id>[,I=<number>][,p=<pid>] ; <message>`,
// with message either "OK" or "E<kind>: <reason>".
func FormatKittyResponse(imageID, imageNumber, placementID uint32, message string) string {
	s := fmt.Sprintf("i=%d", imageID)
	if imageNumber != 0 {
		s += fmt.Sprintf(",I=%d", imageNumber)
	}
	if placementID != 0 {
		s += fmt.Sprintf(",p=%d", placementID)
	}
	return s + ";" + message
}

// FormatKittyError formats an error-kind response body, e.g.
// "EINVAL: bad offset".
func FormatKittyError(kind, reason string) string {
	return fmt.Sprintf("E%s: %s", kind, reason)
}
