package termgrid

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LoaderError is the loader's error taxonomy. All of
// these are reported back to the client via a Kitty response; none
// are fatal to the terminal.
type LoaderError string

const (
	ErrInvalidData              LoaderError = "InvalidData"
	ErrDecompressionFailed      LoaderError = "DecompressionFailed"
	ErrDimensionsRequired       LoaderError = "DimensionsRequired"
	ErrDimensionsTooLarge       LoaderError = "DimensionsTooLarge"
	ErrFilePathTooLong          LoaderError = "FilePathTooLong"
	ErrTemporaryFileNotInTemp   LoaderError = "TemporaryFileNotInTempDir"
	ErrUnsupportedFormat        LoaderError = "UnsupportedFormat"
	ErrUnsupportedMedium        LoaderError = "UnsupportedMedium"
	ErrUnsupportedDepth         LoaderError = "UnsupportedDepth"
	ErrInternal                 LoaderError = "InternalError"
)

// LoaderErr wraps a LoaderError with a human-readable reason, giving
// FormatKittyError (which ExecuteKitty calls with kind "INVAL") something
// to print.
type LoaderErr struct {
	Kind   LoaderError
	Reason string
}

func (e *LoaderErr) Error() string { return fmt.Sprintf("termgrid: kitty loader: %s: %s", e.Kind, e.Reason) }

func loaderErr(kind LoaderError, format string, args ...any) error {
	return &LoaderErr{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

const maxTransmissionBytes = 400 * 1024 * 1024

// maxImageDimension bounds width/height.
const maxImageDimension = 10000

// Decompressor decodes a compressed payload; injected so tests can
// substitute a fake without needing real zlib streams, and so the
// loader's only hard dependency on compress/zlib is this one default.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// PNGDecoder decodes a PNG payload into raw RGBA pixels plus
// dimensions.
type PNGDecoder interface {
	Decode(data []byte) (rgba []byte, width, height int, err error)
}

type zlibDecompressor struct{}

func (zlibDecompressor) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type stdPNGDecoder struct{}

func (stdPNGDecoder) Decode(data []byte) ([]byte, int, int, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]byte, w*h*4)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
			out[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return out, w, h, nil
}

// LoadingImage accumulates a chunked image transmission until a final
// (non-More) chunk completes it into an Image. Only one LoadingImage
// is in flight at a time. While one is, ExecuteKitty treats every
// transmit as a continuation of it (a direct-medium payload is
// appended, other media add nothing); a new first chunk does not
// cancel or replace the in-flight load.
type LoadingImage struct {
	ImageID     uint32
	ImageNumber uint32
	Format      KittyFormat
	Compression KittyCompression
	Width       uint32
	Height      uint32

	buf []byte

	decompressor Decompressor
	pngDecoder   PNGDecoder
}

// LoaderOption configures a LoadingImage's injected codecs.
type LoaderOption func(*LoadingImage)

// WithDecompressor overrides the zlib decompressor (default: stdlib
// compress/zlib).
func WithDecompressor(d Decompressor) LoaderOption { return func(l *LoadingImage) { l.decompressor = d } }

// WithPNGDecoder overrides the PNG decoder (default: stdlib
// image/png).
func WithPNGDecoder(d PNGDecoder) LoaderOption { return func(l *LoadingImage) { l.pngDecoder = d } }

// NewLoadingImage starts a load from cmd's transmission metadata,
// ingesting data per cmd.Medium.
func NewLoadingImage(cmd *KittyCommand, opts ...LoaderOption) (*LoadingImage, error) {
	l := &LoadingImage{
		ImageID:      cmd.ImageID,
		ImageNumber:  cmd.ImageNumber,
		Format:       cmd.Format,
		Compression:  cmd.Compression,
		Width:        cmd.Width,
		Height:       cmd.Height,
		decompressor: zlibDecompressor{},
		pngDecoder:   stdPNGDecoder{},
	}
	for _, opt := range opts {
		opt(l)
	}

	switch cmd.Medium {
	case MediumDirect:
		l.buf = append(l.buf, cmd.Payload...)
	case MediumFile, MediumTempFile:
		if err := l.ingestFile(cmd); err != nil {
			return nil, err
		}
	case MediumSharedMemory:
		if err := l.ingestSharedMemory(cmd); err != nil {
			return nil, err
		}
	default:
		return nil, loaderErr(ErrUnsupportedMedium, "medium %q", cmd.Medium)
	}

	return l, nil
}

// AddData appends a chunked transmission's next segment (m=1), capped
// at 400 MB total.
func (l *LoadingImage) AddData(data []byte) error {
	if len(l.buf)+len(data) > maxTransmissionBytes {
		return loaderErr(ErrInvalidData, "transmission exceeds %d bytes", maxTransmissionBytes)
	}
	l.buf = append(l.buf, data...)
	return nil
}

// forbiddenPathPrefixes are refused outright, except /dev/shm which
// is where POSIX shm segments conventionally live.
var forbiddenPathPrefixes = []string{"/proc", "/sys", "/dev"}

func isForbiddenPath(path string) bool {
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "/dev/shm") {
		return false
	}
	for _, prefix := range forbiddenPathPrefixes {
		if clean == prefix || strings.HasPrefix(clean, prefix+"/") {
			return true
		}
	}
	return false
}

// ingestFile resolves cmd.Payload as a filesystem path (the
// file/temporary_file transmission media) and reads up to
// min(size, 400MB) bytes at offset.
func (l *LoadingImage) ingestFile(cmd *KittyCommand) error {
	path := string(cmd.Payload)
	if len(path) > 4096 {
		return loaderErr(ErrFilePathTooLong, "path length %d", len(path))
	}
	if isForbiddenPath(path) {
		return loaderErr(ErrInvalidData, "path %q is under a forbidden prefix", path)
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return loaderErr(ErrInvalidData, "resolve path: %v", err)
	}

	if cmd.Medium == MediumTempFile {
		tmp := os.TempDir()
		realTmp, err := filepath.EvalSymlinks(tmp)
		if err != nil {
			realTmp = tmp
		}
		if !strings.HasPrefix(real, realTmp) {
			return loaderErr(ErrTemporaryFileNotInTemp, "path %q not under %q", real, realTmp)
		}
	}

	info, err := os.Stat(real)
	if err != nil {
		return loaderErr(ErrInvalidData, "stat: %v", err)
	}
	if !info.Mode().IsRegular() {
		return loaderErr(ErrInvalidData, "%q is not a regular file", real)
	}

	f, err := os.Open(real)
	if err != nil {
		return loaderErr(ErrInvalidData, "open: %v", err)
	}
	defer f.Close()

	if cmd.Medium == MediumTempFile {
		defer os.Remove(real)
	}

	if cmd.Offset != 0 {
		if _, err := f.Seek(int64(cmd.Offset), io.SeekStart); err != nil {
			return loaderErr(ErrInvalidData, "seek: %v", err)
		}
	}

	readLen := int64(cmd.Size)
	if readLen == 0 || readLen > maxTransmissionBytes {
		readLen = maxTransmissionBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, readLen))
	if err != nil {
		return loaderErr(ErrInvalidData, "read: %v", err)
	}
	l.buf = append(l.buf, data...)
	return nil
}

// complete runs the decompress/decode pipeline shared by direct and
// file-sourced loads; Complete (exported) is its entry point.
func (l *LoadingImage) complete() (*Image, error) {
	data := l.buf

	if l.Compression == CompressionZlibDeflate {
		out, err := l.decompressor.Decompress(data)
		if err != nil {
			return nil, loaderErr(ErrDecompressionFailed, "%v", err)
		}
		data = out
	}

	format := l.Format
	width, height := int(l.Width), int(l.Height)

	if format == FormatPNG {
		rgba, w, h, err := l.pngDecoder.Decode(data)
		if err != nil {
			return nil, loaderErr(ErrUnsupportedFormat, "png decode: %v", err)
		}
		data, width, height, format = rgba, w, h, FormatRGBA
	}

	if width <= 0 || height <= 0 {
		return nil, loaderErr(ErrDimensionsRequired, "width=%d height=%d", width, height)
	}
	if width > maxImageDimension || height > maxImageDimension {
		return nil, loaderErr(ErrDimensionsTooLarge, "width=%d height=%d", width, height)
	}

	bpp, err := bytesPerPixel(format)
	if err != nil {
		return nil, err
	}

	if format == FormatRGB {
		data = rgbToRGBA(data)
		format = FormatRGBA
		bpp = 4
	}

	want := width * height * bpp
	if len(data) != want {
		return nil, loaderErr(ErrInvalidData, "decoded length %d != %d (w=%d h=%d bpp=%d)", len(data), want, width, height, bpp)
	}

	return &Image{
		ID:     l.ImageID,
		Number: l.ImageNumber,
		Width:  width,
		Height: height,
		Format: format,
		Data:   data,
	}, nil
}

// Complete finalizes the load: decompress, decode PNG
// if needed, validate dimensions, and require an exact
// width*height*bpp length match (the loading path is strict; raw
// construction via NewImage is lenient, see NewImage).
func (l *LoadingImage) Complete() (*Image, error) {
	return l.complete()
}

func bytesPerPixel(f KittyFormat) (int, error) {
	switch f {
	case FormatRGB:
		return 3, nil
	case FormatRGBA:
		return 4, nil
	default:
		return 0, loaderErr(ErrUnsupportedDepth, "format %d", f)
	}
}

func rgbToRGBA(rgb []byte) []byte {
	n := len(rgb) / 3
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		out[i*4] = rgb[i*3]
		out[i*4+1] = rgb[i*3+1]
		out[i*4+2] = rgb[i*3+2]
		out[i*4+3] = 0xFF
	}
	return out
}
