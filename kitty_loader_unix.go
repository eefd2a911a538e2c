//go:build unix

package termgrid

import (
	"golang.org/x/sys/unix"
)

// ingestSharedMemory opens a POSIX shm segment by name, mmaps it
// read-only, validates its size against the expected payload size,
// and copies out [offset, offset+size) before unlinking the segment
// (the shared_memory transmission medium).
func (l *LoadingImage) ingestSharedMemory(cmd *KittyCommand) error {
	name := string(cmd.Payload)

	fd, err := unix.ShmOpen(name, unix.O_RDONLY, 0)
	if err != nil {
		return loaderErr(ErrInvalidData, "shm_open %q: %v", name, err)
	}
	defer unix.Close(fd)
	defer unix.ShmUnlink(name)

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return loaderErr(ErrInvalidData, "fstat: %v", err)
	}

	expected := int64(cmd.Width) * int64(cmd.Height) * 4
	if cmd.Format == FormatPNG {
		expected = int64(cmd.Size)
	} else if bpp, err := bytesPerPixel(cmd.Format); err == nil {
		expected = int64(cmd.Width) * int64(cmd.Height) * int64(bpp)
	}
	if stat.Size < expected {
		return loaderErr(ErrInvalidData, "shm segment %d bytes smaller than expected %d", stat.Size, expected)
	}

	data, err := unix.Mmap(fd, 0, int(stat.Size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return loaderErr(ErrInvalidData, "mmap: %v", err)
	}
	defer unix.Munmap(data)

	start := int64(cmd.Offset)
	end := start + int64(cmd.Size)
	if cmd.Size == 0 {
		end = int64(len(data))
	}
	if start < 0 || end > int64(len(data)) || start > end {
		return loaderErr(ErrInvalidData, "shm slice [%d:%d] out of bounds (len %d)", start, end, len(data))
	}

	l.buf = append(l.buf, data[start:end]...)
	return nil
}
