package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Serialized frame blob layout, all integers big-endian:
//
//	magic   [4]byte "GLYF"
//	version uint16
//	size    uint16  square frame size in pixels
//	frames  uint16  frame count
//	per frame:
//	  duration uint32  milliseconds
//	  pix      size*size*4 bytes RGBA
const (
	blobMagic   = "GLYF"
	blobVersion = 1
)

// ErrCorruptBlob is returned when a cache entry fails structural checks.
var ErrCorruptBlob = errors.New("corrupt frame blob")

// EncodeFrames serializes decoded frames into the disk cache entry format.
func EncodeFrames(frames []Frame, size int) ([]byte, error) {
	if size <= 0 || size > 0xFFFF {
		return nil, fmt.Errorf("invalid frame size %d", size)
	}
	if len(frames) == 0 || len(frames) > 0xFFFF {
		return nil, fmt.Errorf("invalid frame count %d", len(frames))
	}

	pixLen := size * size * 4
	buf := make([]byte, 0, 4+2+2+2+len(frames)*(4+pixLen))
	buf = append(buf, blobMagic...)
	buf = binary.BigEndian.AppendUint16(buf, blobVersion)
	buf = binary.BigEndian.AppendUint16(buf, uint16(size))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(frames)))

	for i, f := range frames {
		if f.Size != size || len(f.Pix) != pixLen {
			return nil, fmt.Errorf("frame %d has size %d, want %d", i, f.Size, size)
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(f.Duration/time.Millisecond))
		buf = append(buf, f.Pix...)
	}
	return buf, nil
}

// DecodeFrames deserializes a disk cache entry. The expected size guards
// against entries written for a different render size landing in the same
// slot.
func DecodeFrames(blob []byte, expectSize int) ([]Frame, error) {
	if len(blob) < 10 || string(blob[:4]) != blobMagic {
		return nil, ErrCorruptBlob
	}
	if binary.BigEndian.Uint16(blob[4:6]) != blobVersion {
		return nil, ErrCorruptBlob
	}
	size := int(binary.BigEndian.Uint16(blob[6:8]))
	count := int(binary.BigEndian.Uint16(blob[8:10]))
	if size != expectSize || count == 0 {
		return nil, ErrCorruptBlob
	}

	pixLen := size * size * 4
	offset := 10
	frames := make([]Frame, 0, count)
	for i := 0; i < count; i++ {
		if len(blob) < offset+4+pixLen {
			return nil, ErrCorruptBlob
		}
		duration := time.Duration(binary.BigEndian.Uint32(blob[offset:])) * time.Millisecond
		offset += 4
		pix := make([]byte, pixLen)
		copy(pix, blob[offset:offset+pixLen])
		offset += pixLen

		frames = append(frames, Frame{
			Pix:      pix,
			Size:     size,
			Duration: duration,
		})
	}
	if offset != len(blob) {
		return nil, ErrCorruptBlob
	}
	return frames, nil
}
