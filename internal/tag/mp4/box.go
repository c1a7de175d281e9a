package mp4

import (
	"encoding/binary"
	"errors"
)

var errTruncatedBox = errors.New("mp4: truncated box")

// box is one parsed ISO-BMFF box: its four-character type and its full
// encoded bytes (8-byte header included). Boxes this package does not need
// to look inside (mdat, free, trak's internals other than stco/co64, ...)
// are kept exactly as read and written back unmodified.
type box struct {
	Type string
	Raw  []byte
}

// payload returns the bytes after the 8-byte size+type header.
func (b box) payload() []byte { return b.Raw[8:] }

// parseBoxes splits data into a sequential list of top-level boxes. 64-bit
// "largesize" boxes (size field 1) are not produced by any encoder this
// package writes, but are still passed through opaquely if encountered.
func parseBoxes(data []byte) ([]box, error) {
	var boxes []box

	pos := 0
	for pos < len(data) {
		if len(data)-pos < 8 {
			return nil, errTruncatedBox
		}

		size := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])

		headerLen := 8
		boxSize := size

		switch {
		case size == 1:
			if len(data)-pos < 16 {
				return nil, errTruncatedBox
			}

			boxSize = int(binary.BigEndian.Uint64(data[pos+8 : pos+16])) //nolint:gosec // file sizes fit comfortably in int on all supported platforms.
			headerLen = 16
		case size == 0:
			boxSize = len(data) - pos
		}

		if boxSize < headerLen || pos+boxSize > len(data) {
			return nil, errTruncatedBox
		}

		raw := make([]byte, boxSize)
		copy(raw, data[pos:pos+boxSize])
		boxes = append(boxes, box{Type: typ, Raw: raw})

		pos += boxSize
	}

	return boxes, nil
}

// encodeBoxes concatenates a box list back into its raw byte form.
func encodeBoxes(boxes []box) []byte {
	var out []byte
	for _, b := range boxes {
		out = append(out, b.Raw...)
	}

	return out
}

// rebuild replaces b's payload with newPayload and fixes up its size header.
// Only used for 32-bit-size boxes (every box this package constructs).
func rebuild(typ string, newPayload []byte) box {
	raw := make([]byte, 8+len(newPayload))
	binary.BigEndian.PutUint32(raw[0:4], uint32(len(raw))) //nolint:gosec // mp4 metadata atoms never approach uint32 overflow.
	copy(raw[4:8], typ)
	copy(raw[8:], newPayload)

	return box{Type: typ, Raw: raw}
}

func findBox(boxes []box, typ string) int {
	for i, b := range boxes {
		if b.Type == typ {
			return i
		}
	}

	return -1
}

// adjustChunkOffsets walks every stco/co64 sample-table box reachable
// through the standard moov/trak/mdia/minf/stbl containment chain (udta and
// meta included, since meta never contains stco but the walk applies one
// uniform recursion rule) and shifts each absolute chunk offset by delta.
// This keeps sample data addressable after moov's re-encoded size differs
// from the one on disk and moov precedes mdat (the common, non-streaming-
// optimized MP4/M4A layout): growing or shrinking the metadata atom moves
// every byte that follows it, including the audio data stco points into.
func adjustChunkOffsets(data []byte, delta int64) []byte {
	if delta == 0 {
		return data
	}

	boxes, err := parseBoxes(data)
	if err != nil {
		return data
	}

	for i, b := range boxes {
		switch b.Type {
		case "stco":
			boxes[i] = box{Type: b.Type, Raw: patchSTCO(b.Raw, delta)}
		case "co64":
			boxes[i] = box{Type: b.Type, Raw: patchCO64(b.Raw, delta)}
		case "moov", "trak", "mdia", "minf", "stbl", "udta", "edts", "mvex":
			inner := adjustChunkOffsets(b.Raw[8:], delta)
			boxes[i] = rebuild(b.Type, inner)
		case "meta":
			if len(b.Raw) >= 12 {
				inner := adjustChunkOffsets(b.Raw[12:], delta)
				payload := append(append([]byte{}, b.Raw[8:12]...), inner...)
				boxes[i] = rebuild(b.Type, payload)
			}
		}
	}

	return encodeBoxes(boxes)
}

// patchSTCO rewrites every 32-bit chunk offset in a "stco" box (full box:
// 4-byte version/flags, 4-byte entry count, then entry_count uint32s).
func patchSTCO(raw []byte, delta int64) []byte {
	out := append([]byte{}, raw...)

	if len(out) < 16 {
		return out
	}

	count := int(binary.BigEndian.Uint32(out[12:16]))
	pos := 16

	for i := 0; i < count && pos+4 <= len(out); i++ {
		offset := int64(binary.BigEndian.Uint32(out[pos : pos+4]))
		binary.BigEndian.PutUint32(out[pos:pos+4], uint32(offset+delta)) //nolint:gosec // chunk offsets stay well within uint32 range for files this package edits.
		pos += 4
	}

	return out
}

// patchCO64 is patchSTCO's 64-bit-offset counterpart.
func patchCO64(raw []byte, delta int64) []byte {
	out := append([]byte{}, raw...)

	if len(out) < 16 {
		return out
	}

	count := int(binary.BigEndian.Uint32(out[12:16]))
	pos := 16

	for i := 0; i < count && pos+8 <= len(out); i++ {
		offset := int64(binary.BigEndian.Uint64(out[pos : pos+8])) //nolint:gosec // file offsets fit in int64.
		binary.BigEndian.PutUint64(out[pos:pos+8], uint64(offset+delta))
		pos += 8
	}

	return out
}
