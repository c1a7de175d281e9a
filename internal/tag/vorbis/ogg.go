package vorbis

// ogg.go implements just enough of RFC 3533 (Ogg bitstream framing) to
// split a single-stream .ogg/.opus file into its raw packets and re-mux
// edited packets back into pages. There is no third-party Ogg muxer in the
// retrieval pack's dependency surface, and the only usable primitive
// (go-flac, FLAC-specific) doesn't apply here, so this is written directly
// against the RFC.

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var errTruncatedPage = errors.New("vorbis: truncated ogg page")

type oggPage struct {
	headerType     byte
	granulePos     uint64
	serial         uint32
	sequence       uint32
	segmentTable   []byte
	data           []byte
}

func parsePages(raw []byte) ([]oggPage, error) {
	var pages []oggPage

	for len(raw) > 0 {
		if len(raw) < 27 || string(raw[:4]) != "OggS" {
			return nil, errTruncatedPage
		}

		headerType := raw[5]
		granule := binary.LittleEndian.Uint64(raw[6:14])
		serial := binary.LittleEndian.Uint32(raw[14:18])
		sequence := binary.LittleEndian.Uint32(raw[18:22])
		segCount := int(raw[26])

		if len(raw) < 27+segCount {
			return nil, errTruncatedPage
		}

		segTable := raw[27 : 27+segCount]

		dataLen := 0
		for _, s := range segTable {
			dataLen += int(s)
		}

		start := 27 + segCount
		if len(raw) < start+dataLen {
			return nil, errTruncatedPage
		}

		pages = append(pages, oggPage{
			headerType:   headerType,
			granulePos:   granule,
			serial:       serial,
			sequence:     sequence,
			segmentTable: segTable,
			data:         raw[start : start+dataLen],
		})

		raw = raw[start+dataLen:]
	}

	return pages, nil
}

// packetsFromPages reassembles logical packets from a page's segment table: a
// segment value of 255 means "more data in the next segment/page", any
// other value terminates the packet.
func packetsFromPages(pages []oggPage) [][]byte {
	var (
		packets []byte
		result  [][]byte
		offset  int
	)

	for _, page := range pages {
		for _, seg := range page.segmentTable {
			packets = append(packets, page.data[offset:offset+int(seg)]...)
			offset += int(seg)

			if seg < 255 {
				result = append(result, packets)
				packets = nil
			}
		}

		offset = 0
	}

	return result
}

// renderPage serializes one Ogg page (header + segment table + data),
// computing the RFC 3533 CRC with the checksum field zeroed during the
// calculation the Ogg page format requires.
func renderPage(serial, sequence uint32, headerType byte, granule uint64, segTable, data []byte) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("OggS")
	buf.WriteByte(0) // stream structure version
	buf.WriteByte(headerType)

	var granuleBuf [8]byte
	binary.LittleEndian.PutUint64(granuleBuf[:], granule)
	buf.Write(granuleBuf[:])

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], serial)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], sequence)
	buf.Write(u32[:])

	// checksum placeholder
	buf.Write([]byte{0, 0, 0, 0})

	buf.WriteByte(byte(len(segTable)))
	buf.Write(segTable)
	buf.Write(data)

	page := buf.Bytes()

	crc := oggCRC(page)
	binary.LittleEndian.PutUint32(page[22:26], crc)

	return page
}

// segmentTableFor lays out the lacing values for a packet of length n,
// terminating with a value < 255 (0 if n is an exact multiple of 255).
func segmentTableFor(n int) []byte {
	table := make([]byte, 0, n/255+1)

	for n >= 255 {
		table = append(table, 255)
		n -= 255
	}

	table = append(table, byte(n))

	return table
}

// oggCRC32Table is the non-reflected CRC-32 table RFC 3533 mandates
// (polynomial 0x04c11db7, no input/output reflection) -- distinct from the
// reflected variants hash/crc32 exposes (IEEE/Castagnoli/Koopman), so it's
// computed directly rather than borrowed from the standard library.
var oggCRC32Table = buildOggCRCTable() //nolint:gochecknoglobals // immutable lookup table.

func buildOggCRCTable() [256]uint32 {
	const poly = 0x04c11db7

	var table [256]uint32

	for i := range table {
		crc := uint32(i) << 24 //nolint:gosec // index is always < 256.

		for range 8 {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}

		table[i] = crc
	}

	return table
}

func oggCRC(data []byte) uint32 {
	var crc uint32

	for _, b := range data {
		crc = (crc << 8) ^ oggCRC32Table[byte(crc>>24)^b]
	}

	return crc
}
