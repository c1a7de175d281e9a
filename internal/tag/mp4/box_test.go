package mp4

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	a := rebuild("ftyp", []byte("M4A payload"))
	b := rebuild("free", nil)
	raw := append(append([]byte{}, a.Raw...), b.Raw...)

	boxes, err := parseBoxes(raw)
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, "ftyp", boxes[0].Type)
	assert.Equal(t, "free", boxes[1].Type)
	assert.Equal(t, []byte("M4A payload"), boxes[0].payload())

	assert.Equal(t, raw, encodeBoxes(boxes))
}

func TestParseBoxesRejectsTruncated(t *testing.T) {
	t.Parallel()

	box := rebuild("moov", []byte("payload"))

	_, err := parseBoxes(box.Raw[:len(box.Raw)-2])
	require.Error(t, err)

	_, err = parseBoxes([]byte{0, 0, 0})
	require.Error(t, err)
}

func TestRebuildSizesHeader(t *testing.T) {
	t.Parallel()

	b := rebuild("ilst", make([]byte, 100))

	assert.Len(t, b.Raw, 108)
	assert.Equal(t, uint32(108), binary.BigEndian.Uint32(b.Raw[:4]))
	assert.Equal(t, "ilst", string(b.Raw[4:8]))
}

func buildSTCO(offsets []uint32) []byte {
	payload := make([]byte, 8+4*len(offsets))
	binary.BigEndian.PutUint32(payload[4:8], uint32(len(offsets))) //nolint:gosec // tiny test count.

	for i, offset := range offsets {
		binary.BigEndian.PutUint32(payload[8+i*4:12+i*4], offset)
	}

	return rebuild("stco", payload).Raw
}

func TestPatchSTCO(t *testing.T) {
	t.Parallel()

	raw := patchSTCO(buildSTCO([]uint32{100, 200, 300}), 16)

	assert.Equal(t, uint32(116), binary.BigEndian.Uint32(raw[16:20]))
	assert.Equal(t, uint32(216), binary.BigEndian.Uint32(raw[20:24]))
	assert.Equal(t, uint32(316), binary.BigEndian.Uint32(raw[24:28]))
}

func TestAdjustChunkOffsetsWalksContainers(t *testing.T) {
	t.Parallel()

	stbl := rebuild("stbl", buildSTCO([]uint32{1000}))
	minf := rebuild("minf", stbl.Raw)
	mdia := rebuild("mdia", minf.Raw)
	trak := rebuild("trak", mdia.Raw)
	moov := rebuild("moov", trak.Raw)

	adjusted := adjustChunkOffsets(moov.Raw, -100)

	boxes, err := parseBoxes(adjusted)
	require.NoError(t, err)

	inner := boxes[0].Raw
	offsetPos := len(inner) - 4

	assert.Equal(t, uint32(900), binary.BigEndian.Uint32(inner[offsetPos:]))
}

func TestAdjustChunkOffsetsZeroDeltaIsIdentity(t *testing.T) {
	t.Parallel()

	raw := rebuild("moov", buildSTCO([]uint32{123})).Raw

	assert.Equal(t, raw, adjustChunkOffsets(raw, 0))
}
