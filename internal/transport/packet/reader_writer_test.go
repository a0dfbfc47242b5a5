package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterReaderRoundTripFixedWidthFields(t *testing.T) {
	w := NewWriterWithOpcode(0x42)
	w.WriteC(7)
	w.WriteH(0xBEEF)
	w.WriteD(-12345)
	w.WriteDU(0xDEADBEEF)
	w.WriteS("hello")

	r := NewReader(w.RawBytes())
	assert.Equal(t, byte(0x42), r.Opcode())
	assert.Equal(t, byte(7), r.ReadC())
	assert.Equal(t, uint16(0xBEEF), r.ReadH())
	assert.Equal(t, int32(-12345), r.ReadD())
	assert.Equal(t, uint32(0xDEADBEEF), uint32(r.ReadD()))
	assert.Equal(t, "hello", r.ReadS())
}

func TestBytesPadsTo4ByteBoundary(t *testing.T) {
	w := NewWriterWithOpcode(1) // 1 byte so far
	w.WriteC(2)                 // 2 bytes

	padded := w.Bytes()
	assert.Equal(t, 4, len(padded))
	assert.Equal(t, 2, w.Len(), "Len reflects the unpadded length")
}

func TestRawBytesIsNotPadded(t *testing.T) {
	w := NewWriterWithOpcode(1)
	assert.Equal(t, 1, len(w.RawBytes()))
}

func TestEmptyStringWritesJustTerminator(t *testing.T) {
	w := NewWriter()
	w.WriteS("")
	assert.Equal(t, []byte{0}, w.RawBytes())
}

func TestReadBytesReturnsRemainingWhenTruncated(t *testing.T) {
	r := NewReader([]byte{0x00, 1, 2, 3})
	got := r.ReadBytes(10)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, 0, r.Remaining())
}

func TestReadPastEndReturnsZeroValues(t *testing.T) {
	r := NewReader([]byte{0x00})
	assert.Equal(t, byte(0), r.ReadC())
	assert.Equal(t, uint16(0), r.ReadH())
	assert.Equal(t, int32(0), r.ReadD())
}

func TestAsciiStringsPassThroughWithoutBig5Decoding(t *testing.T) {
	w := NewWriter()
	w.WriteS("plain-ascii_123")
	r := NewReader(append([]byte{0x00}, w.RawBytes()...))
	assert.Equal(t, "plain-ascii_123", r.ReadS())
}
