package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello, world")

	require.NoError(t, WriteFrame(&buf, payload))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameRejectsTruncatedHeader(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x01})
	_, err := ReadFrame(buf)
	assert.Error(t, err)
}

func TestReadFrameMaxLengthFailsOnMissingPayload(t *testing.T) {
	var header [2]byte
	header[0], header[1] = 0xff, 0xff // totalLen=65535, the largest a 2-byte header can hold
	buf := bytes.NewBuffer(header[:])
	_, err := ReadFrame(buf)
	// 65535-2 = 65533, exactly at the boundary, should succeed reading header
	// but then fail on the short payload read.
	assert.Error(t, err)
}

func TestReadFrameRejectsZeroLengthPayload(t *testing.T) {
	var header [2]byte
	header[0], header[1] = 0x02, 0x00 // totalLen=2, payloadLen=0
	buf := bytes.NewBuffer(header[:])
	_, err := ReadFrame(buf)
	assert.Error(t, err)
}

func TestMultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("first")))
	require.NoError(t, WriteFrame(&buf, []byte("second")))

	first, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), first)

	second, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), second)
}
