package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := NewCipher(12345)
	dec := NewCipher(12345)

	original := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	msg := append([]byte(nil), original...)

	enc.Encrypt(msg)
	assert.NotEqual(t, original, msg)

	dec.Decrypt(msg)
	assert.Equal(t, original, msg)
}

func TestEncryptDecryptAcrossMultipleFrames(t *testing.T) {
	enc := NewCipher(99)
	dec := NewCipher(99)

	frames := [][]byte{
		{10, 20, 30, 40},
		{1, 2, 3, 4, 5, 6, 7, 8},
		{255, 254, 253, 252, 1},
	}

	for _, f := range frames {
		original := append([]byte(nil), f...)
		enc.Encrypt(f)
		dec.Decrypt(f)
		assert.Equal(t, original, f, "key schedules must stay in lockstep across frames")
	}
}

func TestShortFramesPassThroughUnchanged(t *testing.T) {
	c := NewCipher(1)
	data := []byte{1, 2, 3}
	out := c.Encrypt(data)
	assert.Equal(t, []byte{1, 2, 3}, out)
}

func TestDifferentSeedsProduceDifferentCiphertext(t *testing.T) {
	a := NewCipher(1).Encrypt([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	b := NewCipher(2).Encrypt([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.NotEqual(t, a, b)
}
