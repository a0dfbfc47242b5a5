package persist

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/intrets/mem/internal/core/component"
)

// ptr narrows a typed pointer to the unsafe.Pointer shape component.Info's
// hooks operate on, mirroring how entitystore calls into them.
func ptr[T any](v *T) unsafe.Pointer { return unsafe.Pointer(v) }

func TestPositionWriteReadRoundTrip(t *testing.T) {
	reg := component.New()
	RegisterHooks(reg)
	id := component.IDOf[Position](reg)
	info := reg.Info(id)

	pos := Position{X: 12.5, Y: -3.25}
	encoded, err := info.Write(ptr(&pos))
	require.NoError(t, err)

	var out Position
	n, err := info.Read(ptr(&out), encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)
	assert.Equal(t, pos, out)
}

func TestCredentialWriteHashesAndClearsPlaintext(t *testing.T) {
	reg := component.New()
	RegisterHooks(reg)
	id := component.IDOf[Credential](reg)
	info := reg.Info(id)

	cred := Credential{Name: "alice", PlaintextPassword: "hunter2"}
	_, err := info.Write(ptr(&cred))
	require.NoError(t, err)

	assert.Empty(t, cred.PlaintextPassword, "plaintext must not survive the write hook")
	assert.NotEmpty(t, cred.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte("hunter2")))
}

func TestCredentialReadRoundTripsNameAndHash(t *testing.T) {
	reg := component.New()
	RegisterHooks(reg)
	id := component.IDOf[Credential](reg)
	info := reg.Info(id)

	cred := Credential{Name: "bob", PlaintextPassword: "swordfish"}
	encoded, err := info.Write(ptr(&cred))
	require.NoError(t, err)

	var out Credential
	_, err = info.Read(ptr(&out), encoded)
	require.NoError(t, err)

	assert.Equal(t, "bob", out.Name)
	assert.Equal(t, cred.PasswordHash, out.PasswordHash)
	assert.Empty(t, out.PlaintextPassword)
}
