package persist

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/crypto/bcrypt"

	"github.com/intrets/mem/internal/core/component"
)

// Position is the one geometry component this demo persists. Its Write
// hook little-endian-encodes both fields; Read decodes them back — the
// minimal realization of the serialization hook contract component.Info
// only specifies.
type Position struct {
	X, Y float64
}

func writePosition(p *Position, buf []byte) ([]byte, error) {
	out := buf[:0]
	var tmp [16]byte
	binary.LittleEndian.PutUint64(tmp[0:8], math.Float64bits(p.X))
	binary.LittleEndian.PutUint64(tmp[8:16], math.Float64bits(p.Y))
	return append(out, tmp[:]...), nil
}

func readPosition(p *Position, data []byte) (int, error) {
	if len(data) < 16 {
		return 0, fmt.Errorf("persist: position payload too short (%d bytes)", len(data))
	}
	p.X = math.Float64frombits(binary.LittleEndian.Uint64(data[0:8]))
	p.Y = math.Float64frombits(binary.LittleEndian.Uint64(data[8:16]))
	return 16, nil
}

func printPosition(p *Position) string {
	return fmt.Sprintf("Position{X: %.2f, Y: %.2f}", p.X, p.Y)
}

// Credential holds a login name and, once Write has run, a bcrypt hash.
// PlaintextPassword is only ever populated transiently by a caller about to
// persist a new account; Write clears it after hashing so it never lingers
// in memory longer than one serialization pass.
type Credential struct {
	Name              string
	PasswordHash      string
	PlaintextPassword string
}

func writeCredential(c *Credential, buf []byte) ([]byte, error) {
	if c.PlaintextPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(c.PlaintextPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("persist: hash credential: %w", err)
		}
		c.PasswordHash = string(hash)
		c.PlaintextPassword = ""
	}
	out := buf[:0]
	out = appendLengthPrefixed(out, c.Name)
	out = appendLengthPrefixed(out, c.PasswordHash)
	return out, nil
}

func readCredential(c *Credential, data []byte) (int, error) {
	name, n1, err := readLengthPrefixed(data)
	if err != nil {
		return 0, err
	}
	hash, n2, err := readLengthPrefixed(data[n1:])
	if err != nil {
		return 0, err
	}
	c.Name = name
	c.PasswordHash = hash
	c.PlaintextPassword = ""
	return n1 + n2, nil
}

func printCredential(c *Credential) string {
	return fmt.Sprintf("Credential{Name: %q}", c.Name)
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(s)))
	buf = append(buf, length[:]...)
	return append(buf, s...)
}

func readLengthPrefixed(data []byte) (string, int, error) {
	if len(data) < 4 {
		return "", 0, fmt.Errorf("persist: length prefix truncated")
	}
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	if len(data) < 4+n {
		return "", 0, fmt.Errorf("persist: string payload truncated")
	}
	return string(data[4 : 4+n]), 4 + n, nil
}

// RegisterHooks opts Position and Credential into reg with their
// serialization and debug-print hooks. Core packages never call this —
// only the demo persistence layer, preserving the "no serialization logic
// inside core packages" boundary.
func RegisterHooks(reg *component.Registry) {
	component.WithHooks[Position](reg, readPosition, func(p *Position) ([]byte, error) {
		return writePosition(p, nil)
	}, printPosition)
	component.WithHooks[Credential](reg, readCredential, func(c *Credential) ([]byte, error) {
		return writeCredential(c, nil)
	}, printCredential)
}
