package persist

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/intrets/mem/internal/core/component"
	"github.com/intrets/mem/internal/core/entitystore"
)

// SnapshotRepo persists the Position component for a set of entities,
// round-tripping through each component's registered Write/Read hooks
// rather than hand-rolling column access — the hook contract is the whole
// point of the demo.
type SnapshotRepo struct {
	db  *DB
	reg *component.Registry
}

func NewSnapshotRepo(db *DB, reg *component.Registry) *SnapshotRepo {
	return &SnapshotRepo{db: db, reg: reg}
}

// SavePositions upserts a row per entity that currently has a Position
// component, using the component's Write hook to obtain its canonical byte
// encoding and decoding x/y back out of it for storage in queryable
// columns.
func (r *SnapshotRepo) SavePositions(ctx context.Context, store *entitystore.Store, entities []entitystore.Entity) error {
	id := component.IDOf[Position](r.reg)
	info := r.reg.Info(id)
	if info.Write == nil {
		return fmt.Errorf("persist: Position has no Write hook registered")
	}

	for _, e := range entities {
		if !entitystore.Has[Position](store, e) {
			continue
		}
		pos := entitystore.Get[Position](store, e)
		encoded, err := info.Write(unsafe.Pointer(pos))
		if err != nil {
			return fmt.Errorf("persist: encode position for entity %d: %w", e.Raw(), err)
		}
		x := math.Float64frombits(binary.LittleEndian.Uint64(encoded[0:8]))
		y := math.Float64frombits(binary.LittleEndian.Uint64(encoded[8:16]))

		_, err = r.db.Pool.Exec(ctx,
			`INSERT INTO position_snapshots (entity, generation, x, y, updated_at)
			 VALUES ($1, $2, $3, $4, NOW())
			 ON CONFLICT (entity) DO UPDATE SET generation = $2, x = $3, y = $4, updated_at = NOW()`,
			e.Raw(), store.GetQualifier(e), x, y,
		)
		if err != nil {
			return fmt.Errorf("persist: save position for entity %d: %w", e.Raw(), err)
		}
	}
	return nil
}

// LoadPosition returns the persisted Position for entity, decoded through
// the component's Read hook, or (zero, false) if no row exists.
func (r *SnapshotRepo) LoadPosition(ctx context.Context, entity uint32) (Position, bool, error) {
	var x, y float64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT x, y FROM position_snapshots WHERE entity = $1`, entity,
	).Scan(&x, &y)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("persist: load position for entity %d: %w", entity, err)
	}

	id := component.IDOf[Position](r.reg)
	info := r.reg.Info(id)
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(x))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(y))

	var pos Position
	if _, err := info.Read(unsafe.Pointer(&pos), buf[:]); err != nil {
		return Position{}, false, fmt.Errorf("persist: decode position for entity %d: %w", entity, err)
	}
	return pos, true, nil
}

// CredentialRepo persists the Credential component, demonstrating a Write
// hook that hashes rather than stores a plaintext secret.
type CredentialRepo struct {
	db  *DB
	reg *component.Registry
}

func NewCredentialRepo(db *DB, reg *component.Registry) *CredentialRepo {
	return &CredentialRepo{db: db, reg: reg}
}

// CreateAccount hashes plaintext via Credential's Write hook and inserts
// the resulting row, keyed to entity purely for bookkeeping — the entity
// does not need a Credential component of its own; the hook only needs a
// stable address to operate on.
func (r *CredentialRepo) CreateAccount(ctx context.Context, store *entitystore.Store, entity entitystore.Entity, name, plaintext string) error {
	cred := Credential{Name: name, PlaintextPassword: plaintext}

	id := component.IDOf[Credential](r.reg)
	info := r.reg.Info(id)
	if _, err := info.Write(unsafe.Pointer(&cred)); err != nil {
		return fmt.Errorf("persist: hash credential: %w", err)
	}

	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO credentials (entity, generation, name, password_hash)
		 VALUES ($1, $2, $3, $4)`,
		entity.Raw(), store.GetQualifier(entity), cred.Name, cred.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("persist: insert credential for entity %d: %w", entity.Raw(), err)
	}
	return nil
}

// ValidatePassword checks rawPassword against the hash stored for name.
func (r *CredentialRepo) ValidatePassword(ctx context.Context, name, rawPassword string) (bool, error) {
	var hash string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT password_hash FROM credentials WHERE name = $1`, name,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persist: load credential for %q: %w", name, err)
	}
	return validateHash(hash, rawPassword), nil
}

func validateHash(hash, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}
