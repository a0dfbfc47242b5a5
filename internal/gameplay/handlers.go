// Package gameplay wires the entity store, the session handle pool, and
// the persistence layer together behind a small set of packet handlers —
// the demo program's worked example of C4/C5 driven by real network
// input rather than a unit test.
package gameplay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/intrets/mem/internal/core/entitystore"
	"github.com/intrets/mem/internal/core/event"
	"github.com/intrets/mem/internal/core/refman"
	"github.com/intrets/mem/internal/persist"
	"github.com/intrets/mem/internal/transport"
	"github.com/intrets/mem/internal/transport/packet"
)

const (
	OpcodeLogin      byte = 0x01
	OpcodeEnterWorld byte = 0x02
	OpcodeMove       byte = 0x03
	OpcodeLogout     byte = 0x04
)

// Deps bundles what a handler needs to reach the entity store, the session
// pool, and the credential repository without a global.
type Deps struct {
	Store       *entitystore.Store
	Sessions    *refman.Manager[transport.Session]
	Credentials *persist.CredentialRepo
	Bus         *event.Bus
	Log         *zap.Logger
}

// RegisterAll registers every gameplay handler with reg.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(OpcodeLogin, []packet.SessionState{packet.StateHandshake}, deps.handleLogin)
	reg.Register(OpcodeEnterWorld, []packet.SessionState{packet.StateAuthenticated}, deps.handleEnterWorld)
	reg.Register(OpcodeMove, []packet.SessionState{packet.StateActive}, deps.handleMove)
	reg.Register(OpcodeLogout, []packet.SessionState{packet.StateAuthenticated, packet.StateActive}, deps.handleLogout)
}

// handleLogin validates (or, for this demo, lazily registers) an account
// against the credentials table, creates the backing entity, and advances
// the session to StateAuthenticated. The entity gets its Position only on
// EnterWorld, once the client has acknowledged the login result.
func (d *Deps) handleLogin(rawSess any, r *packet.Reader) {
	sess := rawSess.(*transport.Session)
	name := r.ReadS()
	password := r.ReadS()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := d.Credentials.ValidatePassword(ctx, name, password)
	if err != nil {
		d.Log.Error("credential lookup failed", zap.String("name", name), zap.Error(err))
		sess.Close()
		return
	}

	entity := d.Store.Make()
	entitystore.Add[persist.Credential](d.Store, entity, persist.Credential{Name: name})

	if !ok {
		// No existing account with this name: treat login as first-time
		// registration, matching the demo's "no separate signup opcode"
		// scope decision. ValidatePassword also reports false for a wrong
		// password on an existing name; CreateAccount then fails on the
		// unique name column and the session is closed.
		if err := d.Credentials.CreateAccount(ctx, d.Store, entity, name, password); err != nil {
			d.Log.Error("account creation failed", zap.String("name", name), zap.Error(err))
			d.Store.Remove(entity)
			sess.Close()
			return
		}
	}

	sess.Entity = entity
	sess.AccountName = name
	sess.SetState(packet.StateAuthenticated)

	ack := packet.NewWriterWithOpcode(OpcodeLogin)
	ack.WriteC(1)
	sess.Send(ack.Bytes())
}

// handleEnterWorld attaches a Position component to the entity handleLogin
// already created, and advances the session to StateActive.
func (d *Deps) handleEnterWorld(rawSess any, r *packet.Reader) {
	sess := rawSess.(*transport.Session)

	entitystore.Add[persist.Position](d.Store, sess.Entity, persist.Position{})
	sess.SetState(packet.StateActive)

	ack := packet.NewWriterWithOpcode(OpcodeEnterWorld)
	ack.WriteDU(sess.Entity.Raw())
	sess.Send(ack.Bytes())
}

// handleMove applies a relative displacement to the session's Position
// component and echoes the new coordinates back.
func (d *Deps) handleMove(rawSess any, r *packet.Reader) {
	sess := rawSess.(*transport.Session)
	dx := r.ReadD()
	dy := r.ReadD()

	if !entitystore.Has[persist.Position](d.Store, sess.Entity) {
		return
	}
	pos := entitystore.Get[persist.Position](d.Store, sess.Entity)
	pos.X += float64(dx)
	pos.Y += float64(dy)

	ack := packet.NewWriterWithOpcode(OpcodeMove)
	ack.WriteD(int32(pos.X))
	ack.WriteD(int32(pos.Y))
	sess.Send(ack.Bytes())
}

// handleLogout removes the session's entity, releases its handle from the
// pool, and closes the connection — the demo's worked example of
// refman.Manager.DeleteReference driven by application logic rather than a
// disconnect.
func (d *Deps) handleLogout(rawSess any, r *packet.Reader) {
	sess := rawSess.(*transport.Session)
	if !sess.Entity.IsZero() {
		d.Store.Remove(sess.Entity)
	}
	h := sess.Handle()
	sess.Close()
	d.Sessions.DeleteReference(h)
}
