package transport

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/intrets/mem/internal/core/entitystore"
	"github.com/intrets/mem/internal/core/guard"
	"github.com/intrets/mem/internal/core/refman"
	"github.com/intrets/mem/internal/transport/packet"
)

// OpcodeHandshake is the plaintext opcode sent as the very first frame on
// a new connection, before the cipher is initialized.
const OpcodeHandshake byte = 0xFF

// Session is the pooled payload type of a refman.Manager[Session]: the
// handle pool's worked example of a long-lived concurrent resource. The
// manager stamps handle and manager-pointer capabilities in on creation;
// everything else is plain connection state.
//
// Network I/O runs in per-connection goroutines (readLoop/writeLoop) that
// exchange packets with the scheduler only through the InQueue and
// OutQueue channels. outBuf is reached only by Send and FlushOutput, and
// always through its guard.Mutexed lock. readLoop/writeLoop never reach
// into the entity store or the session's own Manager.
type Session struct {
	handle  refman.Handle
	manager *refman.Manager[Session]

	io *sessionIO

	IP          string
	AccountName string
	CharName    string

	// Entity binds this session to the entity store, set once by whatever
	// login handler authenticates the connection. Zero until then.
	Entity entitystore.Entity
}

type sessionIO struct {
	conn   net.Conn
	cipher *Cipher
	state  atomic.Int32 // packet.SessionState
	connMu sync.Mutex   // guards the handshake write only

	InQueue  chan []byte
	OutQueue chan []byte

	outBuf *guard.Mutexed[[][]byte]

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	pktPerSec  int
	pktCount   int
	pktResetAt int64

	log *zap.Logger
}

// NewSession builds a Session value ready to be handed to refman.MakeRef.
// It does not touch the network until Start is called on the pointer
// MakeRef returns.
func NewSession(conn net.Conn, inSize, outSize, pktPerSec int, log *zap.Logger) Session {
	io := &sessionIO{
		conn:      conn,
		InQueue:   make(chan []byte, inSize),
		OutQueue:  make(chan []byte, outSize),
		outBuf:    guard.Of[[][]byte](nil),
		closeCh:   make(chan struct{}),
		pktPerSec: pktPerSec,
		log:       log,
	}
	io.state.Store(int32(packet.StateHandshake))
	return Session{
		io: io,
		IP: conn.RemoteAddr().String(),
	}
}

// SetHandle implements refman.Identifiable.
func (s *Session) SetHandle(h refman.Handle) { s.handle = h }

// SetManager implements refman.ManagerAware[Session].
func (s *Session) SetManager(m *refman.Manager[Session]) { s.manager = m }

// Handle returns the handle this session was stamped with.
func (s *Session) Handle() refman.Handle { return s.handle }

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.io.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.io.state.Store(int32(st))
}

// Start sends the plaintext handshake frame, initializes the cipher, and
// launches the reader and writer goroutines. log is bound here so the
// session ID (assigned by the server, not known at NewSession time) shows
// up in every subsequent log line.
func (s *Session) Start(log *zap.Logger) {
	s.io.log = log
	seed := rand.Int31n(0x7FFFFFFE) + 1

	buf := make([]byte, 7)
	binary.LittleEndian.PutUint16(buf[0:2], 7)
	buf[2] = OpcodeHandshake
	binary.LittleEndian.PutUint32(buf[3:7], uint32(seed))

	s.io.connMu.Lock()
	_, err := s.io.conn.Write(buf)
	s.io.connMu.Unlock()
	if err != nil {
		s.io.log.Error("handshake write failed", zap.Error(err))
		s.Close()
		return
	}

	s.io.cipher = NewCipher(seed)

	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a packet for sending. It is safe to call from the scheduler
// goroutine; FlushOutput drains the buffer into OutQueue for writeLoop.
func (s *Session) Send(data []byte) {
	if s.io.closed.Load() {
		return
	}
	g := s.io.outBuf.Acquire()
	defer g.Release()
	*g.Get() = append(*g.Get(), data)
}

// FlushOutput drains the output buffer to OutQueue for writeLoop. Called
// once per tick by a scheduler system. Non-blocking: if OutQueue is full
// the session is disconnected rather than let the scheduler block on a
// slow client.
func (s *Session) FlushOutput() {
	g := s.io.outBuf.Acquire()
	pending := *g.Get()
	*g.Get() = nil
	g.Release()

	for _, data := range pending {
		select {
		case s.io.OutQueue <- data:
		default:
			s.io.log.Warn("output queue full, disconnecting slow session")
			s.Close()
			return
		}
	}
}

// Close gracefully shuts down the session. Safe to call more than once.
func (s *Session) Close() {
	s.io.closeOnce.Do(func() {
		s.io.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.io.closeCh)
		s.io.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.io.closed.Load()
}

// InQueue exposes the channel the scheduler drains incoming packets from.
func (s *Session) InQueue() <-chan []byte { return s.io.InQueue }

// readLoop reads frames off the connection, decrypts them, and pushes them
// onto InQueue for the scheduler to consume.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.io.closeCh:
			return
		default:
		}

		payload, err := ReadFrame(s.io.conn)
		if err != nil {
			if !s.io.closed.Load() {
				s.io.log.Debug("read error", zap.Error(err))
			}
			return
		}

		decrypted := s.io.cipher.Decrypt(payload)

		if s.io.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.io.pktResetAt {
				s.io.pktCount = 0
				s.io.pktResetAt = now
			}
			s.io.pktCount++
			if s.io.pktCount > s.io.pktPerSec {
				s.io.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.io.pktCount))
				return
			}
		}

		select {
		case s.io.InQueue <- decrypted:
		case <-s.io.closeCh:
			return
		}
	}
}

// writeLoop reads packets off OutQueue, encrypts them, and writes them as
// framed data to the connection, pacing batched sends by 1ms so a burst
// doesn't hit the client all at once.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.io.OutQueue:
			if !s.writeOnePacket(data) {
				return
			}
			for len(s.io.OutQueue) > 0 {
				select {
				case more := <-s.io.OutQueue:
					time.Sleep(time.Millisecond)
					if !s.writeOnePacket(more) {
						return
					}
				case <-s.io.closeCh:
					return
				}
			}
		case <-s.io.closeCh:
			return
		}
	}
}

func (s *Session) writeOnePacket(data []byte) bool {
	if len(data) > 0 {
		s.io.log.Debug("tx",
			zap.String("op", fmt.Sprintf("0x%02X(%d)", data[0], data[0])),
			zap.Int("len", len(data)),
		)
	}

	encrypted := make([]byte, len(data))
	copy(encrypted, data)
	s.io.cipher.Encrypt(encrypted)

	s.io.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := WriteFrame(s.io.conn, encrypted); err != nil {
		if !s.io.closed.Load() {
			s.io.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
