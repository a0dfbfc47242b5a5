package transport

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/intrets/mem/internal/core/refman"
)

// Server accepts TCP connections and admits each as a Session owned by a
// refman.Manager[Session]. New/dead sessions are communicated to the
// scheduler via channels — the accept loop itself never touches the
// entity store or any other scheduler-owned state.
type Server struct {
	listener net.Listener
	sessions *refman.Manager[Session]

	newConns chan refman.Weak[Session]
	deadCh   chan refman.Handle

	inSize, outSize, pktPerSec int
	log                        *zap.Logger
	closeCh                    chan struct{}
}

func NewServer(bindAddr string, sessions *refman.Manager[Session], inSize, outSize, pktPerSec int, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:  ln,
		sessions:  sessions,
		newConns:  make(chan refman.Weak[Session], 64),
		deadCh:    make(chan refman.Handle, 64),
		inSize:    inSize,
		outSize:   outSize,
		pktPerSec: pktPerSec,
		log:       log,
		closeCh:   make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine. It accepts connections, registers
// each as a new Session in the handle pool, starts its I/O goroutines, and
// pushes the resulting handle onto newConns for the scheduler to pick up
// at the next tick.
//
// The handle pool itself is only ever mutated from here and from whatever
// scheduler system eventually calls DeleteReference on a dead session —
// both run serialized with the rest of scheduler work, never concurrently
// with readLoop/writeLoop.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		sessionVal := NewSession(conn, s.inSize, s.outSize, s.pktPerSec, s.log)
		weak := refman.MakeRef(s.sessions, sessionVal)
		sess := weak.Get()
		log := s.log.With(zap.Uint32("session", weak.Handle().Raw()))
		sess.Start(log)

		log.Info(fmt.Sprintf("connection accepted ip=%s", sess.IP))

		select {
		case s.newConns <- weak:
		default:
			log.Warn("accept queue full, rejecting connection")
			sess.Close()
		}
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan refman.Weak[Session] {
	return s.newConns
}

// NotifyDead reports a dead session's handle to the scheduler.
func (s *Server) NotifyDead(h refman.Handle) {
	select {
	case s.deadCh <- h:
	default:
	}
}

// DeadSessions returns the channel of dead session handles.
func (s *Server) DeadSessions() <-chan refman.Handle {
	return s.deadCh
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
