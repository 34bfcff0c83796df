package core

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Server accepts connections on a net.Listener and spawns one goroutine per
// connection, each running its own Dispatcher loop.
type Server struct {
	ln      net.Listener
	stores  *Stores
	sync    *SyncEngine
	merge   *MergeEngine
	broker  *WatchBroker
	metrics *Metrics
	logger  *logrus.Logger

	wg sync.WaitGroup
}

// NewServer wraps an already-bound listener. Call Serve to begin accepting.
func NewServer(ln net.Listener, stores *Stores, sync *SyncEngine, merge *MergeEngine, broker *WatchBroker, metrics *Metrics, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{ln: ln, stores: stores, sync: sync, merge: merge, broker: broker, metrics: metrics, logger: logger}
}

// Serve accepts connections until the listener is closed, blocking the
// calling goroutine. It always returns a non-nil error (net.ErrClosed once
// Close is called, matching net.Listener's documented contract).
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.wg.Wait()
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting new connections. In-flight connections are left to
// finish their current frame and exit on their own.
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	d := NewDispatcher(s.stores, s.sync, s.merge, s.broker, s.logger, s.metrics)
	logger := s.logger.WithFields(logrus.Fields{
		"remote":  conn.RemoteAddr().String(),
		"conn_id": uuid.NewString(),
	})
	logger.Debug("connection accepted")

	for {
		action, payload, err := ReadFrame(conn)
		if err != nil {
			if errors.Is(err, ErrShortRead) || errors.Is(err, io.EOF) {
				logger.Debug("connection closed by peer")
				return
			}
			logger.WithError(err).Warn("frame read failed, closing connection")
			return
		}

		if action == ActionSyncWatch {
			s.handleWatch(conn, payload, logger)
			return
		}

		respAction, resp, err := d.Dispatch(action, payload)
		if err != nil {
			logger.WithError(err).Warn("dispatch failed, closing connection")
			return
		}
		if err := WriteFrame(conn, respAction, resp); err != nil {
			logger.WithError(err).Warn("frame write failed, closing connection")
			return
		}
	}
}

// handleWatch takes over conn for the lifetime of a single watch
// subscription: it streams one ActionSyncWatch frame per WatchEvent until
// the subscriber is dropped (slow-consumer eviction) or the peer closes its
// read side. This is the one action that turns the connection into a
// long-lived stream instead of a request/response exchange.
func (s *Server) handleWatch(conn net.Conn, payload []byte, logger *logrus.Entry) {
	tags, _, err := readTagSet(payload)
	if err != nil {
		logger.WithError(err).Warn("watch: malformed tag set")
		return
	}

	events, cancel := s.sync.Watch(tags)
	defer cancel()

	// The peer is not expected to send anything further on this connection;
	// watch is a one-shot request that upgrades the connection into a pure
	// server->client stream. A goroutine drains reads so a peer-initiated
	// close is still observed promptly.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		buf := make([]byte, 1)
		conn.Read(buf)
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			buf := writeTagSet(nil, ev.Changed)
			buf = writeGraph(buf, ev.Graph)
			if err := WriteFrame(conn, ActionSyncWatch, buf); err != nil {
				logger.WithError(err).Debug("watch: write failed, subscriber gone")
				return
			}
		case <-closed:
			return
		}
	}
}
