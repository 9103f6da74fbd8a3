// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/ManuGH/tvinput/internal/codec"
	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/rs/zerolog"
)

// HandlerFunc serves one operation. A returned error is reported to the
// caller as a ServiceError.
type HandlerFunc func(ctx context.Context, args Args) (Reply, error)

// Server serves the platform service protocol. Requests on one connection
// are handled in arrival order; events are broadcast to every connection
// that registered a callback.
type Server struct {
	logger zerolog.Logger

	hmu      sync.RWMutex
	handlers map[string]HandlerFunc

	mu    sync.Mutex
	conns map[*serverConn]struct{}

	wg sync.WaitGroup
}

type serverConn struct {
	conn net.Conn

	wmu sync.Mutex
	enc *codec.Encoder

	mu          sync.Mutex
	subscribed  bool
	connectType string
}

// NewServer creates a server with no handlers registered.
func NewServer(logger zerolog.Logger) *Server {
	return &Server{
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[*serverConn]struct{}),
	}
}

// Handle registers h for op, replacing any previous handler.
func (s *Server) Handle(op string, h HandlerFunc) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.handlers[op] = h
}

// ListenAndServe publishes the server at path and serves until ctx is done.
// A stale socket file is removed first; the socket is removed on return.
func (s *Server) ListenAndServe(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", path, err)
	}
	defer func() { _ = os.Remove(path) }()
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes every
// connection and waits for their handlers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()

	s.logger.Info().
		Str(xglog.FieldEvent, "tvserver.listening").
		Str("addr", ln.Addr().String()).
		Msg("platform service listening")

	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				acceptErr = err
			}
			break
		}
		sc := &serverConn{conn: conn, enc: codec.NewEncoder(conn)}
		s.mu.Lock()
		s.conns[sc] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, sc)
		}()
	}

	s.DropClients()
	s.wg.Wait()
	return acceptErr
}

// Broadcast pushes ev to every subscribed connection and returns how many
// received it.
func (s *Server) Broadcast(ev Event) int {
	f := frame{Kind: kindEvent, MsgType: ev.MsgType, Ints: ev.Ints, Strings: ev.Strings}
	n := 0
	for _, sc := range s.snapshot() {
		sc.mu.Lock()
		subscribed := sc.subscribed
		sc.mu.Unlock()
		if !subscribed {
			continue
		}
		if err := sc.write(f); err != nil {
			s.logger.Debug().Err(err).Str(xglog.FieldEvent, "tvserver.broadcast_failed").Msg("event write failed")
			continue
		}
		n++
	}
	return n
}

// Subscribers returns the connect types of connections with a registered callback.
func (s *Server) Subscribers() []string {
	var out []string
	for _, sc := range s.snapshot() {
		sc.mu.Lock()
		if sc.subscribed {
			out = append(out, sc.connectType)
		}
		sc.mu.Unlock()
	}
	return out
}

// DropClients closes every open connection. Clients observe this exactly
// like a service crash.
func (s *Server) DropClients() {
	for _, sc := range s.snapshot() {
		_ = sc.conn.Close()
	}
}

func (s *Server) snapshot() []*serverConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*serverConn, 0, len(s.conns))
	for sc := range s.conns {
		out = append(out, sc)
	}
	return out
}

func (s *Server) serveConn(ctx context.Context, sc *serverConn) {
	defer func() {
		_ = sc.conn.Close()
		s.mu.Lock()
		delete(s.conns, sc)
		s.mu.Unlock()
	}()

	dec := codec.NewDecoder(sc.conn)
	for {
		var req frame
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug().Err(err).Str(xglog.FieldEvent, "tvserver.decode_failed").Msg("closing connection")
			}
			return
		}
		if req.Kind != kindRequest {
			continue
		}
		resp := s.dispatch(ctx, sc, req)
		if err := sc.write(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, sc *serverConn, req frame) frame {
	resp := frame{Kind: kindResponse, ID: req.ID}

	if req.Op == OpSetCallback {
		sc.mu.Lock()
		sc.subscribed = true
		if len(req.Strings) > 0 {
			sc.connectType = req.Strings[0]
		}
		sc.mu.Unlock()
		return resp
	}

	s.hmu.RLock()
	h, ok := s.handlers[req.Op]
	s.hmu.RUnlock()
	if !ok {
		resp.Result = int32(status.NotImplemented)
		resp.Error = fmt.Sprintf("unknown op %q", req.Op)
		return resp
	}

	reply, err := h(ctx, req.args())
	resp.Result = int32(reply.Result)
	resp.Ints = reply.Ints
	resp.Strings = reply.Strings
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (sc *serverConn) write(f frame) error {
	sc.wmu.Lock()
	defer sc.wmu.Unlock()
	return sc.enc.Encode(f)
}
