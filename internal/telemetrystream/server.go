// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package telemetrystream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/cruzz36/roverlink/internal/storage"
)

// Store is the subset of internal/storage.Layout the acceptor needs —
// kept as an interface so tests can substitute an in-memory fake.
type Store interface {
	Store(ctx context.Context, filename string, content []byte) (string, error)
}

// Server accepts TelemetryStream connections and spawns one isolated
// worker per connection. Workers never share mutable
// state; a slow or failing worker cannot block the acceptor or other
// workers.
type Server struct {
	ln     net.Listener
	store  Store
	logger *slog.Logger
}

// Listen binds addr and returns a Server ready to Serve.
func Listen(addr string, store Store, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding telemetrystream listener: %w", err)
	}
	return &Server{ln: ln, store: store, logger: logger}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

// Serve runs the accept loop until ctx is cancelled or the listener is
// closed.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

// handle drains one connection's frame and stores it. Any error closes
// the connection and is logged; it never propagates to the acceptor.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	prefix := make([]byte, lengthPrefixLen)
	if _, err := io.ReadFull(conn, prefix); err != nil {
		s.logger.Warn("reading length prefix", "error", err, "remote", conn.RemoteAddr())
		return
	}
	nameLen, err := decodeLength(prefix)
	if err != nil {
		s.logger.Warn("invalid length prefix", "error", err, "remote", conn.RemoteAddr())
		return
	}

	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(conn, nameBuf); err != nil {
		s.logger.Warn("reading filename", "error", err, "remote", conn.RemoteAddr())
		return
	}
	filename := string(nameBuf)
	if err := storage.ValidatePathComponent(filename, "filename"); err != nil {
		s.logger.Warn("rejecting unsafe filename", "error", err, "remote", conn.RemoteAddr())
		return
	}

	content, err := io.ReadAll(conn)
	if err != nil {
		s.logger.Warn("reading file content", "error", err, "remote", conn.RemoteAddr(), "filename", filename)
		return
	}

	path, err := s.store.Store(ctx, filename, content)
	if err != nil {
		s.logger.Warn("storing artifact", "error", err, "filename", filename)
		return
	}
	s.logger.Info("telemetry artifact stored", "filename", filename, "path", path, "bytes", len(content))
}
