// Package server implements the remote-copy listener: a TCP endpoint that
// accepts raw text on a connection, stores it, and places it on the local
// clipboard. Intended for piping from remote shells, e.g.
//
//	ssh host cat file | nc localhost 7779
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/clipd/clipd/internal/clipboard"
	"github.com/clipd/clipd/internal/logging"
	"github.com/clipd/clipd/internal/store/filestore"
)

// maxPayload caps one connection's content. Anything larger is truncated
// rather than rejected; text that size is almost certainly a mistake.
const maxPayload = 10 << 20

// readTimeout bounds how long a connection may dribble data.
const readTimeout = 30 * time.Second

// Server accepts remote copy requests over TCP.
type Server struct {
	store *filestore.Store
	board clipboard.Clipboard
	addr  string
}

// New creates a server storing into st and copying to board. board may be
// nil; content is then stored without touching the clipboard.
func New(st *filestore.Store, board clipboard.Clipboard, addr string) *Server {
	return &Server{store: st, board: board, addr: addr}
}

// ListenAndServe binds the configured address and serves until ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled. It closes ln on
// the way out and waits for in-flight connections to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logging.ForComponent(logging.CompServer)
	log.Info("listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(conn, log)
		}()
	}
}

// handle reads one connection to EOF and ingests the payload.
func (s *Server) handle(conn net.Conn, log *slog.Logger) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	data, err := io.ReadAll(io.LimitReader(conn, maxPayload))
	if err != nil && !errors.Is(err, io.EOF) {
		log.Warn("read failed", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}
	content := string(data)
	if content == "" {
		return
	}

	entry, err := s.store.Ingest(content)
	if err != nil {
		log.Warn("ingest failed", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	if s.board != nil {
		if err := s.board.Write(content); err != nil {
			log.Warn("clipboard write failed", "error", err)
		}
	}
	if entry != nil {
		log.Debug("received", "remote", conn.RemoteAddr().String(), "id", entry.ID, "size", entry.Size)
	}
}
