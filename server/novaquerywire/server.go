package novaquerywire

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/novaquery"
	"github.com/tuannm99/novaquery/internal/metrics"
	"github.com/tuannm99/novaquery/internal/sqlerr"
	"github.com/tuannm99/novaquery/server/admin"
)

type ServerConfig struct {
	Addr      string
	AdminAddr string // empty disables the admin server
	MaxConns  int
	Logger    *slog.Logger
}

// Server speaks the frame protocol on top of one shared DB. Each connection
// is a session with its own id; statements from all sessions are serialized
// by the DB.
type Server struct {
	db   *novaquery.DB
	log  *slog.Logger
	pool *ants.Pool

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewServer(db *novaquery.DB, maxConns int, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	if maxConns <= 0 {
		maxConns = 1
	}
	s := &Server{db: db, log: log, conns: make(map[net.Conn]struct{})}
	pool, err := ants.NewPool(maxConns, ants.WithNonblocking(true), ants.WithPanicHandler(func(v any) {
		s.log.Error("connection handler panic", "panic", v)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "novaquerywire: connection pool")
	}
	s.pool = pool
	return s, nil
}

// Serve accepts connections on ln until ctx is done, then closes every open
// session and waits for its handler.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer s.shutdown()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("accept", "err", err)
			continue
		}

		s.track(conn, true)
		s.wg.Add(1)
		if err := s.pool.Submit(func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}); err != nil {
			s.wg.Done()
			s.track(conn, false)
			_ = conn.Close()
			s.log.Warn("rejecting connection", "remote", conn.RemoteAddr().String(), "err", err)
		}
	}
}

func (s *Server) track(conn net.Conn, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) shutdown() {
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	_ = s.pool.ReleaseTimeout(3 * time.Second)
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	session := uuid.NewString()
	log := s.log.With("session", session, "remote", conn.RemoteAddr().String())
	metrics.Sessions.Inc()
	log.Info("session open")
	defer func() {
		_ = conn.Close()
		s.track(conn, false)
		metrics.Sessions.Dec()
		log.Info("session closed")
	}()

	for {
		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			// Client closed or bad frame.
			return
		}

		resp := ExecuteResponse{ID: req.ID, Session: session}
		res, err := s.db.Exec(ctx, req.SQL)
		if err != nil {
			resp.Error = err.Error()
			resp.Code = sqlerr.Code(err)
		} else {
			resp.Result = res
		}
		if err := WriteFrame(conn, resp); err != nil {
			log.Debug("write response", "err", err)
			return
		}
	}
}

// Run serves db over the wire protocol on sc.Addr and, when configured,
// the admin HTTP endpoints on sc.AdminAddr until ctx is canceled.
func Run(ctx context.Context, sc ServerConfig, db *novaquery.DB) error {
	log := sc.Logger
	if log == nil {
		log = slog.Default()
	}
	srv, err := NewServer(db, sc.MaxConns, log)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", sc.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	log.Info("novaquery tcp server listening", "addr", ln.Addr().String(), "max_conns", sc.MaxConns)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx, ln) })

	if sc.AdminAddr != "" {
		hs := &http.Server{
			Addr:              sc.AdminAddr,
			Handler:           admin.NewRouter(db, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("admin server listening", "addr", sc.AdminAddr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "admin server")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}
