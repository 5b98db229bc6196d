// The accept loop: wraps each accepted connection in a transport.Socket
// (plain or TLS, depending on configuration) and hands it to the
// router. Grounded on the teacher's httpserver/server.go accept-loop
// idiom (listen, then one goroutine per accepted connection, shut down
// by closing the listener) adapted from HTTP's request/response model
// to guacd's long-lived bidirectional splice.
package main

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/logging"
	"github.com/sabouaram/guacd/internal/router"
	"github.com/sabouaram/guacd/internal/tlsconfig"
	"github.com/sabouaram/guacd/internal/transport"
)

// server owns the listener and the router every accepted connection is
// routed through.
type server struct {
	ln  net.Listener
	rtr *router.Router
	log logging.Logger
	tls *tlsconfig.Source
}

func newServer(addr string, maxWorkers int, spawn router.SpawnFunc, log logging.Logger, tlsSrc *tlsconfig.Source) (*server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &server{
		ln:  ln,
		rtr: router.New(maxWorkers, spawn, log),
		log: log,
		tls: tlsSrc,
	}, nil
}

// serve runs the accept loop until the listener is closed (by Shutdown
// or a fatal Accept error), routing each connection on its own
// goroutine so one slow/misbehaving client never blocks another's
// handshake.
func (s *server) serve(ctx context.Context) error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		go s.handle(ctx, conn)
	}
}

func (s *server) handle(ctx context.Context, conn net.Conn) {
	var sock transport.Socket

	if s.tls != nil {
		tlsConn := tls.Server(conn, s.tls.Config())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			s.log.WithField("remote", conn.RemoteAddr()).Warning("TLS handshake failed: ", err)
			_ = conn.Close()
			return
		}
		sock = transport.NewTLS(tlsConn)
	} else {
		sock = transport.NewFD(conn)
	}

	if err := s.rtr.Route(ctx, sock); err != nil {
		logRouteError(s.log, conn, err)
	}
}

func logRouteError(log logging.Logger, conn net.Conn, err guacerr.Error) {
	log.WithFields(map[string]interface{}{
		"remote": conn.RemoteAddr(),
		"code":   err.Code(),
	}).Info("connection routing ended: ", err)
}

// Shutdown stops accepting new connections. In-flight routed
// connections are left to finish on their own (the original guacd's
// SIGTERM handler behaves the same way: it stops the accept loop but
// does not forcibly sever existing sessions).
func (s *server) Shutdown() error {
	return s.ln.Close()
}
