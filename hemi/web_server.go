// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/1.1 server. One request per connection, no keep-alive, no pipelining.

package hemi

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Server accepts connections, admits them through its gate, and dispatches
// their requests through its router. Routes and error handles must be set
// before Open.
type Server struct {
	// Assocs
	router *Router
	logger Logger
	stats  *Stats
	// States
	config       *Config
	gate         Gate
	errorHandles errorHandles
	listener     net.Listener // set after open
	shut         atomic.Bool
	connID       atomic.Int64
	conns        sync.WaitGroup // admitted and rejected conns to wait for
}

// NewServer creates a server listening on port with at most maxConns in-flight requests.
func NewServer(port int, maxConns int32) *Server {
	config := DefaultConfig()
	config.Port = port
	config.MaxConnections = maxConns
	s, err := NewServerWithConfig(config)
	if err != nil {
		UseExitln(err.Error())
	}
	return s
}

// NewServerWithConfig creates a server from a validated config.
func NewServerWithConfig(config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := new(Server)
	s.router = NewRouter()
	s.logger = createLogger(config.Log.Target, &config.Log)
	s.stats = newStats()
	s.config = config
	s.gate.Init(config.MaxConnections)
	s.errorHandles.init()
	return s, nil
}

func (s *Server) Config() *Config     { return s.config }
func (s *Server) Router() *Router     { return s.router }
func (s *Server) Stats() *Stats       { return s.stats }
func (s *Server) ActiveConns() int32  { return s.gate.Actives() }
func (s *Server) Routes() []RouteInfo { return s.router.Routes() }

// Address returns the actual listening address after Open, or the configured one before.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address()
}

func (s *Server) logf(f string, v ...any) { s.logger.Logf(f, v...) }

// Route registers handle for (method, path).
func (s *Server) Route(method Method, path string, handle Handle) error {
	return s.router.Register(method, path, handle)
}

func (s *Server) GET(path string, handle Handle)    { s.mustRoute(MethodGET, path, handle) }
func (s *Server) POST(path string, handle Handle)   { s.mustRoute(MethodPOST, path, handle) }
func (s *Server) PUT(path string, handle Handle)    { s.mustRoute(MethodPUT, path, handle) }
func (s *Server) PATCH(path string, handle Handle)  { s.mustRoute(MethodPATCH, path, handle) }
func (s *Server) DELETE(path string, handle Handle) { s.mustRoute(MethodDELETE, path, handle) }

func (s *Server) mustRoute(method Method, path string, handle Handle) {
	if err := s.Route(method, path, handle); err != nil {
		UseExitln(err.Error())
	}
}

func (s *Server) OnServiceUnavailable(handle ErrorHandle) {
	s.setErrorHandle(&s.errorHandles.serviceUnavailable, handle)
}
func (s *Server) OnInternalError(handle ErrorHandle) {
	s.setErrorHandle(&s.errorHandles.internalError, handle)
}
func (s *Server) OnNotFound(handle ErrorHandle) {
	s.setErrorHandle(&s.errorHandles.notFound, handle)
}
func (s *Server) OnMethodNotAllowed(handle ErrorHandle) {
	s.setErrorHandle(&s.errorHandles.methodNotAllowed, handle)
}

func (s *Server) setErrorHandle(slot *ErrorHandle, handle ErrorHandle) {
	if s.router.IsFrozen() {
		UseExitln("error handles can't be changed while serving")
	}
	if handle == nil {
		UseExitln("nil error handle")
	}
	*slot = handle
}

// Open listens on the configured address and freezes the routes.
func (s *Server) Open() error {
	if s.listener != nil {
		return errors.New("server is already open")
	}
	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.config.Address())
	}
	s.listener = listener
	s.router.Freeze()
	if DebugLevel() >= 1 {
		s.logf("server address=%s maxConnections=%d opened!", s.Address(), s.gate.MaxConns())
	}
	return nil
}

// Serve runs the accept loop until Shut is called, then waits for all connections to finish.
func (s *Server) Serve() error { // runner
	if s.listener == nil {
		return errors.New("server is not open")
	}
	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			if s.shut.Load() {
				break
			}
			s.logf("[ERR] accept: %v", err)
			time.Sleep(10 * time.Millisecond) // don't spin on persistent errors
			continue
		}
		id := s.connID.Inc()
		s.stats.onAccept()
		s.conns.Add(1)
		if s.gate.Admit() {
			go s.serveConn(id, netConn)
		} else {
			s.stats.onReject()
			go s.rejectConn(id, netConn)
		}
	}
	s.conns.Wait()
	if DebugLevel() >= 1 {
		s.logf("server address=%s done", s.Address())
	}
	return nil
}

func (s *Server) serveConn(id int64, netConn net.Conn) { // runner
	defer func() {
		s.gate.Release()
		s.conns.Done()
	}()
	conn := newServerConn(id, s, netConn)
	conn.transit(eventAdmit)
	conn.manage()
}
func (s *Server) rejectConn(id int64, netConn net.Conn) { // runner
	defer s.conns.Done()
	conn := newServerConn(id, s, netConn)
	conn.reject()
}

// Shut stops accepting new connections. It's safe to call more than once.
func (s *Server) Shut() error {
	if !s.shut.CompareAndSwap(false, true) || s.listener == nil {
		return nil
	}
	return s.listener.Close() // breaks Serve()
}

// Run opens the server and serves until the process is interrupted.
func (s *Server) Run() error {
	if err := s.Open(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		s.Shut()
	}()
	return s.Serve()
}

// fail responds to req with the error handle of err. If the handle panics or
// doesn't respond, the default handle responds instead.
func (s *Server) fail(req *Request, err error) {
	handle := s.errorHandles.handleOf(err)
	func() {
		defer func() {
			if x := recover(); x != nil {
				s.logf("[ERR] conn=%d req=%s error handle panic: %v", req.conn.id, req.id, x)
			}
		}()
		handle(req, err)
	}()
	if !req.Responded() {
		var defaults errorHandles
		defaults.init()
		defaults.handleOf(err)(req, err)
	}
}
