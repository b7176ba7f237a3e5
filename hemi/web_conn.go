// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Server-side connections. Each connection carries exactly one request.

package hemi

import (
	"bufio"
	"context"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/looplab/fsm"
)

const ( // conn states
	connAccepted    = "accepted"
	connAdmitted    = "admitted"
	connRejected    = "rejected"
	connParsing     = "parsing"
	connDispatching = "dispatching"
	connResponded   = "responded"
	connClosed      = "closed"
)

const ( // conn events
	eventAdmit    = "admit"
	eventReject   = "reject"
	eventParse    = "parse"
	eventDispatch = "dispatch"
	eventRespond  = "respond"
	eventClose    = "close"
)

var connEvents = fsm.Events{
	{Name: eventAdmit, Src: []string{connAccepted}, Dst: connAdmitted},
	{Name: eventReject, Src: []string{connAccepted}, Dst: connRejected},
	{Name: eventParse, Src: []string{connAdmitted}, Dst: connParsing},
	{Name: eventDispatch, Src: []string{connParsing}, Dst: connDispatching},
	{Name: eventRespond, Src: []string{connRejected, connParsing, connDispatching}, Dst: connResponded},
	{Name: eventClose, Src: []string{connResponded}, Dst: connClosed},
}

const maxLingerBytes = 1 << 20 // stop draining after this

// serverConn is a server-side connection.
type serverConn struct {
	// Assocs
	server *Server
	// Conn states (non-zeros)
	id      int64
	netConn net.Conn
	reader  *bufio.Reader
	state   *fsm.FSM
	// Conn states (zeros)
	closed bool
}

func newServerConn(id int64, server *Server, netConn net.Conn) *serverConn {
	c := new(serverConn)
	c.server = server
	c.id = id
	c.netConn = netConn
	c.reader = bufio.NewReaderSize(netConn, 4096)
	c.state = fsm.NewFSM(connAccepted, connEvents, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			if DebugLevel() >= 3 {
				Printf("conn=%d %s -> %s\n", c.id, e.Src, e.Dst)
			}
		},
	})
	return c
}

func (c *serverConn) State() string { return c.state.Current() }

func (c *serverConn) transit(event string) {
	if err := c.state.Event(context.Background(), event); err != nil {
		c.server.logf("[ERR] conn=%d event=%s state=%s: %v", c.id, event, c.state.Current(), err)
	}
}

// manage runs the whole life of an admitted connection: parse, route, dispatch, respond, close.
func (c *serverConn) manage() { // runner
	server := c.server
	req := newRequest(c)
	defer func() {
		if x := recover(); x != nil {
			server.logf("[ERR] conn=%d req=%s panic: %v\n%s", c.id, req.id, x, debug.Stack())
			if !req.Responded() {
				server.fail(req, internalError("Something went wrong"))
			}
		}
		if !req.Responded() {
			server.logf("[ERR] conn=%d req=%s %s %s: handle didn't respond", c.id, req.id, req.method, req.path)
			server.fail(req, internalError("No response"))
		}
		c.close(true)
	}()

	if timeout := server.config.ReadTimeout; timeout > 0 {
		c.netConn.SetReadDeadline(time.Now().Add(timeout))
	}
	c.transit(eventParse)
	p := parser{
		reader:         c.reader,
		maxLineSize:    server.config.MaxLineSize,
		maxHeadSize:    server.config.MaxHeadSize,
		maxContentSize: server.config.MaxContentSize,
	}
	if err := req.prepare(&p); err != nil {
		if DebugLevel() >= 1 {
			server.logf("conn=%d req=%s bad request: %v", c.id, req.id, err)
		}
		server.fail(req, err)
		return
	}
	if DebugLevel() >= 3 {
		Printf("conn=%d request: %s", c.id, spew.Sdump(req.method, req.path, req.query, req.headers, req.body))
	}
	handle, params, err := server.router.Resolve(req.method, req.path)
	if err != nil {
		server.fail(req, err)
		return
	}
	req.params = params
	c.transit(eventDispatch)
	handle(req)
}

// reject answers a connection that was not admitted.
func (c *serverConn) reject() { // runner
	c.transit(eventReject)
	req := newRequest(c)
	req.unread = true // we never read anything
	c.server.fail(req, ErrServiceUnavailable)
}

func (c *serverConn) write(p []byte) error {
	if timeout := c.server.config.WriteTimeout; timeout > 0 {
		c.netConn.SetWriteDeadline(time.Now().Add(timeout))
	}
	_, err := c.netConn.Write(p)
	return err
}

func (c *serverConn) onRespond(req *Request) {
	c.transit(eventRespond)
	c.server.stats.onRespond(req.status)
	if DebugLevel() >= 1 {
		c.server.logf("conn=%d req=%s %s %s %d", c.id, req.id, req.method, req.path, req.status)
	}
}

// close closes the connection once. If there may be unread input, the write
// side is shut first and the input is drained for a while, so the client
// gets our response instead of a TCP reset.
func (c *serverConn) close(unread bool) {
	if c.closed {
		return
	}
	c.closed = true
	if unread || c.reader.Buffered() > 0 {
		c.linger()
	}
	c.netConn.Close()
	c.transit(eventClose)
}

func (c *serverConn) linger() {
	timeout := c.server.config.LingerTimeout
	if timeout == 0 {
		return
	}
	if writeCloser, ok := c.netConn.(interface{ CloseWrite() error }); ok {
		if writeCloser.CloseWrite() != nil {
			return
		}
	}
	if c.netConn.SetReadDeadline(time.Now().Add(timeout)) != nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(c.netConn, maxLingerBytes))
}
