// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package hemi

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeRequest returns a dispatching request over a pipe, and a channel that gets everything the client receives.
func pipeRequest(t *testing.T, s *Server) (*Request, <-chan string) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { clientSide.Close() })
	conn := newServerConn(1, s, serverSide)
	conn.transit(eventAdmit)
	conn.transit(eventParse)
	conn.transit(eventDispatch)
	received := make(chan string, 1)
	go func() {
		raw, _ := io.ReadAll(clientSide)
		received <- string(raw)
	}()
	return newRequest(conn), received
}

func waitReceived(t *testing.T, received <-chan string) string {
	t.Helper()
	select {
	case raw := <-received:
		return raw
	case <-time.After(5 * time.Second):
		t.Fatal("nothing received")
		return ""
	}
}

func TestRespondJSON(t *testing.T) {
	s := newQuietServer(t, 1)
	req, received := pipeRequest(t, s)

	require.NoError(t, req.Respond(map[string]int{"x": 1}, 201))
	assert.Equal(t, "HTTP/1.1 201\r\nContent-Type: application/json\r\n\r\n{\"x\":1}\r\n", waitReceived(t, received))
	assert.True(t, req.Responded())
	assert.Equal(t, 201, req.Status())
	assert.Equal(t, connClosed, req.conn.State())
	assert.Equal(t, int64(1), s.Stats().Responses(201))

	err := req.Respond(map[string]int{"x": 2}, StatusOK)
	assert.Equal(t, ErrAlreadyResponded, errors.Cause(err))
	assert.Equal(t, 201, req.Status())
	assert.Equal(t, int64(0), s.Stats().Responses(StatusOK))
}

func TestRespondWithoutPayload(t *testing.T) {
	s := newQuietServer(t, 1)
	req, received := pipeRequest(t, s)

	require.NoError(t, req.SendStatus(204))
	assert.Equal(t, "HTTP/1.1 204\r\n\r\n", waitReceived(t, received))
	assert.Equal(t, ErrAlreadyResponded, errors.Cause(req.SendStatus(204)))
}

func TestRespondInvalidStatus(t *testing.T) {
	s := newQuietServer(t, 1)
	req, received := pipeRequest(t, s)

	assert.Error(t, req.SendStatus(0))
	assert.Error(t, req.SendStatus(0))
	assert.Error(t, req.Respond(map[string]int{"x": 1}, 1000))
	assert.False(t, req.Responded())
	assert.Equal(t, 0, req.Status())
	assert.Equal(t, connDispatching, req.conn.State())

	require.NoError(t, req.SendStatus(204))
	assert.Equal(t, "HTTP/1.1 204\r\n\r\n", waitReceived(t, received))
	assert.True(t, req.Responded())
	assert.Equal(t, ErrAlreadyResponded, errors.Cause(req.SendStatus(0)))
	assert.Equal(t, map[int]int64{204: 1}, s.Stats().Snapshot())
}

func TestRespondNullPayload(t *testing.T) {
	s := newQuietServer(t, 1)
	req, received := pipeRequest(t, s)

	var users []string
	require.NoError(t, req.Respond(users, StatusOK))
	assert.Equal(t, "HTTP/1.1 200\r\n\r\n", waitReceived(t, received))
}

func TestRedirect(t *testing.T) {
	s := newQuietServer(t, 1)
	req, received := pipeRequest(t, s)

	assert.Error(t, req.Redirect("/a\r\nX-Evil: 1"))
	assert.False(t, req.Responded())

	require.NoError(t, req.Redirect("/home"))
	assert.Equal(t, "HTTP/1.1 302\r\nLocation: /home\r\n\r\n", waitReceived(t, received))
	assert.Equal(t, ErrAlreadyResponded, errors.Cause(req.Redirect("/again")))
}

func TestRespondBadPayload(t *testing.T) {
	s := newQuietServer(t, 1)
	req, received := pipeRequest(t, s)

	assert.Error(t, req.Respond(make(chan int), StatusOK))
	assert.Equal(t, "HTTP/1.1 500\r\nContent-Type: application/json\r\n\r\n{\"error\":\"Invalid response payload\"}\r\n", waitReceived(t, received))
	assert.Equal(t, StatusInternalServerError, req.Status())
}

func TestRejectConn(t *testing.T) {
	s := newQuietServer(t, 1)
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	received := make(chan string, 1)
	go func() {
		raw, _ := io.ReadAll(clientSide)
		received <- string(raw)
	}()

	conn := newServerConn(1, s, serverSide)
	conn.reject()
	assert.Equal(t, "HTTP/1.1 503\r\nContent-Type: application/json\r\n\r\n{\"error\":\"Service unavailable\"}\r\n", waitReceived(t, received))
	assert.Equal(t, connClosed, conn.State())
}

func TestRequestBind(t *testing.T) {
	req, err := prepareRaw("POST /users HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: 14\r\n\r\n{\"name\":\"bob\"}")
	require.NoError(t, err)
	var input struct {
		Name string `json:"name"`
	}
	require.NoError(t, req.Bind(&input))
	assert.Equal(t, "bob", input.Name)

	req, err = prepareRaw("GET /users HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	assert.Error(t, req.Bind(&input))
}
