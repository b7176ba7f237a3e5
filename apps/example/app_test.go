// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package example

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/hexinfra/roxlet/hemi"
)

func startApp(t *testing.T) string {
	t.Helper()
	config := DefaultConfig()
	config.Host = "127.0.0.1"
	config.Port = 0
	config.LingerTimeout = 50 * time.Millisecond
	config.Log.Target = "noop"
	server, err := NewServerWithConfig(config)
	require.NoError(t, err)
	Setup(server)
	require.NoError(t, server.Open())
	done := make(chan error, 1)
	go func() { done <- server.Serve() }()
	t.Cleanup(func() {
		server.Shut()
		<-done
	})
	return server.Address()
}

// call sends one request and returns the status and the body of the response.
func call(t *testing.T, address string, method string, target string, content string) (int, string) {
	t.Helper()
	conn, err := net.Dial("tcp", address)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	request := fmt.Sprintf("%s %s HTTP/1.1\r\nHost: localhost\r\n", method, target)
	if content != "" {
		request += fmt.Sprintf("Content-Type: application/json\r\nContent-Length: %d\r\n\r\n%s", len(content), content)
	} else {
		request += "\r\n"
	}
	_, err = io.WriteString(conn, request)
	require.NoError(t, err)

	raw, err := io.ReadAll(conn)
	require.NoError(t, err)
	head, body, found := strings.Cut(string(raw), "\r\n\r\n")
	require.True(t, found, "%q", raw)
	status, err := strconv.Atoi(strings.Fields(head)[1])
	require.NoError(t, err)
	return status, strings.TrimSuffix(body, "\r\n")
}

func TestHome(t *testing.T) {
	address := startApp(t)

	status, body := call(t, address, "GET", "/", "")
	assert.Equal(t, StatusOK, status)
	assert.JSONEq(t, `{"data":"Welcome!"}`, body)

	_, body = call(t, address, "GET", "/home", "")
	assert.JSONEq(t, `{"data":"You are home!"}`, body)
	_, body = call(t, address, "GET", "/home?week=3", "")
	assert.JSONEq(t, `{"data":"3"}`, body)
	_, body = call(t, address, "GET", "/home?week=1,2", "")
	assert.JSONEq(t, `{"data":["1","2"]}`, body)

	status, body = call(t, address, "GET", "/old-home", "")
	assert.Equal(t, StatusFound, status)
	assert.Equal(t, "", body)

	status, body = call(t, address, "GET", "/no/such/page", "")
	assert.Equal(t, StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not found","path":"/no/such/page"}`, body)
}

func TestUsers(t *testing.T) {
	address := startApp(t)

	status, body := call(t, address, "POST", "/users", `{"name":"alice","active":true}`)
	assert.Equal(t, 201, status)
	assert.JSONEq(t, `{"data":{"id":1,"name":"alice","active":true}}`, body)
	status, _ = call(t, address, "POST", "/users", `{"name":"bob"}`)
	assert.Equal(t, 201, status)
	status, _ = call(t, address, "POST", "/users", `{"active":true}`)
	assert.Equal(t, 400, status)

	_, body = call(t, address, "GET", "/users", "")
	assert.JSONEq(t, `{"data":[{"id":1,"name":"alice","active":true},{"id":2,"name":"bob","active":false}]}`, body)
	_, body = call(t, address, "GET", "/users/active", "")
	assert.JSONEq(t, `{"data":[{"id":1,"name":"alice","active":true}]}`, body)

	status, body = call(t, address, "PATCH", "/users/2", `{"active":true}`)
	assert.Equal(t, StatusOK, status)
	assert.JSONEq(t, `{"data":{"id":2,"name":"bob","active":true}}`, body)
	status, body = call(t, address, "PUT", "/users/2/", `{"name":"bobby"}`)
	assert.Equal(t, StatusOK, status)
	assert.JSONEq(t, `{"data":{"id":2,"name":"bobby","active":true}}`, body)

	_, body = call(t, address, "GET", "/users/2/posts/7", "")
	assert.JSONEq(t, `{"data":{"user":"2","post":"7"}}`, body)

	status, _ = call(t, address, "DELETE", "/users/1", "")
	assert.Equal(t, 204, status)
	status, _ = call(t, address, "DELETE", "/users/1", "")
	assert.Equal(t, StatusNotFound, status)
	status, body = call(t, address, "GET", "/users/1", "")
	assert.Equal(t, StatusNotFound, status)
	assert.JSONEq(t, `{"error":"user not found"}`, body)

	status, body = call(t, address, "POST", "/users/1", `{}`)
	assert.Equal(t, StatusMethodNotAllowed, status)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, body)
}
