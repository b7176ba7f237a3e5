// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/1.1 one-shot clients.

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type benchOpts struct {
	concurrency int
	requests    int
	target      *url.URL
	method      string
	content     string
}

type benchResult struct {
	good   int // 2xx, 3xx, 4xx
	bad    int // 5xx
	broken int // connection or protocol errors
}

func bench(opts *benchOpts) *benchResult {
	request := buildRequest(opts)
	var (
		benchmark sync.WaitGroup
		mutex     sync.Mutex
		total     benchResult
	)
	for i := 0; i < opts.concurrency; i++ {
		benchmark.Add(1)
		client := newHTTP1Client(opts.target.Host, request, opts.requests)
		go func() {
			defer benchmark.Done()
			client.bench()
			mutex.Lock()
			total.good += client.result.good
			total.bad += client.result.bad
			total.broken += client.result.broken
			mutex.Unlock()
		}()
	}
	benchmark.Wait()
	return &total
}

func buildRequest(opts *benchOpts) []byte {
	path := opts.target.RequestURI()
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\nHost: %s\r\n", strings.ToUpper(opts.method), path, opts.target.Host)
	if opts.content != "" {
		fmt.Fprintf(&b, "Content-Type: application/json\r\nContent-Length: %d\r\n\r\n%s", len(opts.content), opts.content)
	} else {
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

type http1Client struct {
	serverAddr string
	request    []byte
	left       int
	result     benchResult
}

func newHTTP1Client(serverAddr string, request []byte, requests int) *http1Client {
	c := new(http1Client)
	c.serverAddr = serverAddr
	c.request = request
	c.left = requests
	return c
}

func (c *http1Client) bench() {
	for ; c.left > 0; c.left-- {
		status, err := c.fire()
		switch {
		case err != nil:
			c.result.broken++
		case status >= 500:
			c.result.bad++
		default:
			c.result.good++
		}
	}
}

// fire sends one request on a new connection and returns the response status.
func (c *http1Client) fire() (int, error) {
	serverConn, err := net.Dial("tcp", c.serverAddr)
	if err != nil {
		return 0, err
	}
	defer serverConn.Close()
	if _, err := serverConn.Write(c.request); err != nil {
		return 0, err
	}
	return recvResponse(serverConn)
}

// recvResponse reads a whole response until the server closes the connection.
func recvResponse(serverConn io.Reader) (int, error) {
	reader := bufio.NewReader(serverConn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return 0, errors.Wrap(err, "read status line")
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, errors.Errorf("bad status line %q", line)
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, errors.Wrapf(err, "bad status in %q", line)
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return status, errors.Wrap(err, "read response")
	}
	return status, nil
}
