// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Request is the only request of a connection, and its response.

package hemi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Request owns its connection until it's responded. Responding writes the
// whole response and closes the connection, so it happens exactly once.
type Request struct {
	// Assocs
	conn *serverConn
	// States (set by prepare)
	id      string            // unique id for logging and tracing
	method  Method            // GET, POST, ...
	target  string            // raw request target, path and query
	path    string            // normalized path, always starts with '/'
	query   Query             // decoded query
	headers map[string]string // indexed by lower-cased names
	body    any               // decoded json content, or nil
	content []byte            // raw content, or nil
	unread  bool              // may there be unread input?
	// States (set by router)
	params Params
	// States (set by respond)
	responded bool
	status    int // responded status
}

func newRequest(conn *serverConn) *Request {
	r := new(Request)
	r.conn = conn
	r.id = uuid.NewString()
	r.path = "/"
	return r
}

// prepare parses the request off the connection. It's called once, before dispatching.
func (r *Request) prepare(p *parser) error {
	line, err := p.parseStartLine()
	if err != nil {
		r.unread = true
		return err
	}
	r.target = line.target
	path, rawQuery, _ := strings.Cut(line.target, "?")
	r.path = NormalizePath(path)
	if r.query, err = ParseQuery(rawQuery); err != nil {
		r.unread = true
		return err
	}
	if r.headers, err = p.parseHeaders(); err != nil {
		r.unread = true
		return err
	}
	method, ok := ParseMethod(line.method)
	if !ok {
		r.unread = true
		return errors.Wrapf(ErrMethodNotAllowed, "unsupported method %q", line.method)
	}
	r.method = method
	if method.hasContent() {
		if r.body, r.content, err = p.parseContent(r.headers); err != nil {
			r.unread = true
			return err
		}
	}
	if r.content == nil {
		if size, err := strconv.ParseInt(r.headers["content-length"], 10, 64); err == nil && size > 0 {
			r.unread = true
		}
	}
	return nil
}

func (r *Request) ID() string         { return r.id }
func (r *Request) Method() Method     { return r.method }
func (r *Request) Target() string     { return r.target }
func (r *Request) Path() string       { return r.path }
func (r *Request) Query() Query       { return r.query }
func (r *Request) Params() Params     { return r.params }
func (r *Request) Body() any          { return r.body }
func (r *Request) Content() []byte    { return r.content }
func (r *Request) RemoteAddr() string { return r.conn.netConn.RemoteAddr().String() }

// QueryValue returns the first value of a query name.
func (r *Request) QueryValue(name string) (string, bool) { return r.query.Get(name) }

// Param returns the value of a path parameter.
func (r *Request) Param(name string) string { return r.params[name] }

// Header returns the value of a header. Name is case-insensitive.
func (r *Request) Header(name string) (string, bool) {
	value, ok := r.headers[strings.ToLower(name)]
	return value, ok
}
func (r *Request) Headers() map[string]string { return r.headers }

// Bind decodes the json content into v.
func (r *Request) Bind(v any) error {
	if r.content == nil {
		return internalError("No content")
	}
	if err := json.Unmarshal(r.content, v); err != nil {
		return errors.Wrap(&InternalError{Reason: "Invalid JSON data"}, err.Error())
	}
	return nil
}

// Responded reports whether a response has been sent.
func (r *Request) Responded() bool { return r.responded }

// Status returns the responded status, or 0 if not responded yet.
func (r *Request) Status() int { return r.status }

// Respond sends status and, if payload is not nil, payload as json. Then the
// connection is closed. A payload that encodes to json null is not sent.
func (r *Request) Respond(payload any, status int) error {
	if r.Responded() {
		return errors.WithStack(ErrAlreadyResponded)
	}
	if status < 100 || status > 999 {
		return errors.Errorf("invalid status %d", status)
	}
	if payload == nil {
		return r.send(status, "", nil)
	}
	content, err := json.Marshal(payload)
	if err != nil {
		r.send(StatusInternalServerError, "Content-Type: application/json\r\n", []byte(`{"error":"Invalid response payload"}`))
		return errors.Wrap(err, "marshal payload")
	}
	if bytes.Equal(content, jsonNull) {
		return r.send(status, "", nil)
	}
	return r.send(status, "Content-Type: application/json\r\n", content)
}

var jsonNull = []byte("null")

// JSON is the same as Respond.
func (r *Request) JSON(payload any, status int) error { return r.Respond(payload, status) }

// SendStatus sends a response with status line only.
func (r *Request) SendStatus(status int) error { return r.Respond(nil, status) }

// Redirect sends a 302 response pointing to location.
func (r *Request) Redirect(location string) error {
	if r.Responded() {
		return errors.WithStack(ErrAlreadyResponded)
	}
	if location == "" || strings.ContainsAny(location, "\r\n") {
		return errors.Errorf("invalid redirect location %q", location)
	}
	return r.send(StatusFound, "Location: "+location+"\r\n", nil)
}

// send writes the response and closes the connection. Write errors are returned but the request is responded anyway.
func (r *Request) send(status int, header string, content []byte) error {
	r.responded = true
	r.status = status

	var response bytes.Buffer
	response.WriteString("HTTP/1.1 ")
	response.WriteString(strconv.Itoa(status))
	response.WriteString("\r\n")
	response.WriteString(header)
	response.WriteString("\r\n")
	if content != nil {
		response.Write(content)
		response.WriteString("\r\n")
	}
	err := r.conn.write(response.Bytes())
	r.conn.onRespond(r)
	r.conn.close(r.unread)
	return err
}
