// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/1.1 request parser. Only one request per connection is parsed.

// request     = start-line *( header-line ) empty-line [ content ]
// start-line  = method SP request-target [ SP HTTP-version ] EOL
// header-line = name ":" value EOL
// EOL         = CRLF / LF

package hemi

import (
	"bufio"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Method is an HTTP method supported by the engine.
type Method uint8

const ( // supported methods
	MethodGET Method = iota + 1
	MethodPOST
	MethodPUT
	MethodPATCH
	MethodDELETE
)

var methodNames = [...]string{
	MethodGET:    "GET",
	MethodPOST:   "POST",
	MethodPUT:    "PUT",
	MethodPATCH:  "PATCH",
	MethodDELETE: "DELETE",
}

// Methods lists all supported methods in a fixed order.
var Methods = []Method{MethodGET, MethodPOST, MethodPUT, MethodPATCH, MethodDELETE}

func (m Method) String() string {
	if m == 0 || int(m) >= len(methodNames) {
		return "UNKNOWN"
	}
	return methodNames[m]
}

// ParseMethod recognizes a method token. Tokens are case-insensitive.
func ParseMethod(token string) (Method, bool) {
	token = strings.ToUpper(token)
	for _, method := range Methods {
		if methodNames[method] == token {
			return method, true
		}
	}
	return 0, false
}

// hasContent reports whether requests of this method may carry content.
func (m Method) hasContent() bool {
	return m == MethodPOST || m == MethodPUT || m == MethodPATCH
}

// NormalizePath strips leading, trailing, and repeated slashes. The root is "/".
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// splitPath returns the non-empty segments of path.
func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// Query holds decoded query values. A name with no "=" has no values, a
// plain value is stored as one element, and a comma-separated value is
// stored as its elements.
type Query map[string][]string

// Get returns the first value of name.
func (q Query) Get(name string) (value string, ok bool) {
	values, ok := q[name]
	if !ok || len(values) == 0 {
		return "", ok
	}
	return values[0], true
}

// List returns all values of name.
func (q Query) List(name string) []string { return q[name] }

// Has reports whether name appeared in the query, with or without a value.
func (q Query) Has(name string) bool {
	_, ok := q[name]
	return ok
}

// IsMulti reports whether the value of name was comma-separated.
func (q Query) IsMulti(name string) bool { return len(q[name]) > 1 }

// MarshalJSON encodes a single value as a string, a comma-separated value as
// an array, and a name without value as null.
func (q Query) MarshalJSON() ([]byte, error) {
	if q == nil {
		return []byte("null"), nil
	}
	values := make(map[string]any, len(q))
	for name, list := range q {
		switch len(list) {
		case 0:
			values[name] = nil
		case 1:
			values[name] = list[0]
		default:
			values[name] = list
		}
	}
	return json.Marshal(values)
}

// ParseQuery percent-decodes raw and splits it into pairs on '&' or ';'.
// A later pair overrides an earlier one with the same name. A value ends at
// its next '=', so "a=1=2" gives "1".
func ParseQuery(raw string) (Query, error) {
	query := make(Query)
	if raw == "" {
		return query, nil
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return nil, errors.Wrap(&InternalError{Reason: "Invalid query string"}, err.Error())
	}
	pairs := strings.FieldsFunc(decoded, func(r rune) bool { return r == '&' || r == ';' })
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if name == "" {
			continue
		}
		if !found {
			query[name] = nil
			continue
		}
		value, _, _ = strings.Cut(value, "=")
		query[name] = strings.Split(value, ",")
	}
	return query, nil
}

// parser reads one request off a buffered stream.
type parser struct {
	reader         *bufio.Reader
	maxLineSize    int
	maxHeadSize    int // start line and header lines, EOLs included
	maxContentSize int64
	headSize       int // bytes of head read so far
}

// readLine reads one head line and strips its EOL. A final line without EOL is accepted.
func (p *parser) readLine() (string, error) {
	var line []byte
	for {
		chunk, err := p.reader.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > p.maxLineSize {
			return "", internalError("Line too long")
		}
		if p.headSize+len(line) > p.maxHeadSize {
			return "", internalError("Head too large")
		}
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(line) > 0 {
			break
		}
		return "", errors.Wrap(&InternalError{Reason: "Incomplete request"}, err.Error())
	}
	p.headSize += len(line)
	return strings.TrimRight(string(line), "\r\n"), nil
}

// startLine is the result of parsing a start line.
type startLine struct {
	method string // as is on the wire
	target string // path and query
}

func (p *parser) parseStartLine() (startLine, error) {
	line, err := p.readLine()
	if err != nil {
		return startLine{}, err
	}
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return startLine{}, errors.Wrap(ErrMethodNotAllowed, "empty start line")
	case 1:
		return startLine{}, internalError("Malformed start line")
	}
	return startLine{method: fields[0], target: fields[1]}, nil
}

// parseHeaders reads header lines until an empty line. Names are lower-cased.
func (p *parser) parseHeaders() (map[string]string, error) {
	headers := make(map[string]string)
	for {
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			return headers, nil
		}
		name, value, _ := strings.Cut(line, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		headers[name] = strings.TrimSpace(value)
	}
}

// parseContent reads the content if content-type says it's json. Any other content type fails.
func (p *parser) parseContent(headers map[string]string) (body any, content []byte, err error) {
	contentType, ok := headers["content-type"]
	if !ok {
		return nil, nil, nil
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	if !strings.EqualFold(strings.TrimSpace(mediaType), "application/json") {
		return nil, nil, internalError("Content type not supported")
	}
	sizeText, ok := headers["content-length"]
	if !ok {
		return nil, nil, internalError("Unspecified Content-Length header for application/json")
	}
	size, err := strconv.ParseInt(sizeText, 10, 64)
	if err != nil || size < 0 {
		return nil, nil, internalError("Invalid Content-Length header")
	}
	if size > p.maxContentSize {
		return nil, nil, internalError("Content too large")
	}
	content = make([]byte, size)
	if _, err := io.ReadFull(p.reader, content); err != nil {
		return nil, nil, errors.Wrap(&InternalError{Reason: "Incomplete content"}, err.Error())
	}
	if err := json.Unmarshal(content, &body); err != nil {
		return nil, nil, errors.Wrap(&InternalError{Reason: "Invalid JSON data"}, err.Error())
	}
	return body, content, nil
}
