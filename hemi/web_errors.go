// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Error taxonomy and default error handles.

package hemi

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	StatusOK                  = 200
	StatusFound               = 302
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusInternalServerError = 500
	StatusServiceUnavailable  = 503
)

var (
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrNotFound           = errors.New("not found")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyResponded   = errors.New("request already responded")
)

// InternalError reports a malformed request or any other failure that is
// not the client's choice of method or path. Reason is sent back as is.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string { return e.Reason }

func internalError(reason string) error {
	return errors.WithStack(&InternalError{Reason: reason})
}
func internalErrorf(f string, v ...any) error {
	return errors.WithStack(&InternalError{Reason: fmt.Sprintf(f, v...)})
}

// StatusOf maps an error of the taxonomy to its HTTP status. Unknown errors are 500.
func StatusOf(err error) int {
	switch errors.Cause(err) {
	case nil:
		return StatusOK
	case ErrMethodNotAllowed:
		return StatusMethodNotAllowed
	case ErrNotFound:
		return StatusNotFound
	case ErrServiceUnavailable:
		return StatusServiceUnavailable
	default:
		return StatusInternalServerError
	}
}

// ErrorHandle responds to a request that failed with err.
type ErrorHandle func(req *Request, err error)

func defaultServiceUnavailable(req *Request, err error) {
	req.JSON(errorPayload("Service unavailable"), StatusServiceUnavailable)
}
func defaultInternalError(req *Request, err error) {
	req.JSON(errorPayload(reasonOf(err)), StatusInternalServerError)
}
func defaultNotFound(req *Request, err error) {
	req.JSON(errorPayload("Not found"), StatusNotFound)
}
func defaultMethodNotAllowed(req *Request, err error) {
	req.JSON(errorPayload("Method not allowed"), StatusMethodNotAllowed)
}

func errorPayload(message string) map[string]string {
	return map[string]string{"error": message}
}

func reasonOf(err error) string {
	if e, ok := errors.Cause(err).(*InternalError); ok && e.Reason != "" {
		return e.Reason
	}
	return "Something went wrong"
}

// errorHandles holds the four overridable error handles.
type errorHandles struct {
	serviceUnavailable ErrorHandle
	internalError      ErrorHandle
	notFound           ErrorHandle
	methodNotAllowed   ErrorHandle
}

func (h *errorHandles) init() {
	h.serviceUnavailable = defaultServiceUnavailable
	h.internalError = defaultInternalError
	h.notFound = defaultNotFound
	h.methodNotAllowed = defaultMethodNotAllowed
}

func (h *errorHandles) handleOf(err error) ErrorHandle {
	switch StatusOf(err) {
	case StatusServiceUnavailable:
		return h.serviceUnavailable
	case StatusNotFound:
		return h.notFound
	case StatusMethodNotAllowed:
		return h.methodNotAllowed
	default:
		return h.internalError
	}
}
