// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Router maps (method, path) to handles using a trie of path segments.

// A segment starting with ':' is a parameter. Each node has any number of
// static children and at most one parameter child. Static children win over
// the parameter child, and a choice made at one depth is never undone: if a
// static child matches but a deeper segment fails, the parameter sibling is
// not tried.

package hemi

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Handle handles a request. It must respond to the request exactly once.
type Handle func(req *Request)

// Params holds path parameters captured during resolving, indexed by name without ':'.
type Params map[string]string

// routeNode is a node in Router's arena. Index 0 is the root.
type routeNode struct {
	name    string           // parameter name if this is a parameter node
	statics map[string]int32 // static children indexed by segment
	param   int32            // the parameter child. 0 if none
	handles map[Method]Handle
}

// Router is written during configuration and read-only after Freeze.
type Router struct {
	nodes  []routeNode
	frozen atomic.Bool
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	r := new(Router)
	r.nodes = make([]routeNode, 1, 16) // root
	return r
}

func (r *Router) newNode() int32 {
	r.nodes = append(r.nodes, routeNode{})
	return int32(len(r.nodes) - 1)
}

// Freeze stops further registrations. Resolving is safe for concurrent use after this.
func (r *Router) Freeze()        { r.frozen.Store(true) }
func (r *Router) IsFrozen() bool { return r.frozen.Load() }

// Register adds handle for (method, path). Registering the same pair again
// overrides the old handle. A parameter segment at a place where another
// parameter name was used renames that parameter for all routes under it.
func (r *Router) Register(method Method, path string, handle Handle) error {
	if r.frozen.Load() {
		return errors.New("router is frozen, routes can't be registered while serving")
	}
	if method.String() == "UNKNOWN" {
		return errors.Errorf("unsupported method %d", method)
	}
	if handle == nil {
		return errors.Errorf("nil handle for %s %s", method, path)
	}
	index := int32(0)
	for _, segment := range splitPath(path) {
		if segment[0] == ':' {
			name := segment[1:]
			if name == "" {
				return errors.Errorf("empty parameter name in %q", path)
			}
			if r.nodes[index].param == 0 {
				child := r.newNode()
				r.nodes[index].param = child
			}
			index = r.nodes[index].param
			r.nodes[index].name = name
		} else {
			child, ok := r.nodes[index].statics[segment]
			if !ok {
				child = r.newNode()
				if r.nodes[index].statics == nil {
					r.nodes[index].statics = make(map[string]int32)
				}
				r.nodes[index].statics[segment] = child
			}
			index = child
		}
	}
	node := &r.nodes[index]
	if node.handles == nil {
		node.handles = make(map[Method]Handle)
	}
	node.handles[method] = handle
	return nil
}

// Resolve finds the handle for (method, path). It fails with ErrNotFound if
// no registered path matches, or ErrMethodNotAllowed if the path matches but
// has no handle for method.
func (r *Router) Resolve(method Method, path string) (Handle, Params, error) {
	var params Params
	index := int32(0)
	for _, segment := range splitPath(path) {
		node := &r.nodes[index]
		if child, ok := node.statics[segment]; ok {
			index = child
			continue
		}
		if node.param == 0 {
			return nil, nil, errors.WithStack(ErrNotFound)
		}
		index = node.param
		if params == nil {
			params = make(Params)
		}
		params[r.nodes[index].name] = segment
	}
	node := &r.nodes[index]
	if len(node.handles) == 0 { // an inner node only
		return nil, nil, errors.WithStack(ErrNotFound)
	}
	handle, ok := node.handles[method]
	if !ok {
		return nil, nil, errors.WithStack(ErrMethodNotAllowed)
	}
	return handle, params, nil
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method Method
	Path   string
}

// Routes lists all registered routes ordered by path, then by method.
func (r *Router) Routes() []RouteInfo {
	var routes []RouteInfo
	var walk func(index int32, segments []string)
	walk = func(index int32, segments []string) {
		node := &r.nodes[index]
		path := "/" + strings.Join(segments, "/")
		for _, method := range Methods {
			if _, ok := node.handles[method]; ok {
				routes = append(routes, RouteInfo{Method: method, Path: path})
			}
		}
		for segment, child := range node.statics {
			walk(child, append(segments[:len(segments):len(segments)], segment))
		}
		if node.param != 0 {
			walk(node.param, append(segments[:len(segments):len(segments)], ":"+r.nodes[node.param].name))
		}
	}
	walk(0, nil)
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}
