// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Gate bounds the number of concurrently handled connections.

package hemi

import (
	"go.uber.org/atomic"
)

// Gate admits connections up to maxConns. 0 <= actives <= maxConns always holds.
type Gate struct {
	// States
	maxConns int32        // max concurrent conns allowed
	numConns atomic.Int32 // currently admitted conns
}

func (g *Gate) Init(maxConns int32) {
	g.maxConns = maxConns
	g.numConns.Store(0)
}

func (g *Gate) MaxConns() int32 { return g.maxConns }
func (g *Gate) Actives() int32  { return g.numConns.Load() }

// Admit takes a slot if one is free. It never blocks.
func (g *Gate) Admit() bool {
	for {
		numConns := g.numConns.Load()
		if numConns >= g.maxConns {
			return false
		}
		if g.numConns.CompareAndSwap(numConns, numConns+1) {
			return true
		}
	}
}

// Release gives back a slot taken by Admit.
func (g *Gate) Release() {
	if g.numConns.Dec() < 0 {
		BugExitln("gate released more than admitted")
	}
}
