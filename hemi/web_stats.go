// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Server statistics.

package hemi

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Stats counts connections and responses. All methods are safe for concurrent use.
type Stats struct {
	accepted  *xsync.Counter
	rejected  *xsync.Counter
	responses *xsync.MapOf[int, *xsync.Counter] // indexed by status
}

func newStats() *Stats {
	s := new(Stats)
	s.accepted = xsync.NewCounter()
	s.rejected = xsync.NewCounter()
	s.responses = xsync.NewMapOf[int, *xsync.Counter]()
	return s
}

func (s *Stats) onAccept() { s.accepted.Inc() }
func (s *Stats) onReject() { s.rejected.Inc() }
func (s *Stats) onRespond(status int) {
	counter, _ := s.responses.LoadOrCompute(status, xsync.NewCounter)
	counter.Inc()
}

func (s *Stats) Accepted() int64 { return s.accepted.Value() }
func (s *Stats) Rejected() int64 { return s.rejected.Value() }

// Responses returns how many responses were sent with status.
func (s *Stats) Responses(status int) int64 {
	if counter, ok := s.responses.Load(status); ok {
		return counter.Value()
	}
	return 0
}

// Snapshot returns response counts indexed by status.
func (s *Stats) Snapshot() map[int]int64 {
	snapshot := make(map[int]int64)
	s.responses.Range(func(status int, counter *xsync.Counter) bool {
		snapshot[status] = counter.Value()
		return true
	})
	return snapshot
}
