// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Roxlet server hosting the example app.

package main

import (
	"github.com/hexinfra/roxlet/apps/example"
	"github.com/hexinfra/roxlet/hemi/procman"
)

func main() {
	procman.Main(&procman.Opts{
		ProgramName:  "roxlet",
		ProgramTitle: "Roxlet",
		DebugLevel:   0,
		Port:         4000,
		MaxConns:     10,
		Setup:        example.Setup,
	})
}
