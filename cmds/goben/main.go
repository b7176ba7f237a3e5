// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Goben is a simple benchmarking tool for roxlet servers. As roxlet closes
// every connection after one response, each request uses a new connection.

package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// goben -c 20 -r 1000 -u http1://localhost:4000/home
// goben -c 20 -r 100 -m POST -b '{"name":"bob"}' -u http1://localhost:4000/users

func main() {
	var (
		opts   benchOpts
		target string
	)
	cmd := &cobra.Command{
		Use:          "goben",
		Short:        "Goben benchmarks a roxlet server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(target)
			if err != nil {
				return err
			}
			if u.Scheme != "http1" {
				return fmt.Errorf("unknown url scheme %q", u.Scheme)
			}
			opts.target = u
			begin := time.Now()
			report(bench(&opts), time.Since(begin))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&opts.concurrency, "concurrency", "c", 20, "concurrent clients")
	flags.IntVarP(&opts.requests, "requests", "r", 1000, "requests per client")
	flags.StringVarP(&target, "url", "u", "http1://localhost:4000/", "target url")
	flags.StringVarP(&opts.method, "method", "m", "GET", "http method")
	flags.StringVarP(&opts.content, "body", "b", "", "json content")
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("[ERROR]"), err)
		os.Exit(1)
	}
}

func report(r *benchResult, elapsed time.Duration) {
	total := r.good + r.bad + r.broken
	fmt.Printf("requests: %d in %s (%.0f req/s)\n", total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	fmt.Printf("  %s %d\n", color.GreenString("2xx-4xx:"), r.good)
	fmt.Printf("  %s %d\n", color.YellowString("5xx:    "), r.bad)
	fmt.Printf("  %s %d\n", color.RedString("broken: "), r.broken)
}
