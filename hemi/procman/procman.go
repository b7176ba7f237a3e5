// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Procman package implements the command line of a roxlet program.

package procman

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hexinfra/roxlet/hemi"
)

// Opts describes a program.
type Opts struct {
	ProgramName  string
	ProgramTitle string
	DebugLevel   int32
	Port         int
	MaxConns     int32
	Setup        func(server *hemi.Server) // registers routes and error handles
}

// flags are command line values that override the config file.
type flags struct {
	configFile string
	host       string
	port       int
	maxConns   int32
	debugLevel int32
	noColor    bool
}

func Main(opts *Opts) {
	if err := NewCommand(opts).Execute(); err != nil {
		crash(err.Error())
	}
}

// NewCommand builds the root command and its subcommands.
func NewCommand(opts *Opts) *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           opts.ProgramName + " [command] [flags]",
		Short:         opts.ProgramTitle + ": a minimal HTTP/1.1 server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := newServer(opts, &f, cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s listening on %s, maxConnections=%d\n",
				color.GreenString(opts.ProgramTitle), hemi.Version, server.Config().Address(), server.Config().MaxConnections)
			if err := server.Run(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\nStopping the server...")
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "", "yaml config file")
	pf.StringVar(&f.host, "host", "", "listening host")
	pf.IntVarP(&f.port, "port", "p", opts.Port, "listening port")
	pf.Int32VarP(&f.maxConns, "max-conns", "m", opts.MaxConns, "max concurrent in-flight requests")
	pf.Int32VarP(&f.debugLevel, "debug", "d", opts.DebugLevel, "debug level (0-3)")
	pf.BoolVar(&f.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Check the config and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := newServer(opts, &f, cmd); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "PASS")
				return nil
			},
		},
		&cobra.Command{
			Use:   "routes",
			Short: "Print registered routes and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				server, err := newServer(opts, &f, cmd)
				if err != nil {
					return err
				}
				printRoutes(cmd.OutOrStdout(), server.Routes())
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), hemi.Version)
			},
		},
	)
	return root
}

// newServer loads the config, applies flags over it, and sets the server up.
func newServer(opts *Opts, f *flags, cmd *cobra.Command) (*hemi.Server, error) {
	config := hemi.DefaultConfig()
	if f.configFile != "" {
		var err error
		if config, err = hemi.LoadConfig(f.configFile); err != nil {
			return nil, err
		}
	}
	changed := cmd.Flags().Changed
	if changed("host") {
		config.Host = f.host
	}
	if changed("port") || f.configFile == "" {
		config.Port = f.port
	}
	if changed("max-conns") || f.configFile == "" {
		config.MaxConnections = f.maxConns
	}
	if changed("debug") || f.configFile == "" {
		config.DebugLevel = f.debugLevel
	}
	if f.noColor {
		color.NoColor = true
		config.Log.Color = false
	}
	server, err := hemi.NewServerWithConfig(config)
	if err != nil {
		return nil, err
	}
	hemi.SetDebugLevel(config.DebugLevel)
	if opts.Setup != nil {
		opts.Setup(server)
	}
	return server, nil
}

func printRoutes(out io.Writer, routes []hemi.RouteInfo) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Method", "Path"})
	table.SetAutoWrapText(false)
	for _, route := range routes {
		table.Append([]string{route.Method.String(), route.Path})
	}
	table.Render()
}

func crash(s string) {
	fmt.Fprintln(os.Stderr, color.RedString("[ERROR]"), s)
	os.Exit(1)
}
