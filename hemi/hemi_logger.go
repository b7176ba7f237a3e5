// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Loggers log events.

package hemi

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger
type Logger interface {
	Logf(f string, v ...any)
	Close()
}

// LogConfig
type LogConfig struct {
	Target string `yaml:"target"` // "console", "noop", ...
	Color  bool   `yaml:"color"`  // colorize console output?
}

var (
	loggersLock    sync.RWMutex
	loggerCreators = make(map[string]func(config *LogConfig) Logger) // indexed by loggerSign
)

func RegisterLogger(loggerSign string, create func(config *LogConfig) Logger) {
	loggersLock.Lock()
	defer loggersLock.Unlock()

	if _, ok := loggerCreators[loggerSign]; ok {
		BugExitln("logger conflicts")
	}
	loggerCreators[loggerSign] = create
}
func loggerRegistered(loggerSign string) bool {
	loggersLock.RLock()
	_, ok := loggerCreators[loggerSign]
	loggersLock.RUnlock()
	return ok
}
func createLogger(loggerSign string, config *LogConfig) Logger {
	loggersLock.RLock()
	defer loggersLock.RUnlock()

	if create := loggerCreators[loggerSign]; create != nil {
		return create(config)
	}
	return nil
}

func init() {
	RegisterLogger("noop", func(config *LogConfig) Logger {
		return noopLogger{}
	})
	RegisterLogger("console", func(config *LogConfig) Logger {
		return newConsoleLogger(os.Stderr, config.Color)
	})
}

// noopLogger
type noopLogger struct{}

func (noopLogger) Logf(f string, v ...any) {}
func (noopLogger) Close()                  {}

// consoleLogger writes one line per event. Lines starting with "[ERR]" are painted red.
type consoleLogger struct {
	mutex sync.Mutex
	out   io.Writer
	stamp *color.Color
	fault *color.Color
}

func newConsoleLogger(out io.Writer, colorful bool) *consoleLogger {
	l := new(consoleLogger)
	l.out = out
	l.stamp = color.New(color.FgHiBlack)
	l.fault = color.New(color.FgRed, color.Bold)
	if !colorful {
		l.stamp.DisableColor()
		l.fault.DisableColor()
	}
	return l
}

func (l *consoleLogger) Logf(f string, v ...any) {
	line := fmt.Sprintf(f, v...)
	if strings.HasPrefix(line, "[ERR]") {
		line = l.fault.Sprint(line)
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	stamp := l.stamp.Sprint(time.Now().Format("2006-01-02 15:04:05.000"))

	l.mutex.Lock()
	fmt.Fprint(l.out, stamp, " ", line)
	l.mutex.Unlock()
}
func (l *consoleLogger) Close() {}
