// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Server configuration.

package hemi

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	defaultPort           = 4000
	defaultMaxConnections = 10
	defaultMaxContentSize = 1 << 20
	defaultMaxLineSize    = 8 << 10
	defaultMaxHeadSize    = 16 << 10
	defaultLingerTimeout  = time.Second
)

// Config holds everything a Server needs before it starts serving.
type Config struct {
	Host           string        `yaml:"host"`           // listening host. empty means all interfaces
	Port           int           `yaml:"port"`           // listening port. 0 means a random port
	MaxConnections int32         `yaml:"maxConnections"` // max concurrent in-flight requests
	MaxContentSize int64         `yaml:"maxContentSize"` // max size of a json body
	MaxLineSize    int           `yaml:"maxLineSize"`    // max size of start line and each header line
	MaxHeadSize    int           `yaml:"maxHeadSize"`    // max size of start line and all header lines
	ReadTimeout    time.Duration `yaml:"readTimeout"`    // 0 means no timeout
	WriteTimeout   time.Duration `yaml:"writeTimeout"`   // 0 means no timeout
	LingerTimeout  time.Duration `yaml:"lingerTimeout"`  // how long to drain unread input before close
	DebugLevel     int32         `yaml:"debugLevel"`
	Log            LogConfig     `yaml:"log"`
}

// DefaultConfig returns a config with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Port:           defaultPort,
		MaxConnections: defaultMaxConnections,
		MaxContentSize: defaultMaxContentSize,
		MaxLineSize:    defaultMaxLineSize,
		MaxHeadSize:    defaultMaxHeadSize,
		LingerTimeout:  defaultLingerTimeout,
		Log:            LogConfig{Target: "console", Color: true},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(file string) (*Config, error) {
	text, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return ParseConfig(text)
}

// ParseConfig parses YAML text over the defaults and validates the result.
func ParseConfig(text []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.UnmarshalStrict(text, config); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks every entry.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.New(".port has an invalid value")
	}
	if c.MaxConnections <= 0 {
		return errors.New(".maxConnections has an invalid value")
	}
	if c.MaxContentSize <= 0 {
		return errors.New(".maxContentSize has an invalid value")
	}
	if c.MaxLineSize < 64 {
		return errors.New(".maxLineSize has an invalid value")
	}
	if c.MaxHeadSize < c.MaxLineSize {
		return errors.New(".maxHeadSize has an invalid value")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.LingerTimeout < 0 {
		return errors.New("timeouts can't be negative")
	}
	if c.DebugLevel < 0 || c.DebugLevel > 3 {
		return errors.New(".debugLevel has an invalid value")
	}
	if !loggerRegistered(c.Log.Target) {
		return errors.Errorf(".log.target: unknown logger %q", c.Log.Target)
	}
	return nil
}

// Address returns the listening address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
