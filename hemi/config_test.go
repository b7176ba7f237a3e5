// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package hemi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig([]byte(`
host: 127.0.0.1
port: 8080
maxConnections: 64
maxContentSize: 4096
readTimeout: 5s
lingerTimeout: 250ms
debugLevel: 2
log:
  target: noop
`))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", config.Host)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, int32(64), config.MaxConnections)
	assert.Equal(t, int64(4096), config.MaxContentSize)
	assert.Equal(t, defaultMaxLineSize, config.MaxLineSize)
	assert.Equal(t, defaultMaxHeadSize, config.MaxHeadSize)
	assert.Equal(t, 5*time.Second, config.ReadTimeout)
	assert.Equal(t, time.Duration(0), config.WriteTimeout)
	assert.Equal(t, 250*time.Millisecond, config.LingerTimeout)
	assert.Equal(t, int32(2), config.DebugLevel)
	assert.Equal(t, "noop", config.Log.Target)
	assert.Equal(t, "127.0.0.1:8080", config.Address())
}

func TestParseConfigDefaults(t *testing.T) {
	config, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.Equal(t, ":4000", config.Address())
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		text   string
		expect string
	}{
		{"port: 70000", ".port has an invalid value"},
		{"maxConnections: 0", ".maxConnections has an invalid value"},
		{"maxContentSize: -1", ".maxContentSize has an invalid value"},
		{"maxLineSize: 10", ".maxLineSize has an invalid value"},
		{"maxHeadSize: 100", ".maxHeadSize has an invalid value"},
		{"maxLineSize: 1024\nmaxHeadSize: 512", ".maxHeadSize has an invalid value"},
		{"writeTimeout: -1s", "timeouts can't be negative"},
		{"debugLevel: 9", ".debugLevel has an invalid value"},
		{"log: {target: syslog}", `.log.target: unknown logger "syslog"`},
	}
	for idx, test := range tests {
		_, err := ParseConfig([]byte(test.text))
		require.Error(t, err, "#%d", idx)
		assert.Equal(t, test.expect, err.Error(), "#%d", idx)
	}

	_, err := ParseConfig([]byte("maxConns: 3"))
	assert.Error(t, err, "unknown fields are rejected")
	_, err = ParseConfig([]byte("port: [1"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "roxlet.yaml")
	require.NoError(t, os.WriteFile(file, []byte("port: 0\nlog:\n  target: console\n  color: false\n"), 0644))
	config, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 0, config.Port)
	assert.False(t, config.Log.Color)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
