// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)

		output bytes.Buffer
		root   = newRootCommand()
	)

	root.SetOut(&output)
	root.SetArgs([]string{"version"})
	require.NoError(root.Execute())
	assert.Contains(output.String(), cmdName+" "+version)
	assert.Contains(output.String(), runtime.Version())
}

func TestServeBadConfig(t *testing.T) {
	var (
		output bytes.Buffer
		root   = newRootCommand()
	)

	root.SetOut(&output)
	root.SetErr(&output)
	root.SetArgs([]string{"serve", "-c", filepath.Join(t.TempDir(), "missing.toml")})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file error")
}

func TestUnknownCommand(t *testing.T) {
	var (
		output bytes.Buffer
		root   = newRootCommand()
	)

	root.SetOut(&output)
	root.SetErr(&output)
	root.SetArgs([]string{"bogus"})
	assert.Error(t, root.Execute())
}
