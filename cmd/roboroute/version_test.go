package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/pdrpinto/roboroute/internal/version"
)

func TestRenderVersion(t *testing.T) {
	color.NoColor = true
	b := version.Build{Version: "1.2.3", Commit: "abcdef0123456789", GoVersion: "go1.24.3"}

	var out bytes.Buffer
	renderVersion(&out, b, false)
	assert.Equal(t, "roboroute 1.2.3 (abcdef012345)\n", out.String())

	out.Reset()
	renderVersion(&out, b, true)
	assert.Contains(t, out.String(), "built: unknown\n")
	assert.Contains(t, out.String(), "go:    go1.24.3\n")
}
