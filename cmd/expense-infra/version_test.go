package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	v := getVersion()
	assert.NotEmpty(t, v)

	// Under go test the version is "dev" unless installed via go install @version.
	if v != "dev" {
		assert.True(t, strings.HasPrefix(v, "v"), "getVersion() = %q", v)
	}
}

func TestGetVersion_Ldflags(t *testing.T) {
	old := version
	version = "v1.2.3"
	defer func() { version = old }()

	assert.Equal(t, "v1.2.3", getVersion())
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "expense-infra "))
}
