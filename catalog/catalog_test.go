package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Len(t, c.Stages(), 18)

	xor, ok := c.Lookup("xor")
	require.True(t, ok)
	assert.Equal(t, []string{"key"}, xor.Args)
	assert.Equal(t, "xor", xor.Component)
	assert.Equal(t, 1, xor.MinSockets())

	auth, ok := c.Lookup("auth")
	require.True(t, ok)
	assert.Equal(t, 2, auth.MinSockets())

	stdin, ok := c.Lookup("stdin")
	require.True(t, ok)
	assert.True(t, stdin.SourceOnly)
	assert.Equal(t, "stdio", stdin.Component)

	echo, _ := c.Lookup("echo")
	assert.True(t, echo.SinkOnly)

	tcp, _ := c.Lookup("tcp")
	assert.Equal(t, 1, tcp.MinSockets())

	_, ok = c.Lookup("nope")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(`
stages:
  - name: gzip
    args: [level, window]
  - name: sink
    sink_only: true
`))
	require.NoError(t, err)

	names := []string{}
	for _, s := range c.Stages() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"gzip", "sink"}, names)

	gz, _ := c.Lookup("gzip")
	assert.Equal(t, 2, gz.MinSockets())
}

func TestLoad_Empty(t *testing.T) {
	c, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, c.Stages())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader("stages:\n  - name: a\n  - name: a\n"))
	assert.ErrorIs(t, err, ErrDuplicateStage)

	_, err = Load(strings.NewReader("stages:\n  - args: [x]\n"))
	assert.Error(t, err)

	_, err = Load(strings.NewReader("stages: [[["))
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("/does/not/exist.yaml")
	assert.Error(t, err)
}
