package config

import (
	"os"
	"path/filepath"
	"testing"

	"regiondump/format"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
format: yaml
max-region-size: 64MB
parallel: 2
compress: true
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml", c.Format)
	assert.Equal(t, 2, c.Parallel)
	assert.True(t, c.Compress)
	assert.Equal(t, Default().Output, c.Output)

	limit, err := c.MaxRegionBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(64<<20), limit)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestDefaultLimitsRegionSize(t *testing.T) {
	limit, err := Default().MaxRegionBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(100<<20), limit)

	c, err := Load(writeConfig(t, "max-region-size: \"0\"\n"))
	require.NoError(t, err)
	limit, err = c.MaxRegionBytes()
	require.NoError(t, err)
	assert.Zero(t, limit)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, content := range map[string]string{
		"format":  "format: xml\n",
		"size":    "max-region-size: lots\n",
		"unknown": "colour: red\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeConfig(t, "format: xml\n"))
	assert.ErrorIs(t, err, format.ErrUnsupportedFormat)
}

func TestParseSize(t *testing.T) {
	n, err := ParseSize("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = ParseSize("4KB")
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), n)
}
