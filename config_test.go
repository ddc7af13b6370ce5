package amp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	c, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, 1e-8, c.Tolerance)
	require.Equal(t, 40, c.MaxIterations)
	require.False(t, c.ParallelNetwork)
	require.Equal(t, ".", c.outputDir)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	conf := `[solver]
tolerance = 1e-6
max_iterations = 12

[energy]
parallel = true

[general]
output_path = "/tmp/amp"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(conf), 0o644))
	c, err := loadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 1e-6, c.Tolerance)
	require.Equal(t, 12, c.MaxIterations)
	require.True(t, c.ParallelNetwork)
	require.Equal(t, "/tmp/amp", c.outputDir)
	// Unset keys keep their defaults.
	require.Equal(t, 1e-7, c.Step)
}

func TestConfigRejectsBadSolver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf.toml"), []byte("[solver]\nmax_iterations = 0\n"), 0o644))
	_, err := loadConfig(dir)
	require.Error(t, err)

	_, err = loadConfig(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
