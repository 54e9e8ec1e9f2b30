package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesRotatedJSONFile(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "info"})
	defer Shutdown()

	ForComponent(CompStorage).Info("hello", "key", "value")

	data, err := os.ReadFile(filepath.Join(dir, "clipd.log"))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"component":"storage"`)
	assert.Contains(t, out, `"key":"value"`)
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "warn"})
	defer Shutdown()

	log := ForComponent(CompDaemon)
	log.Info("quiet")
	log.Warn("loud")

	data, err := os.ReadFile(filepath.Join(dir, "clipd.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestDebugFlagLowersLevel(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "warn", Debug: true})
	defer Shutdown()

	ForComponent(CompServer).Debug("verbose")

	data, err := os.ReadFile(filepath.Join(dir, "clipd.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "verbose")
}
