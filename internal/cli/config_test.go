package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		assert.True(t, hasCommand("config"), "config command should exist")
	})

	t.Run("subcommands", func(t *testing.T) {
		for _, name := range []string{"show", "validate", "init"} {
			cmd, _, err := GetRootCmd().Find([]string{"config", name})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		}
	})
}

func TestConfigShow(t *testing.T) {
	t.Setenv("HEYCOACH_OPENAI_API_KEY", "sk-secret-value")
	path, _ := writeConfig(t, map[string]any{
		"server": map[string]any{"port": 4100},
	})

	output, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, output, `"port": 4100`)
	assert.Contains(t, output, "********")
	assert.NotContains(t, output, "sk-secret-value")
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path, _ := writeConfig(t, nil)
		output, err := execute(t, "config", "validate", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "Configuration is valid")
	})

	t.Run("invalid port", func(t *testing.T) {
		path, _ := writeConfig(t, map[string]any{
			"server": map[string]any{"port": 70000},
		})
		_, err := execute(t, "config", "validate", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestConfigInit(t *testing.T) {
	t.Cleanup(func() { initForce = false })
	path := filepath.Join(t.TempDir(), "nested", "heycoach.json")

	output, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote default configuration")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "whisper-1")

	_, err = execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--config", path, "--force")
	assert.NoError(t, err)
}
