package cli

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its combined output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := GetRootCmd()
	cmd.SetArgs(args)

	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
		resetFlags(cmd)
		cfgFile = ""
	})

	err := cmd.Execute()
	return output.String(), err
}

// resetFlags restores every flag in the command tree to its default so state
// such as --help does not leak into the next execution.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeConfig writes a config file into a temp dir whose data_dir is that dir
func writeConfig(t *testing.T, overrides map[string]any) (path, dataDir string) {
	t.Helper()

	dataDir = t.TempDir()
	values := map[string]any{
		"data_dir": dataDir,
		"logging": map[string]any{
			"level":   "info",
			"console": false,
			"file":    filepath.Join(dataDir, "heycoach.log"),
		},
	}
	for k, v := range overrides {
		values[k] = v
	}

	data, err := json.Marshal(values)
	require.NoError(t, err)

	path = filepath.Join(dataDir, "heycoach.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, dataDir
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func hasCommand(name string) bool {
	for _, c := range GetRootCmd().Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}
