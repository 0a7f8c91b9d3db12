package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ssargent/shredder/pkg/di"
)

const testPairs = `{"key": 42, "value": "AB"}
{"key": 1586999, "value": "XYZ"}
# comment lines are skipped
{"key": 7, "value": "c2V2ZW4=", "encoding": "base64"}
`

type testEnv struct {
	dir        string
	configPath string
	dataDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	c := di.NewContainer()
	c.SetLogger(zap.NewNop())
	SetContainer(c)
	t.Cleanup(func() {
		c.Close()
		SetContainer(nil)
	})

	return &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		dataDir:    filepath.Join(dir, "data"),
	}
}

// run executes the root command with the environment's config and data dir
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", e.configPath, "--data-dir", e.dataDir}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func (e *testEnv) writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func (e *testEnv) buildUsers(t *testing.T, extra ...string) string {
	t.Helper()

	pairs := e.writeFile(t, "pairs.jsonl", []byte(testPairs))
	out := filepath.Join(e.dir, "users.img")
	_, err := e.run(t, append([]string{"build", pairs, out}, extra...)...)
	require.NoError(t, err)
	return out
}

// resetFlags restores every flag to its default, since cobra keeps parsed
// values between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
