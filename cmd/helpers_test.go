package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/easyapply-cli/internal/observability"
)

// testEnv is a scratch directory holding a config file that points every
// store into the directory.
type testEnv struct {
	dir        string
	configPath string
}

func (e testEnv) path(name string) string { return filepath.Join(e.dir, name) }

// newTestEnv writes a config that keeps logging quiet and every artifact
// inside a temp dir. extra is appended verbatim to the YAML document.
func newTestEnv(t *testing.T, extra string) testEnv {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	dir := t.TempDir()
	doc := fmt.Sprintf(`logger:
  level: error
  format: console
  log_file: ""
answers:
  path: %[1]s/answers.json
profile:
  path: %[1]s/profile.yaml
output:
  dir: %[1]s/out
  call_log: ""
%[2]s`, dir, extra)

	env := testEnv{dir: dir, configPath: filepath.Join(dir, "config.yaml")}
	require.NoError(t, os.WriteFile(env.configPath, []byte(doc), 0o644))
	return env
}

// execute runs a fresh command tree and returns what it printed to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
