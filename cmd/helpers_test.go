// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/smishguard/internal/config"
)

// newTestConfig returns the default configuration with every outbound
// dependency disabled, so components can be built without network or disk.
func newTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Logger.Level = "fatal"
	cfg.Reputation.APIKey = ""
	cfg.Classifier.Enabled = false
	cfg.Database.URL = ""
	return cfg
}

// isolateEnv runs the test in an empty directory with no credentials in the
// environment, so neither a local config.yaml nor real keys leak in.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"SMISHGUARD_REPUTATION_API_KEY",
		"GOOGLE_SAFE_BROWSING_API_KEY",
		"SMISHGUARD_DATABASE_URL",
		"DATABASE_URL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("SMISHGUARD_CLASSIFIER_ENABLED", "false")
	t.Setenv("SMISHGUARD_LOGGER_LEVEL", "fatal")
}

// createTempConfig writes content to a YAML file that is removed after the test.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// executeCommand runs a fresh command tree and captures its output.
func executeCommand(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}
