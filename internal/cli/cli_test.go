package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	content := "name,age\nAnn,34\nBob,28\nDana,51\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_RejectsInvalidFormat(t *testing.T) {
	_, err := runCommand(t, "--format", "xml", "schema", "whatever.csv")
	assert.Error(t, err)
}

func TestSchemaCommand_JSON(t *testing.T) {
	path := writeFixture(t)

	out, err := runCommand(t, "--format", "json", "schema", path)
	require.NoError(t, err)

	var body struct {
		Table      string `json:"table"`
		Parameters []struct {
			Name string `json:"name"`
		} `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "people", body.Table)

	var names []string
	for _, p := range body.Parameters {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "use_distinct")
	assert.Contains(t, names, "age_greaterThan")
	assert.Contains(t, names, "name_contains")
}

func TestQueryCommand_JSON(t *testing.T) {
	path := writeFixture(t)

	out, err := runCommand(t, "--format", "json", "query", path,
		"--param", "age_greaterThan=30")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Ann", rows[0]["name"])
	assert.Equal(t, "Dana", rows[1]["name"])
}

func TestQueryCommand_BadParameterExitCode(t *testing.T) {
	path := writeFixture(t)

	_, err := runCommand(t, "query", path, "--param", "nope=1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestQueryCommand_MalformedParamFlag(t *testing.T) {
	path := writeFixture(t)

	_, err := runCommand(t, "query", path, "--param", "justaname")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseParamFlags(t *testing.T) {
	params, err := parseParamFlags([]string{"a=1", "b=x=y"})
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "1", params[0].Value)
	assert.Equal(t, "x=y", params[1].Value, "value may contain =")

	_, err = parseParamFlags([]string{"=v"})
	assert.Error(t, err)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "csvapi.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("source: data.csv\naddr: 127.0.0.1:9000\n"), 0o644))

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "data.csv", cfg.Source)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)

	t.Setenv(envAddr, "0.0.0.0:7000")
	cfg, err = LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Addr, "environment overrides the file")

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Addr)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
