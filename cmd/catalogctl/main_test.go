package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalog/internal/bitacora"
	"github.com/JonMunkholm/catalog/internal/core"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("CATALOG_FILE", "")
	t.Setenv("DEBUG_LOGS", "false")
	t.Setenv("LOG_LEVEL", "error")
	core.Clear()
	t.Cleanup(core.Clear)
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd, c := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	require.NoError(t, c.close())
	return out.String(), err
}

func decodeEnvelope(t *testing.T, out string) bitacora.Response {
	t.Helper()
	var resp bitacora.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestCLI_Lifecycle(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "create", "Instruments", "--data", `{"ib_conid": 756733, "symbol": "SPY"}`, "--user", "ops")
	require.NoError(t, err)
	created := decodeEnvelope(t, out)
	assert.Equal(t, 201, created.Status)
	assert.Equal(t, "ops", created.LoggedUser)
	assert.True(t, strings.HasPrefix(out, "{\n  \""), "envelope is indented")

	id, _ := created.Principal().DataRes.(map[string]any)["ID"].(string)
	require.NotEmpty(t, id)

	out, err = execute(t, "", "create", "Instruments", "-d", `{"ib_conid": 756733}`)
	assert.ErrorIs(t, err, errOperationFailed)
	assert.Equal(t, 409, decodeEnvelope(t, out).Status)

	out, err = execute(t, "", "read", "Instruments", id)
	require.NoError(t, err)
	assert.Equal(t, 1, decodeEnvelope(t, out).Principal().CountDataRes)

	out, err = execute(t, `{"symbol": "SPY.ARCA"}`, "update", "Instruments", id, "--data", "-")
	require.NoError(t, err)
	assert.Equal(t, "SPY.ARCA", decodeEnvelope(t, out).Principal().DataRes.(map[string]any)["symbol"])

	out, err = execute(t, "", "delete", "Instruments", id)
	require.NoError(t, err)
	assert.True(t, decodeEnvelope(t, out).Success)

	out, err = execute(t, "", "delete", "Instruments", id)
	assert.ErrorIs(t, err, errOperationFailed)
	assert.Equal(t, 404, decodeEnvelope(t, out).Status)
}

func TestCLI_ReadBounds(t *testing.T) {
	setupEnv(t)
	for i := 0; i < 3; i++ {
		_, err := execute(t, "", "create", "Orders", "-d", `{"qty": 1}`)
		require.NoError(t, err)
	}

	out, err := execute(t, "", "read", "Orders", "--top", "2", "--skip", "2")
	require.NoError(t, err)
	assert.Equal(t, 1, decodeEnvelope(t, out).Principal().CountDataRes)
}

func TestCLI_Entities(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "entities")
	require.NoError(t, err)
	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "OptionChainSnapshotItems")

	out, err = execute(t, "", "entities", "--json")
	require.NoError(t, err)
	var defs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	assert.Len(t, defs, 15)
}

func TestCLI_UnknownEntity(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "read", "Nope")
	assert.ErrorIs(t, err, core.ErrUnknownEntity)
}

func TestRun_ExitCodes(t *testing.T) {
	setupEnv(t)

	assert.Equal(t, exitSuccess, run([]string{"entities"}))
	assert.Equal(t, exitUserError, run([]string{"delete", "Orders"}))
	assert.Equal(t, exitFailure, run([]string{"update", "Orders", "-d", `{"qty": 2}`}))
}

func TestParseData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from": "file"}`), 0o600))

	tests := []struct {
		name    string
		raw     string
		stdin   string
		want    core.Record
		wantErr bool
	}{
		{name: "empty", raw: "", want: core.Record{}},
		{name: "inline", raw: `{"a": 1}`, want: core.Record{"a": float64(1)}},
		{name: "stdin", raw: "-", stdin: `{"from": "stdin"}`, want: core.Record{"from": "stdin"}},
		{name: "file", raw: "@" + path, want: core.Record{"from": "file"}},
		{name: "null", raw: "null", want: core.Record{}},
		{name: "array", raw: "[1]", wantErr: true},
		{name: "missing file", raw: "@" + path + ".nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseData(tt.raw, strings.NewReader(tt.stdin))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
