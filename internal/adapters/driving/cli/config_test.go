package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCmd_SetGetList(t *testing.T) {
	setupTestServices(t)

	code, out, errOut := run(t, "config", "set", "export.timeout", "15m")
	require.Equal(t, ExitOK, code, errOut)
	assert.Contains(t, out, "export.timeout = 15m0s")

	code, _, errOut = run(t, "config", "set", "portal_url", "https://gis.example.org/portal")
	require.Equal(t, ExitOK, code, errOut)

	code, out, _ = run(t, "config", "get", "portal_url")
	require.Equal(t, ExitOK, code)
	assert.Equal(t, "https://gis.example.org/portal\n", out)

	code, out, _ = run(t, "config", "list")
	require.Equal(t, ExitOK, code)
	assert.Equal(t, "export.timeout = 15m0s\nportal_url = https://gis.example.org/portal\n", out)
}

func TestConfigCmd_SetInvalid(t *testing.T) {
	setupTestServices(t)

	code, _, errOut := run(t, "config", "set", "credential_mode", "kerberos")
	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, errOut, "credential_mode")
}

func TestConfigCmd_SetRejectsInvalidPortRange(t *testing.T) {
	setupTestServices(t)

	code, _, errOut := run(t, "config", "set", "oauth.callback_port_start", "9000")
	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, errOut, "oauth.callback_port_start")

	code, _, errOut = run(t, "config", "get", "oauth.callback_port_start")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "is not set")
}

func TestConfigCmd_GetUnset(t *testing.T) {
	setupTestServices(t)

	code, _, errOut := run(t, "config", "get", "client_id")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "client_id is not set")
}

func TestConfigCmd_Unset(t *testing.T) {
	setupTestServices(t)

	code, _, errOut := run(t, "config", "set", "client_id", "app-1")
	require.Equal(t, ExitOK, code, errOut)

	code, out, errOut := run(t, "config", "unset", "client_id")
	require.Equal(t, ExitOK, code, errOut)
	assert.Equal(t, "Unset client_id\n", out)

	code, _, errOut = run(t, "config", "unset", "client_id")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "client_id is not set")

	code, _, _ = run(t, "config", "unset", "search.mode")
	assert.Equal(t, ExitInvalidInput, code)
}

func TestConfigCmd_EmptyListKeysAndPath(t *testing.T) {
	setupTestServices(t)

	code, out, _ := run(t, "config", "list")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "No values set in")

	code, out, _ = run(t, "config", "keys")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "export.poll_interval")
	assert.Contains(t, out, "duration")

	code, out, _ = run(t, "config", "path")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "config.toml")
}
