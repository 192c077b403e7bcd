package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/leanauth/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSessionMintAndInspect(t *testing.T) {
	t.Setenv("COOKIE_SECRET", "cli-secret")

	token, err := run(t, "session", "mint", "--name", "Ada", "--email", "ada@x.com", "--ttl", "30m")
	require.NoError(t, err)
	token = strings.TrimSpace(token)
	require.Contains(t, token, ".")

	out, err := run(t, "session", "inspect", token)
	require.NoError(t, err)

	var inspected map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &inspected))
	assert.Equal(t, "Ada", inspected["name"])
	assert.Equal(t, "ada@x.com", inspected["email"])
}

func TestSessionInspectRejectsOtherSecret(t *testing.T) {
	t.Setenv("COOKIE_SECRET", "first-secret")
	token, err := run(t, "session", "mint", "--name", "Ada")
	require.NoError(t, err)

	t.Setenv("COOKIE_SECRET", "second-secret")
	_, err = run(t, "session", "inspect", strings.TrimSpace(token))
	assert.ErrorIs(t, err, core.ErrInvalidSession)
}

func TestSessionMintRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("COOKIE_SECRET", "cli-secret")

	_, err := run(t, "session", "mint", "--ttl", "0s")
	assert.Error(t, err)
}

func TestSessionRequiresSecret(t *testing.T) {
	t.Setenv("COOKIE_SECRET", "")

	_, err := run(t, "session", "mint", "--name", "Ada")
	assert.Error(t, err)
}
