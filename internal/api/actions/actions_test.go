package actions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoadInputs reads inputs from INPUT_* variables and applies the version default.
func TestLoadInputs(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"INPUT_TOKEN":   "ghp_secret",
		"INPUT_VERSION": " latest-edge ",
		"INPUT_ALL":     "TRUE",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	inputs, err := LoadInputs(lookup)
	require.NoError(t, err)
	require.Equal(t, &Inputs{Token: "ghp_secret", Version: "latest-edge", All: true}, inputs)

	inputs, err = LoadInputs(func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	require.Equal(t, DefaultVersion, inputs.Version)
	require.False(t, inputs.All)
}

// TestLoadInputs_BadBoolean rejects booleans outside the YAML core schema.
func TestLoadInputs_BadBoolean(t *testing.T) {
	t.Parallel()

	lookup := func(key string) (string, bool) {
		if key == "INPUT_ALL" {
			return "yes", true
		}

		return "", false
	}

	_, err := LoadInputs(lookup)
	require.ErrorIs(t, err, errNotCoreSchemaBoolean)
}

// TestInputEnvName checks the runner naming convention for inputs.
func TestInputEnvName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "INPUT_TOKEN", InputEnvName("token"))
	require.Equal(t, "INPUT_MY_INPUT", InputEnvName("my input"))
}

// TestHost_AddPath appends to GITHUB_PATH and prepends to the process PATH.
func TestHost_AddPath(t *testing.T) {
	dir := t.TempDir()
	pathFile := filepath.Join(dir, "path")
	t.Setenv("PATH", "/usr/bin")

	h := NewHost(WithFiles(pathFile, ""))
	require.NoError(t, h.AddPath("/opt/nextflow"))

	contents, err := os.ReadFile(pathFile)
	require.NoError(t, err)
	require.Equal(t, "/opt/nextflow\n", string(contents))
	require.True(t, strings.HasPrefix(os.Getenv("PATH"), "/opt/nextflow"+string(filepath.ListSeparator)))
}

// TestHost_ExportVariable writes a heredoc entry to GITHUB_ENV and sets the variable.
func TestHost_ExportVariable(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "env")
	t.Setenv("CAPSULE_LOG", "")

	h := NewHost(WithFiles("", envFile))
	h.newDelimiter = func() string { return "ghadelimiter_fixed" }

	require.NoError(t, h.ExportVariable("CAPSULE_LOG", "none"))
	require.Equal(t, "none", os.Getenv("CAPSULE_LOG"))

	contents, err := os.ReadFile(envFile)
	require.NoError(t, err)
	require.Equal(t, "CAPSULE_LOG<<ghadelimiter_fixed\nnone\nghadelimiter_fixed\n", string(contents))

	require.ErrorIs(t, h.ExportVariable("CAPSULE_LOG", "x ghadelimiter_fixed"), errDelimiterCollision)
	require.ErrorIs(t, h.ExportVariable(" ", "x"), errInvalidName)
}

// TestHost_DefaultDelimiter verifies generated delimiters are unique.
func TestHost_DefaultDelimiter(t *testing.T) {
	t.Parallel()

	h := NewHost()
	first, second := h.newDelimiter(), h.newDelimiter()

	require.True(t, strings.HasPrefix(first, delimiterPrefix))
	require.NotEqual(t, first, second)
}
