package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmexport.in/cli/internal/core/domain"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["run"])
	assert.True(t, names["validate"])
	assert.True(t, names["config"])
	assert.Equal(t, "tmexport", root.Name())
}

func TestRootCommand_Help(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "tmexport")
	assert.Contains(t, out.String(), "run")
}

func TestValidateCommand_MissingCredentialsIsConfigError(t *testing.T) {
	t.Setenv("TMX_PORTAL_USERNAME", "")
	t.Setenv("TMX_PORTAL_PASSWORD", "")
	t.Setenv("OPENAI_API_KEY", "")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"validate"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestConfigShowCommand_MasksSecrets(t *testing.T) {
	t.Setenv("TMX_PORTAL_USERNAME", "attorney01")
	t.Setenv("TMX_PORTAL_PASSWORD", "super-secret-password")
	t.Setenv("OPENAI_API_KEY", "sk-proj-abcdefghijklmnop")

	root := NewRootCommand()
	root.SetArgs([]string{"config", "show"})

	// The command prints via fmt to stdout; here we only assert it runs
	// cleanly with a valid environment.
	require.NoError(t, root.Execute())
}
