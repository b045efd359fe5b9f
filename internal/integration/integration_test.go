package integration

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLookPath(t *testing.T, path string, err error) {
	t.Helper()

	orig := lookPath
	lookPath = func(string) (string, error) { return path, err }

	t.Cleanup(func() { lookPath = orig })
}

func TestRender(t *testing.T) {
	stubLookPath(t, "/usr/local/bin/zsh", nil)

	rendered, err := Render()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rendered, "#!/usr/local/bin/zsh\n"))
	assert.Contains(t, rendered, "jolt search -p")
	assert.Contains(t, rendered, "jolt space-finder")
	assert.Contains(t, rendered, "bindkey '^F' _jolt_fzf_widget")
	assert.NotContains(t, rendered, "{{")
}

func TestRender_NoZsh(t *testing.T) {
	stubLookPath(t, "", errors.New("executable file not found in $PATH"))

	_, err := Render()
	require.ErrorContains(t, err, "locating zsh")
}
