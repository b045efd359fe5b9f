// Package integration provides embedded shell integration snippets.
package integration

import (
	"bytes"
	_ "embed"
	"fmt"
	"os/exec"
	"path/filepath"
	"text/template"
)

// ZshFzf contains the zsh shell integration script with fzf support.
//
//go:embed zsh-fzf.sh
var ZshFzf string

//nolint:gochecknoglobals // Replaced in tests
var lookPath = exec.LookPath

// Render renders the integration script with the path of the local zsh binary.
func Render() (string, error) {
	zsh, err := lookPath("zsh")
	if err != nil {
		return "", fmt.Errorf("locating zsh: %w", err)
	}

	tmpl, err := template.New("zsh-fzf").Parse(ZshFzf)
	if err != nil {
		return "", fmt.Errorf("parsing script template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"ZSH": filepath.ToSlash(zsh),
	}); err != nil {
		return "", fmt.Errorf("rendering script: %w", err)
	}

	return buf.String(), nil
}
