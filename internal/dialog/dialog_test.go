package dialog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenCommandTargetsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cmd := openCommand(path)
	assert.Equal(t, path, cmd.Args[len(cmd.Args)-1])
	assert.NotEmpty(t, cmd.Path)
}
