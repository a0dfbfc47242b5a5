package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewEngineToleratesMissingHookDir(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "does-not-exist"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.False(t, e.HasPrintHook("print_widget"))
}

func TestNewEngineLoadsLuaHookFiles(t *testing.T) {
	dir := t.TempDir()
	script := `
function print_widget(fields)
  return "widget:" .. fields.name
end
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widget.lua"), []byte(script), 0o644))

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.True(t, e.HasPrintHook("print_widget"))
	got := e.CallPrintHook("print_widget", map[string]any{"name": "gizmo"})
	assert.Equal(t, "widget:gizmo", got)
}

func TestCallPrintHookFallsBackWhenMissing(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	got := e.CallPrintHook("print_missing", nil)
	assert.Equal(t, "<print_missing: no hook>", got)
}

func TestNewEngineRejectsBrokenLuaFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte("this is not lua ("), 0o644))

	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}
