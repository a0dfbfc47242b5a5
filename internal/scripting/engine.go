// Package scripting lets a component type delegate its debug-print hook to
// Lua instead of Go, exercising the optional Print slot of component.Info.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only — it is
// driven from the scheduler's single tick goroutine, never concurrently.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file under hooksDir,
// each of which is expected to define one or more print-hook functions
// (print_<type name> taking a flattened field table, returning a string).
func NewEngine(hooksDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(hooksDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load hook scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no hook scripts configured is not an error
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua hook script", zap.String("file", path))
	}
	return nil
}

// HasPrintHook reports whether a Lua function named fnName is defined.
func (e *Engine) HasPrintHook(fnName string) bool {
	return e.vm.GetGlobal(fnName) != lua.LNil
}

// CallPrintHook calls the named Lua function with fields packed into a
// table, and returns its single string result. Falls back to a generic
// rendering if the function is missing or errors, so a component.Info.Print
// hook backed by this engine never panics a query that happens to print a
// component for debugging.
func (e *Engine) CallPrintHook(fnName string, fields map[string]any) string {
	fn := e.vm.GetGlobal(fnName)
	if fn == lua.LNil {
		e.log.Warn("lua print hook not found", zap.String("fn", fnName))
		return fmt.Sprintf("<%s: no hook>", fnName)
	}

	t := e.vm.NewTable()
	for k, v := range fields {
		t.RawSetString(k, toLuaValue(v))
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua print hook failed", zap.String("fn", fnName), zap.Error(err))
		return fmt.Sprintf("<%s: error>", fnName)
	}
	defer e.vm.Pop(1)

	ret := e.vm.Get(-1)
	if s, ok := ret.(lua.LString); ok {
		return string(s)
	}
	return ret.String()
}

func toLuaValue(v any) lua.LValue {
	switch x := v.(type) {
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint32:
		return lua.LNumber(x)
	case uint64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	default:
		return lua.LString(fmt.Sprintf("%v", x))
	}
}

// Close releases the underlying Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
