package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const (
	callStackSize = 256
	registrySize  = 1024 * 16
)

// Logger defines the logging interface used by the script engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type compiled struct {
	source string
	proto  *lua.FunctionProto
}

// Engine compiles and executes Lua scripts.
type Engine struct {
	mu     sync.Mutex
	cache  map[string]*compiled
	logger Logger
}

// NewEngine creates a script engine. A nil logger discards script output.
func NewEngine(logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		cache:  make(map[string]*compiled),
		logger: logger,
	}
}

// Compile parses source without running it. The result is cached under
// name, so a later Execute with the same source skips the parse.
func (e *Engine) Compile(name, source string) error {
	_, err := e.compile(name, source)
	return err
}

// Forget drops the cached compilation for name.
func (e *Engine) Forget(name string) {
	e.mu.Lock()
	delete(e.cache, name)
	e.mu.Unlock()
}

// CacheSize returns the number of cached compiled scripts.
func (e *Engine) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

func (e *Engine) compile(name, source string) (*lua.FunctionProto, error) {
	e.mu.Lock()
	if c, ok := e.cache[name]; ok && c.source == source {
		e.mu.Unlock()
		return c.proto, nil
	}
	e.mu.Unlock()

	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}

	e.mu.Lock()
	e.cache[name] = &compiled{source: source, proto: proto}
	e.mu.Unlock()
	return proto, nil
}

// Execute runs source with vars bound as globals. Compile failures wrap
// ErrCompile; runtime failures are returned as *ExecutionError.
func (e *Engine) Execute(ctx context.Context, name, source string, vars map[string]any) (err error) {
	proto, err := e.compile(name, source)
	if err != nil {
		return err
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: callStackSize,
		RegistrySize:  registrySize,
	})
	defer L.Close()

	var goErr error
	onErr := func(err error) {
		if goErr == nil {
			goErr = err
		}
	}

	e.sandbox(L, name)
	for k, v := range vars {
		L.SetGlobal(k, toLua(L, v, onErr))
	}

	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Script: name, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	L.SetContext(ctx)
	L.Push(L.NewFunctionFromProto(proto))
	if callErr := L.PCall(0, lua.MultRet, nil); callErr != nil {
		cause := callErr
		switch {
		case ctx.Err() != nil:
			cause = ctx.Err()
		case goErr != nil:
			cause = goErr
		}
		return &ExecutionError{Script: name, Cause: cause}
	}
	return nil
}

// sandbox loads the safe standard libraries and removes the code and module
// loaders.
func (e *Engine) sandbox(L *lua.LState, name string) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, fn := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(fn, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		e.logger.Info("script output", "script", name, "message", strings.Join(parts, "\t"))
		return 0
	}))
}

// IsCompileError reports whether err came from a script that failed to parse.
func IsCompileError(err error) bool {
	return errors.Is(err, ErrCompile)
}
