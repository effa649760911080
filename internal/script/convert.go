package script

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Func is a Go function callable from Lua. Arguments arrive converted to
// Go values; a non-nil error is raised as a Lua error.
type Func func(args ...any) (any, error)

// toLua converts a Go value into a Lua value.
func toLua(L *lua.LState, v any, onErr func(error)) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case float64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case []any:
		t := L.NewTable()
		for _, item := range val {
			t.Append(toLua(L, item, onErr))
		}
		return t
	case []string:
		t := L.NewTable()
		for _, item := range val {
			t.Append(lua.LString(item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.RawSetString(k, toLua(L, val[k], onErr))
		}
		return t
	case Func:
		return L.NewFunction(wrapFunc(val, onErr))
	case func(args ...any) (any, error):
		return L.NewFunction(wrapFunc(val, onErr))
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// fromLua converts a Lua value into a Go value. Numbers become float64 and
// tables become []any (sequences) or map[string]any.
func fromLua(lv lua.LValue) any {
	return fromLuaVisited(lv, make(map[*lua.LTable]bool))
}

func fromLuaVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n := t.Len(); n > 0 {
		count := 0
		t.ForEach(func(_, _ lua.LValue) { count++ })
		if count == n {
			arr := make([]any, n)
			for i := 1; i <= n; i++ {
				arr[i-1] = fromLuaVisited(t.RawGetInt(i), visited)
			}
			return arr
		}
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = fromLuaVisited(v, visited)
	})
	return m
}

// wrapFunc adapts fn to a Lua function. Errors are handed to onErr before
// being raised so the caller can keep the original error as root cause.
func wrapFunc(fn Func, onErr func(error)) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]any, n)
		for i := 1; i <= n; i++ {
			args[i-1] = fromLua(L.Get(i))
		}

		result, err := fn(args...)
		if err != nil {
			onErr(err)
			L.RaiseError("%s", err.Error())
			return 0
		}
		if result == nil {
			return 0
		}
		L.Push(toLua(L, result, onErr))
		return 1
	}
}
