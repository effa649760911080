// Package script runs automation rule scripts written in Lua.
//
// Scripts are compiled once and cached; every execution gets a fresh,
// sandboxed interpreter so rules never share global state:
//
//   - only the base, table, string and math libraries are loaded
//   - code and module loaders are removed
//   - print is routed to the engine's logger
//   - the context passed to Execute bounds the run time
//
// Bindings are exposed to the script as globals. Plain values (strings,
// numbers, booleans, slices, maps) are converted to Lua values and Go
// functions with the Func signature become callable Lua functions:
//
//	err := engine.Execute(ctx, "hall light", `
//	    if receivedCommand == "ON" then
//	        sendCommand("HallLight", "ON")
//	    end
//	`, map[string]any{
//	    "receivedCommand": "ON",
//	    "sendCommand": script.Func(func(args ...any) (any, error) { ... }),
//	})
package script
