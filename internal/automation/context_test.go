package automation

import (
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-automation/internal/item"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

type published struct {
	fn    string
	item  string
	value any
}

// mockPublisher records bus calls.
type mockPublisher struct {
	mu    sync.Mutex
	calls []published
}

func (p *mockPublisher) record(fn, itemName string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, published{fn: fn, item: itemName, value: v})
}

func (p *mockPublisher) SendCommand(i string, c types.Command) { p.record("send", i, c) }
func (p *mockPublisher) PostCommand(i string, c types.Command) { p.record("post", i, c) }
func (p *mockPublisher) PostUpdate(i string, s types.State)    { p.record("update", i, s) }

// mockStates serves item states from a map.
type mockStates map[string]types.State

func (m mockStates) GetItemState(name string) (types.State, error) {
	if s, ok := m[name]; ok {
		return s, nil
	}
	return nil, item.ErrItemNotFound
}

type scriptFunc = func(args ...any) (any, error)

func binding(t *testing.T, vars map[string]any, name string) scriptFunc {
	t.Helper()
	fn, ok := vars[name].(func(args ...any) (any, error))
	if !ok {
		t.Fatalf("binding %q has type %T", name, vars[name])
	}
	return fn
}

func TestEvaluationContext_Layering(t *testing.T) {
	global := map[string]any{"a": 1}
	ec := NewEvaluationContext(global)
	ec.Set(VarReceivedCommand, "ON")
	ec.Set("a", 2)

	if global["a"] != 1 {
		t.Error("Set modified the global map")
	}
	if _, ok := global[VarReceivedCommand]; ok {
		t.Error("Set leaked into the global map")
	}
	if v, ok := ec.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if len(ec.Vars()) != 2 {
		t.Errorf("Vars() = %v", ec.Vars())
	}
}

func TestDefaultContextProvider_Bindings(t *testing.T) {
	bus := &mockPublisher{}
	states := mockStates{"Light": types.Off, "Temp": 21.5}
	logger := &recordingLogger{}
	p := NewDefaultContextProvider(bus, states, logger)

	vars := p.GlobalContext(&Rule{Name: "evening"})
	if vars["ruleName"] != "evening" {
		t.Errorf("ruleName = %v", vars["ruleName"])
	}

	if _, err := binding(t, vars, "sendCommand")("Light", "ON"); err != nil {
		t.Fatalf("sendCommand error = %v", err)
	}
	if _, err := binding(t, vars, "postCommand")("Light", "50"); err != nil {
		t.Fatalf("postCommand error = %v", err)
	}
	if _, err := binding(t, vars, "postUpdate")("Temp", 22.0); err != nil {
		t.Fatalf("postUpdate error = %v", err)
	}

	want := []published{
		{"send", "Light", "ON"},
		{"post", "Light", 50.0},
		{"update", "Temp", 22.0},
	}
	if len(bus.calls) != len(want) {
		t.Fatalf("calls = %+v", bus.calls)
	}
	for i, w := range want {
		got := bus.calls[i]
		if got.fn != w.fn || got.item != w.item || !types.Equal(got.value, w.value) {
			t.Errorf("call[%d] = %+v, want %+v", i, got, w)
		}
	}

	v, err := binding(t, vars, "state")("Temp")
	if err != nil || v != 21.5 {
		t.Errorf("state(Temp) = %v, %v", v, err)
	}

	if _, err := binding(t, vars, "log")("hello", 3.0, true); err != nil {
		t.Fatalf("log error = %v", err)
	}
	if logger.count("info", "rule log") != 1 {
		t.Error("log binding did not log")
	}
}

func TestDefaultContextProvider_Errors(t *testing.T) {
	bus := &mockPublisher{}
	p := NewDefaultContextProvider(bus, mockStates{"Light": types.Off}, nil)
	vars := p.GlobalContext(&Rule{Name: "r"})

	tests := []struct {
		name string
		fn   string
		args []any
	}{
		{"unknown item", "sendCommand", []any{"Ghost", "ON"}},
		{"too few args", "postCommand", []any{"Light"}},
		{"non-string item", "postUpdate", []any{42.0, "ON"}},
		{"state arity", "state", nil},
		{"state non-string", "state", []any{1.0}},
		{"state unknown", "state", []any{"Ghost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := binding(t, vars, tt.fn)(tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}

	if len(bus.calls) != 0 {
		t.Errorf("failed calls reached the bus: %+v", bus.calls)
	}

	_, err := binding(t, vars, "sendCommand")("Ghost", "ON")
	if !errors.Is(err, item.ErrItemNotFound) {
		t.Errorf("error = %v, want ErrItemNotFound", err)
	}
}
