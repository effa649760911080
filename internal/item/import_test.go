package item

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const itemsYAML = `
items:
  - name: HallLight
    label: Hall light
    type: switch
    protocol: knx
    address: "1/0/1"
    tags: [lighting]
  - name: Presence
    type: switch
    protocol: virtual
`

func TestParseDefinitions(t *testing.T) {
	defs, err := ParseDefinitions([]byte(itemsYAML))
	if err != nil {
		t.Fatalf("ParseDefinitions() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}
	if defs[0].Name != "HallLight" || defs[0].Address != "1/0/1" || defs[0].Tags[0] != "lighting" {
		t.Errorf("defs[0] = %+v", defs[0])
	}
	if defs[1].Protocol != ProtocolVirtual {
		t.Errorf("defs[1].Protocol = %s", defs[1].Protocol)
	}
}

func TestParseDefinitions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "invalid type",
			yaml:    "items:\n  - {name: A, type: toaster, protocol: virtual}\n",
			wantErr: ErrInvalidType,
		},
		{
			name:    "duplicate",
			yaml:    "items:\n  - {name: A, type: switch, protocol: virtual}\n  - {name: A, type: switch, protocol: virtual}\n",
			wantErr: ErrInvalidItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDefinitions([]byte(tt.yaml)); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseDefinitions() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := ParseDefinitions([]byte("items: [")); err == nil {
		t.Error("ParseDefinitions() accepted malformed YAML")
	}
}

func TestRegistry_Import(t *testing.T) {
	reg, _, _ := setupRegistry(t, testDefinition("HallLight"))
	defs, err := ParseDefinitions([]byte(itemsYAML))
	if err != nil {
		t.Fatalf("ParseDefinitions() error = %v", err)
	}

	created, updated, err := reg.Import(context.Background(), defs)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if created != 1 || updated != 1 {
		t.Errorf("created=%d updated=%d, want 1 and 1", created, updated)
	}
	if it, _ := reg.GetItem("HallLight"); it.Label() != "Hall light" {
		t.Errorf("HallLight label = %q after import", it.Label())
	}
}

func TestRegistry_ImportFile(t *testing.T) {
	reg, _, _ := setupRegistry(t)
	path := filepath.Join(t.TempDir(), "items.yaml")
	if err := os.WriteFile(path, []byte(itemsYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	created, updated, err := reg.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if created != 2 || updated != 0 {
		t.Errorf("created=%d updated=%d, want 2 and 0", created, updated)
	}

	if _, _, err := reg.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("ImportFile() should fail for a missing file")
	}
}
