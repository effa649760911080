package item

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// itemsFile is the YAML layout accepted by Import:
//
//	items:
//	  - name: HallLight
//	    label: Hall light
//	    type: switch
//	    protocol: knx
//	    address: "1/0/1"
//	    tags: [lighting]
type itemsFile struct {
	Items []Definition `yaml:"items"`
}

// ParseDefinitions decodes and validates a YAML list of item definitions.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var f itemsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing items: %w", err)
	}

	seen := make(map[string]bool, len(f.Items))
	for i := range f.Items {
		d := &f.Items[i]
		if err := ValidateDefinition(d); err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, d.Name, err)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("item %d: %w: duplicate name %q", i, ErrInvalidItem, d.Name)
		}
		seen[d.Name] = true
	}
	return f.Items, nil
}

// Import creates new items and updates existing ones.
func (r *Registry) Import(ctx context.Context, defs []Definition) (created, updated int, err error) {
	for i := range defs {
		d := defs[i].DeepCopy()

		_, getErr := r.GetItem(d.Name)
		switch {
		case getErr == nil:
			if _, err := r.UpdateItem(ctx, d); err != nil {
				return created, updated, fmt.Errorf("updating %s: %w", d.Name, err)
			}
			updated++
		case errors.Is(getErr, ErrItemNotFound):
			if _, err := r.CreateItem(ctx, d); err != nil {
				return created, updated, fmt.Errorf("creating %s: %w", d.Name, err)
			}
			created++
		default:
			return created, updated, getErr
		}
	}
	return created, updated, nil
}

// ImportFile parses the YAML file at path and imports its items.
func (r *Registry) ImportFile(ctx context.Context, path string) (created, updated int, err error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the operator
	if err != nil {
		return 0, 0, fmt.Errorf("reading items: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return 0, 0, err
	}
	return r.Import(ctx, defs)
}
