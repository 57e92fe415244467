package agent

import (
	"context"
	"errors"
	"testing"

	"neograph/pkg/codegraph"
)

func TestRegistryUnknownCapability(t *testing.T) {
	reg := newTestRegistry(&stubStore{})

	_, err := reg.Execute(context.Background(), "drop_tables", map[string]any{})
	if !errors.Is(err, ErrUnknownCapability) {
		t.Errorf("expected ErrUnknownCapability, got %v", err)
	}
}

func TestRegistryMissingRequiredField(t *testing.T) {
	reg := newTestRegistry(&stubStore{})

	tests := []struct {
		name  string
		input map[string]any
	}{
		{CapRawQuery, map[string]any{}},
		{CapRawQuery, map[string]any{"query": 7}},
		{CapFindFunction, map[string]any{}},
		{CapBlastRadius, map[string]any{"depth": 3.0}},
		{CapBlastRadius, map[string]any{"name": "f", "depth": "three"}},
	}
	for _, tt := range tests {
		if _, err := reg.Execute(context.Background(), tt.name, tt.input); !errors.Is(err, ErrInvalidArguments) {
			t.Errorf("%s with %v: expected ErrInvalidArguments, got %v", tt.name, tt.input, err)
		}
	}
}

func TestRegistryRawQueryAbsorbsStoreFault(t *testing.T) {
	reg := newTestRegistry(&stubStore{rowErr: errors.New("relation does not exist")})

	payload, err := reg.Execute(context.Background(), CapRawQuery, map[string]any{"query": "SELECT nope"})
	if err != nil {
		t.Fatalf("raw_query must absorb execution faults, got %v", err)
	}
	rows, ok := payload.([]map[string]any)
	if !ok || len(rows) != 1 || rows[0]["error"] == nil {
		t.Errorf("expected a single error row, got %v", payload)
	}
}

func TestRegistryBlastRadiusNotFound(t *testing.T) {
	reg := newTestRegistry(&stubStore{})

	payload, err := reg.Execute(context.Background(), CapBlastRadius, map[string]any{"name": "ghost"})
	if err != nil {
		t.Fatalf("not-found must be a structured payload, got error %v", err)
	}
	record, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("expected a map payload, got %T", payload)
	}
	if record["function"] != "ghost" || record["error"] == nil {
		t.Errorf("unexpected not-found record: %v", record)
	}
}

func TestRegistrySchemasCoverCapabilitySet(t *testing.T) {
	schemas := newTestRegistry(&stubStore{}).Schemas()

	want := map[string]bool{CapRawQuery: false, CapFindFunction: false, CapBlastRadius: false}
	for _, tool := range schemas {
		if _, ok := want[tool.Name]; !ok {
			t.Errorf("unexpected capability %q", tool.Name)
		}
		want[tool.Name] = true
		if tool.Parameters["type"] != "object" {
			t.Errorf("%s: parameters must be an object schema", tool.Name)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("capability %q missing from schemas", name)
		}
	}
}

var _ codegraph.Store = (*stubStore)(nil)
