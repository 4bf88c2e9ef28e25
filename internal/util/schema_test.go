package util

import "testing"

func TestValidateArguments(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city":  map[string]any{"type": "string"},
			"days":  map[string]any{"type": "integer"},
			"exact": map[string]any{"type": "boolean"},
		},
		"required": []string{"city"},
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"city": "Berlin", "days": 3}, false},
		{"missing required", map[string]any{"days": 3}, true},
		{"wrong type", map[string]any{"city": 42}, true},
		{"json number as integer", map[string]any{"city": "Berlin", "days": float64(3)}, false},
		{"fractional as integer", map[string]any{"city": "Berlin", "days": 3.5}, true},
		{"extra field allowed", map[string]any{"city": "Berlin", "units": "metric"}, false},
		{"bool", map[string]any{"city": "Berlin", "exact": true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArguments(tt.args, schema)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArguments() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArgumentsRequiredAsAny(t *testing.T) {
	// Schemas decoded from JSON carry required as []any.
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []any{"path"},
	}
	if err := ValidateArguments(map[string]any{}, schema); err == nil {
		t.Error("expected error for missing required field")
	}
	if err := ValidateArguments(map[string]any{"path": "a.md"}, schema); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreateSchema(t *testing.T) {
	type params struct {
		City    string `json:"city" description:"City name"`
		Days    int    `json:"days,omitempty"`
		Skipped string `json:"-"`
	}
	schema := CreateSchema(params{})

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", schema)
	}
	if _, exists := props["city"]; !exists {
		t.Error("city property missing")
	}
	if _, exists := props["Skipped"]; exists {
		t.Error("json:\"-\" field included")
	}
	citySchema := props["city"].(map[string]any)
	if citySchema["description"] != "City name" {
		t.Errorf("description = %v", citySchema["description"])
	}

	required, _ := schema["required"].([]string)
	if len(required) != 1 || required[0] != "city" {
		t.Errorf("required = %v, want [city]", required)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("abcdef", 0); got != "abcdef" {
		t.Errorf("Truncate disabled = %q", got)
	}
	got := Truncate("abcdefghij", 4)
	if got != "abcd... [truncated 6 chars]" {
		t.Errorf("Truncate = %q", got)
	}
}
