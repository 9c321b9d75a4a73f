package errors

import (
	"strings"
	"testing"
)

func TestValidateDocumentPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"default", "world_model.json", false},
		{"nested", "models/plant.json", false},
		{"absolute", "/tmp/model.JSON", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 5000) + ".json", true},
		{"null byte", "foo\x00.json", true},
		{"wrong extension", "model.yaml", true},
		{"no extension", "model", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDocumentPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"plain", "Water Pump", false},
		{"multiline", "line one\nline two", false},
		{"tab", "a\tb", true},
		{"too long", strings.Repeat("x", 2000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateName(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateListenAddr(t *testing.T) {
	if err := ValidateListenAddr(":8080"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateListenAddr("localhost"); err == nil {
		t.Error("expected error for missing port")
	}
	if err := ValidateListenAddr(""); err == nil {
		t.Error("expected error for empty addr")
	}
}
