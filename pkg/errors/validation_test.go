package errors

import (
	"strings"
	"testing"
)

func TestValidateDepartmentCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "montevideo", false},
		{"with dash", "cerro-largo", false},
		{"with underscore", "treinta_y_tres", false},
		{"digits", "d01", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"uppercase", "Montevideo", true},
		{"leading dash", "-rivera", true},
		{"trailing dash", "rivera-", true},
		{"path traversal", "../salto", true},
		{"space", "san jose", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDepartmentCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDepartmentCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidConfig) {
				t.Errorf("ValidateDepartmentCode(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidConfig)
			}
		})
	}
}

func TestValidateArtifactName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"odn", "odn.json", false},
		{"map", "montevideo_map.json", false},

		{"empty", "", true},
		{"with path /", "path/to/file", true},
		{"with path \\", "path\\to\\file", true},
		{"hidden file", ".odn.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifactName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifactName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "raw/montevideo/odn.csv", false},
		{"absolute", "/data/raw/salto.geojson", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 501), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
