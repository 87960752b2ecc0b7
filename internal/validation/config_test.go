package validation

import "testing"

func TestNormalizeConfigID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"already normalized", "PST01", "PST01", false},
		{"lowercase uppercased", "pst01", "PST01", false},
		{"surrounding whitespace", "  next01 ", "NEXT01", false},
		{"letters only", "AMC", "AMC", false},
		{"digits only", "01", "01", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"hyphen rejected", "PST-01", "", true},
		{"interior space rejected", "PST 01", "", true},
		{"underscore rejected", "PST_01", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeConfigID(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeConfigID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeConfigID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateThreshold(t *testing.T) {
	if err := ValidateThreshold("min impressions", 0); err != nil {
		t.Errorf("zero rejected: %v", err)
	}
	if err := ValidateThreshold("min clicks", 250); err != nil {
		t.Errorf("positive rejected: %v", err)
	}
	if err := ValidateThreshold("min impressions", -1); err == nil {
		t.Error("negative accepted")
	}
}
