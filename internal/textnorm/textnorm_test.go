package textnorm

import "testing"

func TestCollapse(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"a  b\n\tc", "a b c"},
		{"  Item 1.\n Business  ", "Item 1. Business"},
	}
	for _, tt := range tests {
		if got := Collapse(tt.in); got != tt.want {
			t.Errorf("Collapse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"nbsp", "Risk\u00a0Factors", "Risk Factors"},
		{"zero width space", "Risk\u200bFactors", "Risk Factors"},
		{"joiners and bom", "\ufeffOver\u200cview\u200d", "Over view"},
		{"plain", "  Overview \n", "Overview"},
		{"composed", "Cafe\u0301", "Caf\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
