package utils

import "testing"

func TestNormalizeString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Gestión", "gestion"},
		{"Álvaro Müller", "alvaro muller"},
		{"Straße", "strasse"},
		{"FRANÇAIS", "francais"},
		{"plain ascii", "plain ascii"},
	}
	for _, tt := range tests {
		if got := NormalizeString(tt.input); got != tt.want {
			t.Errorf("NormalizeString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFuzzyMatchAccentInsensitive(t *testing.T) {
	if !FuzzyMatch("Gestión de Proyectos", "gestion") {
		t.Error("accented target should match unaccented query")
	}
	if !FuzzyMatch("Gestion de Proyectos", "gestión") {
		t.Error("accented query should match unaccented target")
	}
}

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		name   string
		target string
		query  string
		want   bool
	}{
		{"exact", "Sales Pipeline", "Sales Pipeline", true},
		{"substring", "Sales Pipeline", "pipe", true},
		{"case insensitive", "Sales Pipeline", "SALES", true},
		{"typo within distance", "Sales Pipeline", "pipline", true},
		{"tokens out of order", "Sales Pipeline", "pipeline sales", true},
		{"one token misses", "Sales Pipeline", "sales inventory", false},
		{"unrelated", "Sales Pipeline", "marketing", false},
		{"empty query", "Sales Pipeline", "", false},
		{"short token one edit", "Bug Log", "lug", true},
		{"short token two edits", "Bug Log", "lud", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FuzzyMatch(tt.target, tt.query); got != tt.want {
				t.Errorf("FuzzyMatch(%q, %q) = %v, want %v", tt.target, tt.query, got, tt.want)
			}
		})
	}
}

func TestComputeDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		if got := ComputeDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("ComputeDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
