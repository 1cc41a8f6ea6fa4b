package identity

import "testing"

func TestNormalize_PerType(t *testing.T) {
	cases := []struct {
		typ  IdentifierType
		in   string
		want string
	}{
		{TypeMicrochip, "985-112-000123456", "985112000123456"},
		{TypeMicrochip, " 985 112 000123456 ", "985112000123456"},
		{TypeDNAProfile, "dna:ab-12-cd", "DNAAB12CD"},
		{TypeTattoo, "ab 123", "AB123"},
		{TypeRegistry, "  fci   loe-123456 ", "FCI LOE-123456"},
		{TypeRegistry, "FCI LOE-123456", "FCI LOE-123456"},
	}

	for _, c := range cases {
		got := Normalize(c.typ, c.in)
		if got != c.want {
			t.Errorf("Normalize(%s, %q) = %q, want %q", c.typ, c.in, got, c.want)
		}
		// Normalizar dos veces no cambia nada.
		if again := Normalize(c.typ, got); again != got {
			t.Errorf("Normalize not idempotent for (%s, %q): %q -> %q", c.typ, c.in, got, again)
		}
	}
}

func TestCombinedConfidence_DeterministicAndBounded(t *testing.T) {
	chip := Identifier{Type: TypeMicrochip, Confidence: 1.0}
	reg := Identifier{Type: TypeRegistry, Confidence: 1.0}

	a := CombinedConfidence([]Identifier{chip, reg})
	b := CombinedConfidence([]Identifier{reg, chip})
	if a != b {
		t.Fatalf("order must not matter: %v vs %v", a, b)
	}
	if a <= 0 || a > 1 {
		t.Fatalf("confidence out of range: %v", a)
	}

	// Más evidencia nunca baja la confianza.
	alone := CombinedConfidence([]Identifier{reg})
	if a < alone {
		t.Fatalf("adding a microchip lowered confidence: %v < %v", a, alone)
	}

	// Chip verificado alcanza el umbral de auto-match; registry solo, no.
	if CombinedConfidence([]Identifier{chip}) < AutoMatchThreshold {
		t.Fatalf("microchip at 1.0 should reach auto-match threshold")
	}
	if alone >= AutoMatchThreshold {
		t.Fatalf("registry alone should stay below auto-match threshold, got %v", alone)
	}
}
