package access

import (
	"testing"
	"time"
)

func TestFacets(t *testing.T) {
	cases := []struct {
		tier Tier
		want []Facet
	}{
		{TierBasic, nil},
		{TierGenetics, []Facet{FacetGenetics}},
		{TierLineage, []Facet{FacetLineage}},
		{TierHealth, []Facet{FacetHealth}},
		{TierFull, []Facet{FacetGenetics, FacetLineage, FacetHealth}},
	}
	for _, c := range cases {
		got := Facets(c.tier)
		if len(got) != len(c.want) {
			t.Fatalf("Facets(%s) = %v, want %v", c.tier, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("Facets(%s) = %v, want %v", c.tier, got, c.want)
			}
		}
	}
}

func TestHasFacet(t *testing.T) {
	if HasFacet(TierBasic, FacetGenetics) {
		t.Fatalf("BASIC no habilita GENETICS")
	}
	if !HasFacet(TierGenetics, FacetGenetics) {
		t.Fatalf("GENETICS habilita GENETICS")
	}
	if HasFacet(TierGenetics, FacetHealth) {
		t.Fatalf("GENETICS no habilita HEALTH")
	}
	for _, f := range []Facet{FacetGenetics, FacetLineage, FacetHealth} {
		if !HasFacet(TierFull, f) {
			t.Fatalf("FULL habilita %s", f)
		}
	}
}

func TestCombineTiers(t *testing.T) {
	cases := []struct {
		a, b, want Tier
	}{
		{TierBasic, TierBasic, TierBasic},
		{TierBasic, TierGenetics, TierGenetics},
		{TierGenetics, TierBasic, TierGenetics},
		{TierGenetics, TierGenetics, TierGenetics},
		// Dos facetas distintas solo las cubre FULL.
		{TierGenetics, TierLineage, TierFull},
		{TierHealth, TierLineage, TierFull},
		{TierFull, TierBasic, TierFull},
		{TierFull, TierHealth, TierFull},
	}
	for _, c := range cases {
		if got := CombineTiers(c.a, c.b); got != c.want {
			t.Fatalf("CombineTiers(%s, %s) = %s, want %s", c.a, c.b, got, c.want)
		}
		// Conmutativa.
		if got := CombineTiers(c.b, c.a); got != c.want {
			t.Fatalf("CombineTiers(%s, %s) = %s, want %s", c.b, c.a, got, c.want)
		}
	}
}

func TestEffectiveStatusLazyExpiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	g := Grant{Status: StatusActive, ExpiresAt: &later}
	if got := EffectiveStatus(g, now); got != StatusActive {
		t.Fatalf("antes de vencer = %s, want ACTIVE", got)
	}
	if got := EffectiveStatus(g, later); got != StatusExpired {
		t.Fatalf("al vencer = %s, want EXPIRED", got)
	}

	// Estados terminales no se tocan.
	g.Status = StatusRevoked
	if got := EffectiveStatus(g, later.Add(time.Hour)); got != StatusRevoked {
		t.Fatalf("REVOKED vencido = %s, want REVOKED", got)
	}

	// Sin expiración no vence nunca.
	g = Grant{Status: StatusActive}
	if got := EffectiveStatus(g, later.AddDate(10, 0, 0)); got != StatusActive {
		t.Fatalf("sin ExpiresAt = %s, want ACTIVE", got)
	}
}

func TestEffectiveCodeStatusLazyExpiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	c := ShareCode{Status: CodeActive, ExpiresAt: &later}
	if got := EffectiveCodeStatus(c, now); got != CodeActive {
		t.Fatalf("antes de vencer = %s, want ACTIVE", got)
	}
	if got := EffectiveCodeStatus(c, later); got != CodeExpired {
		t.Fatalf("al vencer = %s, want EXPIRED", got)
	}

	c.Status = CodeMaxUsesReached
	if got := EffectiveCodeStatus(c, later); got != CodeMaxUsesReached {
		t.Fatalf("MAX_USES_REACHED vencido = %s, want MAX_USES_REACHED", got)
	}
}
