package identity

import "strings"

// Normalize canonicaliza el valor crudo de un identificador antes de
// cualquier lookup por (type, normalizedValue). Es idempotente:
// Normalize(t, Normalize(t, v)) == Normalize(t, v).
func Normalize(t IdentifierType, raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))

	switch t {
	case TypeMicrochip, TypeDNAProfile, TypeTattoo:
		// Chips y perfiles se transcriben con separadores arbitrarios
		// (985.112.003.456.789, 985 112003456789): quedan solo alnum.
		return stripNonAlnum(v)
	case TypeRegistry:
		// Códigos de registro conservan espacios internos pero en
		// una sola corrida (p.ej. "LOF  3 POI 123" -> "LOF 3 POI 123").
		return collapseSpaces(v)
	default:
		return collapseSpaces(v)
	}
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
