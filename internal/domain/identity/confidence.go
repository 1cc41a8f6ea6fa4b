package identity

// Peso base por tipo de identificador. Un chip o un perfil de ADN
// identifican casi sin ambigüedad; un tatuaje mucho menos.
var typeWeight = map[IdentifierType]float64{
	TypeDNAProfile: 0.98,
	TypeMicrochip:  0.95,
	TypeRegistry:   0.85,
	TypeTattoo:     0.70,
}

// AutoMatchThreshold separa el match automático de la confirmación
// manual: por debajo, el link queda como propuesta a confirmar.
const AutoMatchThreshold = 0.90

// CombinedConfidence es una función pura y determinista del conjunto de
// identificadores: re-calcular tras agregar uno nuevo da lo mismo que
// calcular desde cero (no hay acumulador mutable).
//
// Fórmula: 1 - Π(1 - w_t · c_t), con un solo término por tipo (el de
// mayor w·c). Es conmutativa, así que el orden de los identificadores
// no afecta el resultado.
func CombinedConfidence(ids []Identifier) float64 {
	best := map[IdentifierType]float64{}
	for _, id := range ids {
		w, ok := typeWeight[id.Type]
		if !ok {
			continue
		}
		c := id.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		if wc := w * c; wc > best[id.Type] {
			best[id.Type] = wc
		}
	}

	miss := 1.0
	for _, wc := range best {
		miss *= 1 - wc
	}
	return 1 - miss
}
