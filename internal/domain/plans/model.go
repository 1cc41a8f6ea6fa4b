package plans

import "time"

// Plan es el registro mínimo de un plan de cría. La gestión del plan
// (ciclos, resultados, camadas) vive en el servicio de breeding-plan;
// acá solo se guarda lo que los agreements necesitan referenciar.
type Plan struct {
	ID       string
	TenantID string

	Name   string
	SireID string // animal local del tenant, opcional
	DamID  string // animal local del tenant, opcional

	CreatedAt time.Time
	UpdatedAt time.Time
}
