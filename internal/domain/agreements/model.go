package agreements

import "time"

// Role del animal compartido dentro del plan de cría.
// @Enum SIRE, DAM
type Role string

const (
	RoleSire Role = "SIRE"
	RoleDam  Role = "DAM"
)

// Status del agreement; APPROVED/REJECTED son terminales.
// @Enum PENDING, APPROVED, REJECTED, EXPIRED
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Agreement es la segunda compuerta, más angosta: visibilidad básica
// no implica consentimiento para compartir el detalle genético/de salud
// de UN plan de cría. Se apoya en un AnimalAccess ACTIVO existente.
// Único por (plan, access): pedir de nuevo actualiza la fila.
type Agreement struct {
	ID string

	PlanID   string
	AccessID string
	Role     Role

	Message string
	Status  Status

	RequestedBy string
	RespondedBy string
	RespondedAt *time.Time

	// Expiración lazy sobre PENDING.
	ExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus con la expiración aplicada al leer.
func EffectiveStatus(a Agreement, now time.Time) Status {
	if a.Status == StatusPending && !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt) {
		return StatusExpired
	}
	return a.Status
}
