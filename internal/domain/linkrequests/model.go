package linkrequests

import "time"

// ParentRole nombra qué lugar ocupa el target en el pedigrí del hijo.
// @Enum SIRE, DAM
type ParentRole string

const (
	RoleSire ParentRole = "SIRE"
	RoleDam  ParentRole = "DAM"
)

// RequestStatus es la máquina de estados del pedido.
// PENDING -> APPROVED | DENIED | EXPIRED; REVOKED cuando el link
// resultante se revoca después.
// @Enum PENDING, APPROVED, DENIED, EXPIRED, REVOKED
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusDenied   RequestStatus = "DENIED"
	StatusExpired  RequestStatus = "EXPIRED"
	StatusRevoked  RequestStatus = "REVOKED"
)

// TargetMode discrimina el modo de direccionamiento del pedido.
// Exactamente uno; el resolver hace switch exhaustivo sobre esto
// en vez de chequear cuatro campos nullable.
// @Enum TARGET_ANIMAL, GAID, EXCHANGE_CODE, REGISTRY
type TargetMode string

const (
	ModeTargetAnimal TargetMode = "TARGET_ANIMAL"
	ModeGAID         TargetMode = "GAID"
	ModeExchangeCode TargetMode = "EXCHANGE_CODE"
	ModeRegistry     TargetMode = "REGISTRY"
)

// LinkMethod registra cómo se estableció el edge.
// @Enum GAID, EXCHANGE_CODE, REGISTRY_MATCH, MICROCHIP_MATCH, BREEDER_REQUEST, OFFSPRING_DERIVED
type LinkMethod string

const (
	MethodGAID             LinkMethod = "GAID"
	MethodExchangeCode     LinkMethod = "EXCHANGE_CODE"
	MethodRegistryMatch    LinkMethod = "REGISTRY_MATCH"
	MethodMicrochipMatch   LinkMethod = "MICROCHIP_MATCH"
	MethodBreederRequest   LinkMethod = "BREEDER_REQUEST"
	MethodOffspringDerived LinkMethod = "OFFSPRING_DERIVED"
)

// TargetRef es la variante etiquetada de direccionamiento: según Mode
// aplica un solo grupo de campos.
type TargetRef struct {
	Mode TargetMode

	AnimalID       string // TARGET_ANIMAL
	GAID           string // GAID
	ExchangeCode   string // EXCHANGE_CODE
	RegistryOrg    string // REGISTRY
	RegistryNumber string // REGISTRY
}

// Request propone que el animal del requester tiene un padre/madre
// en otro tenant. El candidato se resuelve antes de escribir estado.
type Request struct {
	ID string

	RequesterTenantID string
	RequesterUserID   string

	// El hijo (animal del requester).
	AnimalID string
	Role     ParentRole

	Target  TargetRef
	Message string

	Status RequestStatus

	// Candidato resuelto en el submit.
	TargetTenantID string
	TargetAnimalID string

	// Target confirmado al aprobar.
	ConfirmedAnimalID string

	RespondedBy string
	RespondedAt *time.Time
	DenyReason  string

	// Expiración lazy: se evalúa al leer, no hay sweep de fondo.
	ExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CrossTenantLink es el edge durable y revocable producido por un
// pedido aprobado (u otro método de vinculación).
// Invariante: a lo sumo un link activo por (hijo, rol).
type CrossTenantLink struct {
	ID string

	ChildAnimalID string
	ChildTenantID string

	ParentAnimalID string
	ParentTenantID string

	Role   ParentRole
	Method LinkMethod

	// Pedido que lo originó, si aplica.
	RequestID string

	Active    bool
	RevokedBy string
	RevokedAt *time.Time

	CreatedAt time.Time
}

// EffectiveStatus es el status con la expiración aplicada: función
// pura sobre el estado persistido, para que todos los call sites
// computen "¿sigue pendiente?" igual.
func EffectiveStatus(r Request, now time.Time) RequestStatus {
	if r.Status == StatusPending && !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt) {
		return StatusExpired
	}
	return r.Status
}
