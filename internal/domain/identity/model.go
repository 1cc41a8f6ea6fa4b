package identity

import "time"

// ParentRole nombra la posición del padre/madre en el pedigrí.
// @Enum SIRE, DAM
type ParentRole string

const (
	RoleSire ParentRole = "SIRE"
	RoleDam  ParentRole = "DAM"
)

// IdentifierType tipifica identificadores externos.
// @Enum MICROCHIP, REGISTRY, DNA_PROFILE, TATTOO
type IdentifierType string

const (
	TypeMicrochip  IdentifierType = "MICROCHIP"
	TypeRegistry   IdentifierType = "REGISTRY"
	TypeDNAProfile IdentifierType = "DNA_PROFILE"
	TypeTattoo     IdentifierType = "TATTOO"
)

// GlobalIdentity es la identidad canónica de un animal físico,
// independiente de los registros privados de cada tenant.
// GAID es el código público inmutable.
type GlobalIdentity struct {
	ID   string
	GAID string

	Species string
	Sex     string
	Name    string

	BirthDate *time.Time

	// Referencias al pedigrí canónico. El grafo dam/sire debe
	// mantenerse acíclico; SetParent lo verifica al escribir.
	DamID  string
	SireID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identifier es un identificador externo aportado por un tenant.
// (Type, NormalizedValue) es único a nivel global: un valor nunca
// puede apuntar a dos identidades.
type Identifier struct {
	ID         string
	IdentityID string

	Type            IdentifierType
	RawValue        string
	NormalizedValue string

	// Confianza en [0,1]. Auto-reportado arranca en 1.0, inferido más bajo.
	Confidence float64

	VerifiedBy string
	VerifiedAt *time.Time

	// Provenance: qué tenant aportó el identificador (auditoría).
	SourceTenantID string

	CreatedAt time.Time
}
