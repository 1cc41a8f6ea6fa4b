package access

import "time"

// Tier es un conjunto de capacidades, no una escalera: BASIC está
// implícito en cualquier tier superior; GENETICS, LINEAGE y HEALTH son
// facetas independientes que FULL implica en conjunto. Los callers
// preguntan por faceta (HasFacet), nunca comparan ordinalmente.
// @Enum BASIC, GENETICS, LINEAGE, HEALTH, FULL
type Tier string

const (
	TierBasic    Tier = "BASIC"
	TierGenetics Tier = "GENETICS"
	TierLineage  Tier = "LINEAGE"
	TierHealth   Tier = "HEALTH"
	TierFull     Tier = "FULL"
)

type Facet string

const (
	FacetGenetics Facet = "GENETICS"
	FacetLineage  Facet = "LINEAGE"
	FacetHealth   Facet = "HEALTH"
)

// Facets devuelve las facetas que un tier habilita (BASIC: ninguna,
// pero siempre la visibilidad base).
func Facets(t Tier) []Facet {
	switch t {
	case TierGenetics:
		return []Facet{FacetGenetics}
	case TierLineage:
		return []Facet{FacetLineage}
	case TierHealth:
		return []Facet{FacetHealth}
	case TierFull:
		return []Facet{FacetGenetics, FacetLineage, FacetHealth}
	default:
		return nil
	}
}

func HasFacet(t Tier, f Facet) bool {
	for _, have := range Facets(t) {
		if have == f {
			return true
		}
	}
	return false
}

// CombineTiers: el tier nombrado más chico que cubre la unión de
// facetas de ambos. Dos facetas distintas solo las cubre FULL.
func CombineTiers(a, b Tier) Tier {
	if a == b {
		return a
	}
	set := map[Facet]struct{}{}
	for _, f := range Facets(a) {
		set[f] = struct{}{}
	}
	for _, f := range Facets(b) {
		set[f] = struct{}{}
	}
	switch len(set) {
	case 0:
		return TierBasic
	case 1:
		for f := range set {
			return Tier(f)
		}
	}
	return TierFull
}

func ValidTier(t Tier) bool {
	switch t {
	case TierBasic, TierGenetics, TierLineage, TierHealth, TierFull:
		return true
	}
	return false
}

// Source: qué flujo externo originó el grant.
// @Enum INQUIRY, QR_SCAN, SHARE_CODE, BREEDING_AGREEMENT
type Source string

const (
	SourceInquiry           Source = "INQUIRY"
	SourceQRScan            Source = "QR_SCAN"
	SourceShareCode         Source = "SHARE_CODE"
	SourceBreedingAgreement Source = "BREEDING_AGREEMENT"
)

func ValidSource(s Source) bool {
	switch s {
	case SourceInquiry, SourceQRScan, SourceShareCode, SourceBreedingAgreement:
		return true
	}
	return false
}

// Status del grant.
// @Enum ACTIVE, EXPIRED, REVOKED, OWNER_DELETED
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusExpired      Status = "EXPIRED"
	StatusRevoked      Status = "REVOKED"
	StatusOwnerDeleted Status = "OWNER_DELETED"
)

// Grant es la capability de un tenant para ver el animal de otro.
// Único por (animal, accessor): re-otorgar actualiza, nunca duplica.
type Grant struct {
	ID string

	AnimalID         string
	OwnerTenantID    string
	AccessorTenantID string

	Tier   Tier
	Source Source
	Status Status

	ExpiresAt *time.Time

	// Snapshot del animal al momento del grant, para que las
	// referencias sigan siendo legibles tras ediciones posteriores.
	AnimalName    string
	AnimalSpecies string
	AnimalSex     string

	RevokedBy string
	RevokedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShareCodeStatus.
// @Enum ACTIVE, EXPIRED, REVOKED, MAX_USES_REACHED
type ShareCodeStatus string

const (
	CodeActive         ShareCodeStatus = "ACTIVE"
	CodeExpired        ShareCodeStatus = "EXPIRED"
	CodeRevoked        ShareCodeStatus = "REVOKED"
	CodeMaxUsesReached ShareCodeStatus = "MAX_USES_REACHED"
)

// ShareCode agrupa varios animales bajo un código canjeable: tier
// default con overrides por animal, expiración opcional y tope de
// canjes opcional.
type ShareCode struct {
	ID   string
	Code string

	OwnerTenantID string
	DefaultTier   Tier

	AnimalIDs     []string
	TierOverrides map[string]Tier // animalID -> tier

	ExpiresAt *time.Time
	MaxUses   int // 0 = sin tope
	UsesCount int

	Status ShareCodeStatus

	RevokedBy string
	RevokedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus del grant con la expiración aplicada al leer:
// función pura sobre el estado persistido, igual en todos los call
// sites. Un job externo materializa periódicamente el resultado.
func EffectiveStatus(g Grant, now time.Time) Status {
	if g.Status == StatusActive && g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
		return StatusExpired
	}
	return g.Status
}

// EffectiveCodeStatus, misma idea para share codes.
func EffectiveCodeStatus(c ShareCode, now time.Time) ShareCodeStatus {
	if c.Status == CodeActive && c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return CodeExpired
	}
	return c.Status
}
