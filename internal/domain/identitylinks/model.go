package identitylinks

import "time"

// Link ata el registro privado de un animal a una identidad global.
// Como máximo un link por animal; muchos animales (de distintos
// tenants) pueden apuntar a la misma identidad.
type Link struct {
	ID         string
	AnimalID   string
	IdentityID string

	Confidence float64
	MatchedOn  []string // tipos de identificador que matchearon

	// AutoMatched: lo produjo el matcher sin intervención humana.
	AutoMatched bool

	ConfirmedBy string
	ConfirmedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l Link) Confirmed() bool {
	return l.ConfirmedAt != nil
}
