package animals

import "time"

// Species define las especies soportadas por la plataforma.
// @Enum dog, cat, horse
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesHorse Species = "horse"
)

// Sex define el sexo del animal.
// @Enum male, female, unknown
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// Animal es el registro privado de un criadero (tenant).
// Varios tenants pueden tener registros independientes del mismo animal
// físico; la resolución de identidad vive en el módulo identity.
type Animal struct {
	ID       string
	TenantID string

	Name    string
	Species string // dog, cat, horse
	Breed   string
	Sex     string // male, female, unknown

	BirthDate *time.Time

	Microchip      string
	RegistryOrg    string // p.ej. FCI, AKC
	RegistryNumber string

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExchangeCode es un código corto, ligado a un animal, para vincular
// identidad fuera de banda (impreso en papeles de venta, etc.).
// Independiente del GAID: expira por sí solo.
type ExchangeCode struct {
	Code     string
	AnimalID string
	TenantID string

	ExpiresAt time.Time
	CreatedAt time.Time
}
