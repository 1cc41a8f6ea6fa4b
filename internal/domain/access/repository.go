package access

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateGrant: el insert chocó con la unicidad (animal, accessor).
// El service lo trata como "otro writer ganó" y reintenta como update.
var ErrDuplicateGrant = errors.New("duplicate grant")

type Repository interface {
	CreateGrant(ctx context.Context, g Grant) error
	UpdateGrant(ctx context.Context, g Grant) error
	GetGrant(ctx context.Context, id string) (Grant, error)
	GetGrantByAnimalAccessor(ctx context.Context, animalID, accessorTenantID string) (Grant, error)
	ListGrantsByAnimal(ctx context.Context, animalID string) ([]Grant, error)
	ListGrantsByAccessor(ctx context.Context, accessorTenantID string) ([]Grant, error)

	CreateShareCode(ctx context.Context, c ShareCode) error
	UpdateShareCode(ctx context.Context, c ShareCode) error
	GetShareCode(ctx context.Context, id string) (ShareCode, error)
	GetShareCodeByCode(ctx context.Context, code string) (ShareCode, error)
	ListShareCodesByOwner(ctx context.Context, ownerTenantID string) ([]ShareCode, error)

	// ConsumeAndApplyGrants incrementa el contador y aplica los grants
	// del paquete como una sola unidad: o se consume el uso y quedan
	// todos los grants, o no pasa nada. Marca MAX_USES_REACHED al
	// agotarse; ErrCodeExhausted si ya no quedan usos.
	ConsumeAndApplyGrants(ctx context.Context, id string, now time.Time, grants []Grant) (ShareCode, error)

	// Materializan el status computado. Idempotentes.
	ExpireGrantsBefore(ctx context.Context, now time.Time) (int, error)
	ExpireShareCodesBefore(ctx context.Context, now time.Time) (int, error)
}
