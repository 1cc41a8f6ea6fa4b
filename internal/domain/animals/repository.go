package animals

import "context"

type Repository interface {
	Create(ctx context.Context, a Animal) error
	Update(ctx context.Context, a Animal) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Animal, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Animal, error)
	ListByRegistry(ctx context.Context, org, number string) ([]Animal, error)
	ListByMicrochip(ctx context.Context, microchip string) ([]Animal, error)

	// Exchange codes: uno vigente por animal; guardar reemplaza el anterior.
	SaveExchangeCode(ctx context.Context, ec ExchangeCode) error
	GetExchangeCode(ctx context.Context, code string) (ExchangeCode, error)
}
