package identitylinks

import "context"

type Repository interface {
	Create(ctx context.Context, l Link) error
	Update(ctx context.Context, l Link) error
	GetByID(ctx context.Context, id string) (Link, error)
	GetByAnimal(ctx context.Context, animalID string) (Link, error)
	ListByIdentity(ctx context.Context, identityID string) ([]Link, error)
	Delete(ctx context.Context, id string) error
}
