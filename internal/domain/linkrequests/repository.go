package linkrequests

import (
	"context"
	"time"
)

type Repository interface {
	CreateRequest(ctx context.Context, r Request) error
	UpdateRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, id string) (Request, error)
	ListByRequester(ctx context.Context, tenantID string) ([]Request, error)
	ListByTargetTenant(ctx context.Context, tenantID string) ([]Request, error)

	// CreateLink falla con ErrDuplicateActiveLink si ya existe un link
	// activo para (child, role).
	CreateLink(ctx context.Context, l CrossTenantLink) error
	UpdateLink(ctx context.Context, l CrossTenantLink) error
	GetLink(ctx context.Context, id string) (CrossTenantLink, error)
	GetActiveLink(ctx context.Context, childAnimalID string, role ParentRole) (CrossTenantLink, error)
	ListLinksByAnimal(ctx context.Context, animalID string) ([]CrossTenantLink, error)

	// ApproveAndLink persiste la aprobación y crea el link como una
	// sola operación todo-o-nada: si el link choca con uno activo,
	// el pedido queda PENDING como estaba.
	ApproveAndLink(ctx context.Context, r Request, l CrossTenantLink) error

	// ExpireRequestsBefore materializa EXPIRED en pedidos PENDING ya
	// vencidos. Idempotente; devuelve cuántos tocó.
	ExpireRequestsBefore(ctx context.Context, now time.Time) (int, error)
}
