package plans

import "context"

type Repository interface {
	Create(ctx context.Context, p Plan) error
	GetByID(ctx context.Context, id string) (Plan, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Plan, error)
}
