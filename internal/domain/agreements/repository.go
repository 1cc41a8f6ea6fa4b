package agreements

import "context"

type Repository interface {
	Create(ctx context.Context, a Agreement) error
	Update(ctx context.Context, a Agreement) error
	GetByID(ctx context.Context, id string) (Agreement, error)
	// GetByPlanAccess busca por la clave natural (plan, access).
	GetByPlanAccess(ctx context.Context, planID, accessID string) (Agreement, error)
	ListByPlan(ctx context.Context, planID string) ([]Agreement, error)
}
