package postgres

import (
	"context"
	"database/sql"
	"strings"

	"breeder-exchange/internal/domain/plans"
)

type PlansRepo struct {
	db *sql.DB
}

func NewPlansRepo(db *sql.DB) *PlansRepo {
	return &PlansRepo{db: db}
}

func (r *PlansRepo) Create(ctx context.Context, p plans.Plan) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO breeding_plans (id, tenant_id, name, sire_id, dam_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		p.ID,
		p.TenantID,
		p.Name,
		p.SireID,
		p.DamID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PlansRepo) GetByID(ctx context.Context, id string) (plans.Plan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return plans.Plan{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, sire_id, dam_id, created_at, updated_at
		FROM breeding_plans
		WHERE id = $1
	`, id)

	var p plans.Plan
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.SireID, &p.DamID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return plans.Plan{}, ErrNotFound
		}
		return plans.Plan{}, err
	}

	return p, nil
}

func (r *PlansRepo) ListByTenant(ctx context.Context, tenantID string) ([]plans.Plan, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, sire_id, dam_id, created_at, updated_at
		FROM breeding_plans
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]plans.Plan, 0)
	for rows.Next() {
		var p plans.Plan
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.SireID, &p.DamID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}
