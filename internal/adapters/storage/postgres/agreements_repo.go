package postgres

import (
	"context"
	"database/sql"
	"strings"

	"breeder-exchange/internal/domain/agreements"
)

type AgreementsRepo struct {
	db *sql.DB
}

func NewAgreementsRepo(db *sql.DB) *AgreementsRepo {
	return &AgreementsRepo{db: db}
}

const agreementColumns = `
	id, plan_id, access_id, role, message, status,
	requested_by, responded_by, responded_at,
	expires_at, created_at, updated_at
`

func (r *AgreementsRepo) Create(ctx context.Context, a agreements.Agreement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO breeding_data_agreements (`+agreementColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		a.ID,
		a.PlanID,
		a.AccessID,
		string(a.Role),
		a.Message,
		string(a.Status),
		a.RequestedBy,
		toNullString(a.RespondedBy),
		toNullTime(a.RespondedAt),
		a.ExpiresAt,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *AgreementsRepo) Update(ctx context.Context, a agreements.Agreement) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE breeding_data_agreements
		SET
			role = $2,
			message = $3,
			status = $4,
			responded_by = $5,
			responded_at = $6,
			expires_at = $7,
			updated_at = $8
		WHERE id = $1
	`,
		a.ID,
		string(a.Role),
		a.Message,
		string(a.Status),
		toNullString(a.RespondedBy),
		toNullTime(a.RespondedAt),
		a.ExpiresAt,
		a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AgreementsRepo) GetByID(ctx context.Context, id string) (agreements.Agreement, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return agreements.Agreement{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+agreementColumns+`
		FROM breeding_data_agreements
		WHERE id = $1
	`, id)

	return scanAgreement(row)
}

func (r *AgreementsRepo) GetByPlanAccess(ctx context.Context, planID, accessID string) (agreements.Agreement, error) {
	if planID == "" || accessID == "" {
		return agreements.Agreement{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+agreementColumns+`
		FROM breeding_data_agreements
		WHERE plan_id = $1
		  AND access_id = $2
	`, planID, accessID)

	return scanAgreement(row)
}

func (r *AgreementsRepo) ListByPlan(ctx context.Context, planID string) ([]agreements.Agreement, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+agreementColumns+`
		FROM breeding_data_agreements
		WHERE plan_id = $1
		ORDER BY created_at ASC
	`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]agreements.Agreement, 0)
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func scanAgreement(row rowScanner) (agreements.Agreement, error) {
	var a agreements.Agreement
	var role, status string
	var respondedBy sql.NullString
	var respondedAt sql.NullTime

	if err := row.Scan(
		&a.ID,
		&a.PlanID,
		&a.AccessID,
		&role,
		&a.Message,
		&status,
		&a.RequestedBy,
		&respondedBy,
		&respondedAt,
		&a.ExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return agreements.Agreement{}, ErrNotFound
		}
		return agreements.Agreement{}, err
	}

	a.Role = agreements.Role(role)
	a.Status = agreements.Status(status)
	a.RespondedBy = fromNullString(respondedBy)
	a.RespondedAt = fromNullTime(respondedAt)
	return a, nil
}
