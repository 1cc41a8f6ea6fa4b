package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"breeder-exchange/internal/domain/linkrequests"
)

type LinkRequestsRepo struct {
	db *sql.DB
}

func NewLinkRequestsRepo(db *sql.DB) *LinkRequestsRepo {
	return &LinkRequestsRepo{db: db}
}

const requestColumns = `
	id, requester_tenant_id, requester_user_id, animal_id, role,
	target_mode, target_animal_ref, target_gaid, target_code,
	target_reg_org, target_reg_number,
	message, status, target_tenant_id, target_animal_id, confirmed_animal_id,
	responded_by, responded_at, deny_reason,
	expires_at, created_at, updated_at
`

func (r *LinkRequestsRepo) CreateRequest(ctx context.Context, req linkrequests.Request) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO animal_link_requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`, requestArgs(req)...)
	return err
}

func (r *LinkRequestsRepo) UpdateRequest(ctx context.Context, req linkrequests.Request) error {
	res, err := r.db.ExecContext(ctx, updateRequestSQL, updateRequestArgs(req)...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const updateRequestSQL = `
	UPDATE animal_link_requests
	SET
		status = $2,
		confirmed_animal_id = $3,
		responded_by = $4,
		responded_at = $5,
		deny_reason = $6,
		updated_at = $7
	WHERE id = $1
`

func updateRequestArgs(req linkrequests.Request) []any {
	return []any{
		req.ID,
		string(req.Status),
		req.ConfirmedAnimalID,
		toNullString(req.RespondedBy),
		toNullTime(req.RespondedAt),
		req.DenyReason,
		req.UpdatedAt,
	}
}

func requestArgs(req linkrequests.Request) []any {
	return []any{
		req.ID,
		req.RequesterTenantID,
		req.RequesterUserID,
		req.AnimalID,
		string(req.Role),
		string(req.Target.Mode),
		req.Target.AnimalID,
		req.Target.GAID,
		req.Target.ExchangeCode,
		req.Target.RegistryOrg,
		req.Target.RegistryNumber,
		req.Message,
		string(req.Status),
		req.TargetTenantID,
		req.TargetAnimalID,
		req.ConfirmedAnimalID,
		toNullString(req.RespondedBy),
		toNullTime(req.RespondedAt),
		req.DenyReason,
		req.ExpiresAt,
		req.CreatedAt,
		req.UpdatedAt,
	}
}

func (r *LinkRequestsRepo) GetRequest(ctx context.Context, id string) (linkrequests.Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return linkrequests.Request{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM animal_link_requests
		WHERE id = $1
	`, id)

	return scanRequest(row)
}

func (r *LinkRequestsRepo) ListByRequester(ctx context.Context, tenantID string) ([]linkrequests.Request, error) {
	return r.listRequests(ctx, `
		SELECT `+requestColumns+`
		FROM animal_link_requests
		WHERE requester_tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
}

func (r *LinkRequestsRepo) ListByTargetTenant(ctx context.Context, tenantID string) ([]linkrequests.Request, error) {
	return r.listRequests(ctx, `
		SELECT `+requestColumns+`
		FROM animal_link_requests
		WHERE target_tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
}

func (r *LinkRequestsRepo) listRequests(ctx context.Context, query, tenantID string) ([]linkrequests.Request, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]linkrequests.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}

	return out, rows.Err()
}

const linkColumns = `
	id, child_animal_id, child_tenant_id, parent_animal_id, parent_tenant_id,
	role, method, request_id, active, revoked_by, revoked_at, created_at
`

const insertLinkSQL = `
	INSERT INTO cross_tenant_animal_links (` + linkColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`

func linkArgs(l linkrequests.CrossTenantLink) []any {
	return []any{
		l.ID,
		l.ChildAnimalID,
		l.ChildTenantID,
		l.ParentAnimalID,
		l.ParentTenantID,
		string(l.Role),
		string(l.Method),
		l.RequestID,
		l.Active,
		toNullString(l.RevokedBy),
		toNullTime(l.RevokedAt),
		l.CreatedAt,
	}
}

func (r *LinkRequestsRepo) CreateLink(ctx context.Context, l linkrequests.CrossTenantLink) error {
	_, err := r.db.ExecContext(ctx, insertLinkSQL, linkArgs(l)...)
	if isUniqueViolation(err) {
		return linkrequests.ErrDuplicateActiveLink
	}
	return err
}

func (r *LinkRequestsRepo) UpdateLink(ctx context.Context, l linkrequests.CrossTenantLink) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cross_tenant_animal_links
		SET
			active = $2,
			revoked_by = $3,
			revoked_at = $4
		WHERE id = $1
	`,
		l.ID,
		l.Active,
		toNullString(l.RevokedBy),
		toNullTime(l.RevokedAt),
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

func (r *LinkRequestsRepo) GetLink(ctx context.Context, id string) (linkrequests.CrossTenantLink, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return linkrequests.CrossTenantLink{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM cross_tenant_animal_links
		WHERE id = $1
	`, id)

	return scanLink(row)
}

func (r *LinkRequestsRepo) GetActiveLink(ctx context.Context, childAnimalID string, role linkrequests.ParentRole) (linkrequests.CrossTenantLink, error) {
	childAnimalID = strings.TrimSpace(childAnimalID)
	if childAnimalID == "" {
		return linkrequests.CrossTenantLink{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM cross_tenant_animal_links
		WHERE child_animal_id = $1
		  AND role = $2
		  AND active
	`, childAnimalID, string(role))

	return scanLink(row)
}

func (r *LinkRequestsRepo) ListLinksByAnimal(ctx context.Context, animalID string) ([]linkrequests.CrossTenantLink, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM cross_tenant_animal_links
		WHERE child_animal_id = $1
		   OR parent_animal_id = $1
		ORDER BY created_at ASC
	`, animalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]linkrequests.CrossTenantLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

// ApproveAndLink corre en una transacción: si el INSERT del link choca
// con el índice parcial de link activo, se hace rollback y el pedido
// queda PENDING como estaba.
func (r *LinkRequestsRepo) ApproveAndLink(ctx context.Context, req linkrequests.Request, l linkrequests.CrossTenantLink) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, updateRequestSQL, updateRequestArgs(req)...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, insertLinkSQL, linkArgs(l)...); err != nil {
		if isUniqueViolation(err) {
			return linkrequests.ErrDuplicateActiveLink
		}
		return err
	}

	return tx.Commit()
}

func (r *LinkRequestsRepo) ExpireRequestsBefore(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE animal_link_requests
		SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'PENDING'
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanRequest(row rowScanner) (linkrequests.Request, error) {
	var req linkrequests.Request
	var role, mode, status string
	var respondedBy sql.NullString
	var respondedAt sql.NullTime

	if err := row.Scan(
		&req.ID,
		&req.RequesterTenantID,
		&req.RequesterUserID,
		&req.AnimalID,
		&role,
		&mode,
		&req.Target.AnimalID,
		&req.Target.GAID,
		&req.Target.ExchangeCode,
		&req.Target.RegistryOrg,
		&req.Target.RegistryNumber,
		&req.Message,
		&status,
		&req.TargetTenantID,
		&req.TargetAnimalID,
		&req.ConfirmedAnimalID,
		&respondedBy,
		&respondedAt,
		&req.DenyReason,
		&req.ExpiresAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return linkrequests.Request{}, ErrNotFound
		}
		return linkrequests.Request{}, err
	}

	req.Role = linkrequests.ParentRole(role)
	req.Target.Mode = linkrequests.TargetMode(mode)
	req.Status = linkrequests.RequestStatus(status)
	req.RespondedBy = fromNullString(respondedBy)
	req.RespondedAt = fromNullTime(respondedAt)
	return req, nil
}

func scanLink(row rowScanner) (linkrequests.CrossTenantLink, error) {
	var l linkrequests.CrossTenantLink
	var role, method string
	var revokedBy sql.NullString
	var revokedAt sql.NullTime

	if err := row.Scan(
		&l.ID,
		&l.ChildAnimalID,
		&l.ChildTenantID,
		&l.ParentAnimalID,
		&l.ParentTenantID,
		&role,
		&method,
		&l.RequestID,
		&l.Active,
		&revokedBy,
		&revokedAt,
		&l.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return linkrequests.CrossTenantLink{}, ErrNotFound
		}
		return linkrequests.CrossTenantLink{}, err
	}

	l.Role = linkrequests.ParentRole(role)
	l.Method = linkrequests.LinkMethod(method)
	l.RevokedBy = fromNullString(revokedBy)
	l.RevokedAt = fromNullTime(revokedAt)
	return l, nil
}
