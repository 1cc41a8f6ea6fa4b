package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"breeder-exchange/internal/domain/access"
)

type AccessRepo struct {
	db *sql.DB
}

func NewAccessRepo(db *sql.DB) *AccessRepo {
	return &AccessRepo{db: db}
}

const grantColumns = `
	id, animal_id, owner_tenant_id, accessor_tenant_id,
	tier, source, status, expires_at,
	animal_name, animal_species, animal_sex,
	revoked_by, revoked_at, created_at, updated_at
`

func (r *AccessRepo) CreateGrant(ctx context.Context, g access.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO animal_access (`+grantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		g.ID,
		g.AnimalID,
		g.OwnerTenantID,
		g.AccessorTenantID,
		string(g.Tier),
		string(g.Source),
		string(g.Status),
		toNullTime(g.ExpiresAt),
		g.AnimalName,
		g.AnimalSpecies,
		g.AnimalSex,
		toNullString(g.RevokedBy),
		toNullTime(g.RevokedAt),
		g.CreatedAt,
		g.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return access.ErrDuplicateGrant
	}
	return err
}

func (r *AccessRepo) UpdateGrant(ctx context.Context, g access.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE animal_access
		SET
			tier = $2,
			source = $3,
			status = $4,
			expires_at = $5,
			animal_name = $6,
			animal_species = $7,
			animal_sex = $8,
			revoked_by = $9,
			revoked_at = $10,
			updated_at = $11
		WHERE id = $1
	`,
		g.ID,
		string(g.Tier),
		string(g.Source),
		string(g.Status),
		toNullTime(g.ExpiresAt),
		g.AnimalName,
		g.AnimalSpecies,
		g.AnimalSex,
		toNullString(g.RevokedBy),
		toNullTime(g.RevokedAt),
		g.UpdatedAt,
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

func (r *AccessRepo) GetGrant(ctx context.Context, id string) (access.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return access.Grant{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM animal_access
		WHERE id = $1
	`, id)

	return scanGrant(row)
}

func (r *AccessRepo) GetGrantByAnimalAccessor(ctx context.Context, animalID, accessorTenantID string) (access.Grant, error) {
	if animalID == "" || accessorTenantID == "" {
		return access.Grant{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM animal_access
		WHERE animal_id = $1
		  AND accessor_tenant_id = $2
	`, animalID, accessorTenantID)

	return scanGrant(row)
}

func (r *AccessRepo) ListGrantsByAnimal(ctx context.Context, animalID string) ([]access.Grant, error) {
	return r.listGrants(ctx, `
		SELECT `+grantColumns+`
		FROM animal_access
		WHERE animal_id = $1
		ORDER BY created_at ASC
	`, animalID)
}

func (r *AccessRepo) ListGrantsByAccessor(ctx context.Context, accessorTenantID string) ([]access.Grant, error) {
	return r.listGrants(ctx, `
		SELECT `+grantColumns+`
		FROM animal_access
		WHERE accessor_tenant_id = $1
		ORDER BY updated_at DESC
	`, accessorTenantID)
}

func (r *AccessRepo) listGrants(ctx context.Context, query, arg string) ([]access.Grant, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]access.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	return out, rows.Err()
}

const shareCodeColumns = `
	id, code, owner_tenant_id, default_tier, animal_ids, tier_overrides,
	expires_at, max_uses, uses_count, status,
	revoked_by, revoked_at, created_at, updated_at
`

func (r *AccessRepo) CreateShareCode(ctx context.Context, c access.ShareCode) error {
	animalIDs, overrides, err := encodeShareCodeBundle(c)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO share_codes (`+shareCodeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		c.ID,
		c.Code,
		c.OwnerTenantID,
		string(c.DefaultTier),
		animalIDs,
		overrides,
		toNullTime(c.ExpiresAt),
		c.MaxUses,
		c.UsesCount,
		string(c.Status),
		toNullString(c.RevokedBy),
		toNullTime(c.RevokedAt),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *AccessRepo) UpdateShareCode(ctx context.Context, c access.ShareCode) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE share_codes
		SET
			uses_count = $2,
			status = $3,
			revoked_by = $4,
			revoked_at = $5,
			updated_at = $6
		WHERE id = $1
	`,
		c.ID,
		c.UsesCount,
		string(c.Status),
		toNullString(c.RevokedBy),
		toNullTime(c.RevokedAt),
		c.UpdatedAt,
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

func (r *AccessRepo) GetShareCode(ctx context.Context, id string) (access.ShareCode, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return access.ShareCode{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+shareCodeColumns+`
		FROM share_codes
		WHERE id = $1
	`, id)

	return scanShareCode(row)
}

func (r *AccessRepo) GetShareCodeByCode(ctx context.Context, code string) (access.ShareCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return access.ShareCode{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+shareCodeColumns+`
		FROM share_codes
		WHERE code = $1
	`, code)

	return scanShareCode(row)
}

func (r *AccessRepo) ListShareCodesByOwner(ctx context.Context, ownerTenantID string) ([]access.ShareCode, error) {
	ownerTenantID = strings.TrimSpace(ownerTenantID)
	if ownerTenantID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+shareCodeColumns+`
		FROM share_codes
		WHERE owner_tenant_id = $1
		ORDER BY created_at DESC
	`, ownerTenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]access.ShareCode, 0)
	for rows.Next() {
		c, err := scanShareCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// ConsumeAndApplyGrants: todo dentro de una transacción. El UPDATE
// condicional del contador (sin lost updates entre redeemers
// concurrentes) más un upsert por clave natural para cada grant del
// paquete. Cero filas en el consume = tope alcanzado, rollback.
func (r *AccessRepo) ConsumeAndApplyGrants(ctx context.Context, id string, now time.Time, grants []access.Grant) (access.ShareCode, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return access.ShareCode{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE share_codes
		SET
			uses_count = uses_count + 1,
			status = CASE
				WHEN max_uses > 0 AND uses_count + 1 >= max_uses THEN 'MAX_USES_REACHED'
				ELSE status
			END,
			updated_at = $2
		WHERE id = $1
		  AND status = 'ACTIVE'
		  AND (max_uses = 0 OR uses_count < max_uses)
		RETURNING `+shareCodeColumns+`
	`, id, now)

	c, err := scanShareCode(row)
	if err == ErrNotFound {
		// O no existe o ya no admite canjes; el service ya validó
		// existencia y status antes de consumir.
		return access.ShareCode{}, access.ErrCodeExhausted
	}
	if err != nil {
		return access.ShareCode{}, err
	}

	for _, g := range grants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO animal_access (`+grantColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (animal_id, accessor_tenant_id) DO UPDATE
			SET
				tier = EXCLUDED.tier,
				source = EXCLUDED.source,
				status = EXCLUDED.status,
				expires_at = EXCLUDED.expires_at,
				animal_name = EXCLUDED.animal_name,
				animal_species = EXCLUDED.animal_species,
				animal_sex = EXCLUDED.animal_sex,
				revoked_by = EXCLUDED.revoked_by,
				revoked_at = EXCLUDED.revoked_at,
				updated_at = EXCLUDED.updated_at
		`,
			g.ID,
			g.AnimalID,
			g.OwnerTenantID,
			g.AccessorTenantID,
			string(g.Tier),
			string(g.Source),
			string(g.Status),
			toNullTime(g.ExpiresAt),
			g.AnimalName,
			g.AnimalSpecies,
			g.AnimalSex,
			toNullString(g.RevokedBy),
			toNullTime(g.RevokedAt),
			g.CreatedAt,
			g.UpdatedAt,
		); err != nil {
			return access.ShareCode{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return access.ShareCode{}, err
	}
	return c, nil
}

func (r *AccessRepo) ExpireGrantsBefore(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE animal_access
		SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'ACTIVE'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *AccessRepo) ExpireShareCodesBefore(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE share_codes
		SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'ACTIVE'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanGrant(row rowScanner) (access.Grant, error) {
	var g access.Grant
	var tier, source, status string
	var expiresAt, revokedAt sql.NullTime
	var revokedBy sql.NullString

	if err := row.Scan(
		&g.ID,
		&g.AnimalID,
		&g.OwnerTenantID,
		&g.AccessorTenantID,
		&tier,
		&source,
		&status,
		&expiresAt,
		&g.AnimalName,
		&g.AnimalSpecies,
		&g.AnimalSex,
		&revokedBy,
		&revokedAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return access.Grant{}, ErrNotFound
		}
		return access.Grant{}, err
	}

	g.Tier = access.Tier(tier)
	g.Source = access.Source(source)
	g.Status = access.Status(status)
	g.ExpiresAt = fromNullTime(expiresAt)
	g.RevokedBy = fromNullString(revokedBy)
	g.RevokedAt = fromNullTime(revokedAt)
	return g, nil
}

func scanShareCode(row rowScanner) (access.ShareCode, error) {
	var c access.ShareCode
	var tier, status, animalIDs, overrides string
	var expiresAt, revokedAt sql.NullTime
	var revokedBy sql.NullString

	if err := row.Scan(
		&c.ID,
		&c.Code,
		&c.OwnerTenantID,
		&tier,
		&animalIDs,
		&overrides,
		&expiresAt,
		&c.MaxUses,
		&c.UsesCount,
		&status,
		&revokedBy,
		&revokedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return access.ShareCode{}, ErrNotFound
		}
		return access.ShareCode{}, err
	}

	c.DefaultTier = access.Tier(tier)
	c.Status = access.ShareCodeStatus(status)
	c.ExpiresAt = fromNullTime(expiresAt)
	c.RevokedBy = fromNullString(revokedBy)
	c.RevokedAt = fromNullTime(revokedAt)

	if animalIDs != "" {
		if err := json.Unmarshal([]byte(animalIDs), &c.AnimalIDs); err != nil {
			return access.ShareCode{}, err
		}
	}
	if overrides != "" {
		if err := json.Unmarshal([]byte(overrides), &c.TierOverrides); err != nil {
			return access.ShareCode{}, err
		}
	}

	return c, nil
}

func encodeShareCodeBundle(c access.ShareCode) (animalIDs, overrides string, err error) {
	ids, err := json.Marshal(c.AnimalIDs)
	if err != nil {
		return "", "", err
	}
	ov := []byte("")
	if len(c.TierOverrides) > 0 {
		ov, err = json.Marshal(c.TierOverrides)
		if err != nil {
			return "", "", err
		}
	}
	return string(ids), string(ov), nil
}
