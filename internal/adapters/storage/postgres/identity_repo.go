package postgres

import (
	"context"
	"database/sql"
	"strings"

	"breeder-exchange/internal/domain/identity"
)

type IdentityRepo struct {
	db *sql.DB
}

func NewIdentityRepo(db *sql.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) CreateIdentity(ctx context.Context, gi identity.GlobalIdentity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO global_identities (
			id, gaid, species, sex, name, birth_date,
			dam_id, sire_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		gi.ID,
		gi.GAID,
		gi.Species,
		gi.Sex,
		gi.Name,
		toNullTime(gi.BirthDate),
		toNullString(gi.DamID),
		toNullString(gi.SireID),
		gi.CreatedAt,
		gi.UpdatedAt,
	)
	return err
}

func (r *IdentityRepo) UpdateIdentity(ctx context.Context, gi identity.GlobalIdentity) error {
	// El GAID nunca se reescribe.
	res, err := r.db.ExecContext(ctx, `
		UPDATE global_identities
		SET
			species = $2,
			sex = $3,
			name = $4,
			birth_date = $5,
			dam_id = $6,
			sire_id = $7,
			updated_at = $8
		WHERE id = $1
	`,
		gi.ID,
		gi.Species,
		gi.Sex,
		gi.Name,
		toNullTime(gi.BirthDate),
		toNullString(gi.DamID),
		toNullString(gi.SireID),
		gi.UpdatedAt,
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

func (r *IdentityRepo) GetIdentity(ctx context.Context, id string) (identity.GlobalIdentity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return identity.GlobalIdentity{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, gaid, species, sex, name, birth_date,
		       dam_id, sire_id, created_at, updated_at
		FROM global_identities
		WHERE id = $1
	`, id)

	return scanIdentity(row)
}

func (r *IdentityRepo) GetIdentityByGAID(ctx context.Context, gaid string) (identity.GlobalIdentity, error) {
	gaid = strings.TrimSpace(gaid)
	if gaid == "" {
		return identity.GlobalIdentity{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, gaid, species, sex, name, birth_date,
		       dam_id, sire_id, created_at, updated_at
		FROM global_identities
		WHERE gaid = $1
	`, gaid)

	return scanIdentity(row)
}

func (r *IdentityRepo) CreateIdentifier(ctx context.Context, id identity.Identifier) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO global_identifiers (
			id, identity_id, type, raw_value, normalized_value,
			confidence, verified_by, verified_at, source_tenant_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		id.ID,
		id.IdentityID,
		string(id.Type),
		id.RawValue,
		id.NormalizedValue,
		id.Confidence,
		toNullString(id.VerifiedBy),
		toNullTime(id.VerifiedAt),
		id.SourceTenantID,
		id.CreatedAt,
	)
	return err
}

func (r *IdentityRepo) UpdateIdentifier(ctx context.Context, id identity.Identifier) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE global_identifiers
		SET
			confidence = $2,
			verified_by = $3,
			verified_at = $4
		WHERE id = $1
	`,
		id.ID,
		id.Confidence,
		toNullString(id.VerifiedBy),
		toNullTime(id.VerifiedAt),
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

func (r *IdentityRepo) GetIdentifier(ctx context.Context, id string) (identity.Identifier, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return identity.Identifier{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, identity_id, type, raw_value, normalized_value,
		       confidence, verified_by, verified_at, source_tenant_id, created_at
		FROM global_identifiers
		WHERE id = $1
	`, id)

	return scanIdentifier(row)
}

func (r *IdentityRepo) GetIdentifierByValue(ctx context.Context, t identity.IdentifierType, normalized string) (identity.Identifier, error) {
	if normalized == "" {
		return identity.Identifier{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, identity_id, type, raw_value, normalized_value,
		       confidence, verified_by, verified_at, source_tenant_id, created_at
		FROM global_identifiers
		WHERE type = $1
		  AND normalized_value = $2
	`, string(t), normalized)

	return scanIdentifier(row)
}

func (r *IdentityRepo) ListIdentifiersByIdentity(ctx context.Context, identityID string) ([]identity.Identifier, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, identity_id, type, raw_value, normalized_value,
		       confidence, verified_by, verified_at, source_tenant_id, created_at
		FROM global_identifiers
		WHERE identity_id = $1
		ORDER BY created_at ASC
	`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]identity.Identifier, 0)
	for rows.Next() {
		id, err := scanIdentifier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	return out, rows.Err()
}

func scanIdentity(row rowScanner) (identity.GlobalIdentity, error) {
	var gi identity.GlobalIdentity
	var birthDate sql.NullTime
	var damID, sireID sql.NullString

	if err := row.Scan(
		&gi.ID,
		&gi.GAID,
		&gi.Species,
		&gi.Sex,
		&gi.Name,
		&birthDate,
		&damID,
		&sireID,
		&gi.CreatedAt,
		&gi.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return identity.GlobalIdentity{}, ErrNotFound
		}
		return identity.GlobalIdentity{}, err
	}

	gi.BirthDate = fromNullTime(birthDate)
	gi.DamID = fromNullString(damID)
	gi.SireID = fromNullString(sireID)
	return gi, nil
}

func scanIdentifier(row rowScanner) (identity.Identifier, error) {
	var id identity.Identifier
	var typ string
	var verifiedBy sql.NullString
	var verifiedAt sql.NullTime

	if err := row.Scan(
		&id.ID,
		&id.IdentityID,
		&typ,
		&id.RawValue,
		&id.NormalizedValue,
		&id.Confidence,
		&verifiedBy,
		&verifiedAt,
		&id.SourceTenantID,
		&id.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return identity.Identifier{}, ErrNotFound
		}
		return identity.Identifier{}, err
	}

	id.Type = identity.IdentifierType(typ)
	id.VerifiedBy = fromNullString(verifiedBy)
	id.VerifiedAt = fromNullTime(verifiedAt)
	return id, nil
}
