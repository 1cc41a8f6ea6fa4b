package postgres

import (
	"context"
	"database/sql"
	"strings"

	"breeder-exchange/internal/domain/identitylinks"
)

type IdentityLinksRepo struct {
	db *sql.DB
}

func NewIdentityLinksRepo(db *sql.DB) *IdentityLinksRepo {
	return &IdentityLinksRepo{db: db}
}

func (r *IdentityLinksRepo) Create(ctx context.Context, l identitylinks.Link) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO animal_identity_links (
			id, animal_id, identity_id, confidence, matched_on,
			auto_matched, confirmed_by, confirmed_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		l.ID,
		l.AnimalID,
		l.IdentityID,
		l.Confidence,
		strings.Join(l.MatchedOn, ","),
		l.AutoMatched,
		toNullString(l.ConfirmedBy),
		toNullTime(l.ConfirmedAt),
		l.CreatedAt,
		l.UpdatedAt,
	)
	return err
}

func (r *IdentityLinksRepo) Update(ctx context.Context, l identitylinks.Link) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE animal_identity_links
		SET
			identity_id = $2,
			confidence = $3,
			matched_on = $4,
			auto_matched = $5,
			confirmed_by = $6,
			confirmed_at = $7,
			updated_at = $8
		WHERE id = $1
	`,
		l.ID,
		l.IdentityID,
		l.Confidence,
		strings.Join(l.MatchedOn, ","),
		l.AutoMatched,
		toNullString(l.ConfirmedBy),
		toNullTime(l.ConfirmedAt),
		l.UpdatedAt,
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

func (r *IdentityLinksRepo) GetByID(ctx context.Context, id string) (identitylinks.Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return identitylinks.Link{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, animal_id, identity_id, confidence, matched_on,
		       auto_matched, confirmed_by, confirmed_at, created_at, updated_at
		FROM animal_identity_links
		WHERE id = $1
	`, id)

	return scanIdentityLink(row)
}

func (r *IdentityLinksRepo) GetByAnimal(ctx context.Context, animalID string) (identitylinks.Link, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" {
		return identitylinks.Link{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, animal_id, identity_id, confidence, matched_on,
		       auto_matched, confirmed_by, confirmed_at, created_at, updated_at
		FROM animal_identity_links
		WHERE animal_id = $1
	`, animalID)

	return scanIdentityLink(row)
}

func (r *IdentityLinksRepo) ListByIdentity(ctx context.Context, identityID string) ([]identitylinks.Link, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, animal_id, identity_id, confidence, matched_on,
		       auto_matched, confirmed_by, confirmed_at, created_at, updated_at
		FROM animal_identity_links
		WHERE identity_id = $1
		ORDER BY created_at ASC
	`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]identitylinks.Link, 0)
	for rows.Next() {
		l, err := scanIdentityLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

func (r *IdentityLinksRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM animal_identity_links WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIdentityLink(row rowScanner) (identitylinks.Link, error) {
	var l identitylinks.Link
	var matchedOn string
	var confirmedBy sql.NullString
	var confirmedAt sql.NullTime

	if err := row.Scan(
		&l.ID,
		&l.AnimalID,
		&l.IdentityID,
		&l.Confidence,
		&matchedOn,
		&l.AutoMatched,
		&confirmedBy,
		&confirmedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return identitylinks.Link{}, ErrNotFound
		}
		return identitylinks.Link{}, err
	}

	if matchedOn != "" {
		l.MatchedOn = strings.Split(matchedOn, ",")
	}
	l.ConfirmedBy = fromNullString(confirmedBy)
	l.ConfirmedAt = fromNullTime(confirmedAt)
	return l, nil
}
