package postgres

import (
	"context"
	"database/sql"
	"strings"

	"breeder-exchange/internal/domain/animals"
)

type AnimalsRepo struct {
	db *sql.DB
}

func NewAnimalsRepo(db *sql.DB) *AnimalsRepo {
	return &AnimalsRepo{db: db}
}

const animalColumns = `
	id, tenant_id, name, species, breed, sex, birth_date,
	microchip, registry_org, registry_number, notes,
	created_at, updated_at
`

func (r *AnimalsRepo) Create(ctx context.Context, a animals.Animal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO animals (`+animalColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		a.ID,
		a.TenantID,
		a.Name,
		a.Species,
		a.Breed,
		a.Sex,
		toNullTime(a.BirthDate),
		a.Microchip,
		a.RegistryOrg,
		a.RegistryNumber,
		a.Notes,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *AnimalsRepo) Update(ctx context.Context, a animals.Animal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE animals
		SET
			name = $2,
			species = $3,
			breed = $4,
			sex = $5,
			birth_date = $6,
			microchip = $7,
			registry_org = $8,
			registry_number = $9,
			notes = $10,
			updated_at = $11
		WHERE id = $1
	`,
		a.ID,
		a.Name,
		a.Species,
		a.Breed,
		a.Sex,
		toNullTime(a.BirthDate),
		a.Microchip,
		a.RegistryOrg,
		a.RegistryNumber,
		a.Notes,
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

func (r *AnimalsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM animals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AnimalsRepo) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return animals.Animal{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+animalColumns+`
		FROM animals
		WHERE id = $1
	`, id)

	return scanAnimal(row)
}

func (r *AnimalsRepo) ListByTenant(ctx context.Context, tenantID string) ([]animals.Animal, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, nil
	}

	return r.listAnimals(ctx, `
		SELECT `+animalColumns+`
		FROM animals
		WHERE tenant_id = $1
		ORDER BY created_at ASC
	`, tenantID)
}

func (r *AnimalsRepo) ListByRegistry(ctx context.Context, org, number string) ([]animals.Animal, error) {
	if org == "" || number == "" {
		return nil, nil
	}

	return r.listAnimals(ctx, `
		SELECT `+animalColumns+`
		FROM animals
		WHERE registry_org = $1
		  AND registry_number = $2
		ORDER BY created_at ASC
	`, org, number)
}

func (r *AnimalsRepo) ListByMicrochip(ctx context.Context, microchip string) ([]animals.Animal, error) {
	if microchip == "" {
		return nil, nil
	}

	return r.listAnimals(ctx, `
		SELECT `+animalColumns+`
		FROM animals
		WHERE microchip = $1
		ORDER BY created_at ASC
	`, microchip)
}

func (r *AnimalsRepo) listAnimals(ctx context.Context, query string, args ...any) ([]animals.Animal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]animals.Animal, 0)
	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func (r *AnimalsRepo) SaveExchangeCode(ctx context.Context, ec animals.ExchangeCode) error {
	// Un código vigente por animal: el nuevo pisa el anterior.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exchange_codes (code, animal_id, tenant_id, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (animal_id) DO UPDATE
		SET code = EXCLUDED.code,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`,
		ec.Code,
		ec.AnimalID,
		ec.TenantID,
		ec.ExpiresAt,
		ec.CreatedAt,
	)
	return err
}

func (r *AnimalsRepo) GetExchangeCode(ctx context.Context, code string) (animals.ExchangeCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return animals.ExchangeCode{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT code, animal_id, tenant_id, expires_at, created_at
		FROM exchange_codes
		WHERE code = $1
	`, code)

	var ec animals.ExchangeCode
	if err := row.Scan(&ec.Code, &ec.AnimalID, &ec.TenantID, &ec.ExpiresAt, &ec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return animals.ExchangeCode{}, ErrNotFound
		}
		return animals.ExchangeCode{}, err
	}

	return ec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnimal(row rowScanner) (animals.Animal, error) {
	var a animals.Animal
	var birthDate sql.NullTime

	if err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.Name,
		&a.Species,
		&a.Breed,
		&a.Sex,
		&birthDate,
		&a.Microchip,
		&a.RegistryOrg,
		&a.RegistryNumber,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return animals.Animal{}, ErrNotFound
		}
		return animals.Animal{}, err
	}

	a.BirthDate = fromNullTime(birthDate)
	return a, nil
}
