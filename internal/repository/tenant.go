package repository

import (
	"context"
	"errors"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantRepository struct {
	db dbtx
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: pool}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`,
		tenant.ID, tenant.Name, tenant.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrTenantAlreadyExists
	}
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT id, name, created_at FROM tenants WHERE id = $1`, id)
}

func (r *TenantRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT id, name, created_at FROM tenants WHERE name = $1`, name)
}

func (r *TenantRepository) getOne(ctx context.Context, query string, arg string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.QueryRow(ctx, query, arg).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at FROM tenants ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var tenant domain.Tenant
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, &tenant)
	}
	return tenants, rows.Err()
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}
