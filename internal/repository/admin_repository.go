package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// AdminRepository handles admin data access.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

const adminColumns = `id, email, name, password_hash, permissions, created_at, updated_at`

func scanAdmin(row pgx.Row) (*model.Admin, error) {
	a := &model.Admin{}
	var perms []string
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &perms, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Permissions = make([]model.Permission, len(perms))
	for i, p := range perms {
		a.Permissions[i] = model.Permission(p)
	}
	return a, nil
}

// GetByID retrieves an admin by ID.
func (r *AdminRepository) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	return scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

// GetByEmail retrieves an admin by their unique email.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = $1`, email))
}

// Create inserts a new admin.
func (r *AdminRepository) Create(ctx context.Context, a *model.Admin) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO admins (email, name, password_hash, permissions)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		a.Email, a.Name, a.PasswordHash, model.PermissionStrings(a.Permissions),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}
