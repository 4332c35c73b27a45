package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
)

// adminUserRepo is the concrete implementation of AdminUserRepository
type adminUserRepo struct {
	db *database.DB
}

// NewAdminUserRepo creates a new admin user repository
func NewAdminUserRepo(db *database.DB) AdminUserRepository {
	return &adminUserRepo{db: db}
}

// Create inserts a new admin user
func (r *adminUserRepo) Create(ctx context.Context, user *models.AdminUser) error {
	query := `
		INSERT INTO admin_users (id, email, password_hash, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, strings.ToLower(user.Email), user.PasswordHash, user.Name, user.CreatedAt,
	)
	return err
}

// GetByEmail retrieves an admin user by email (case-insensitive)
func (r *adminUserRepo) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	query := `SELECT id, email, password_hash, name, created_at FROM admin_users WHERE email = $1`

	var user models.AdminUser
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// EmailExists checks if an admin user with the given email exists
func (r *adminUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM admin_users WHERE email = $1)", strings.ToLower(email),
	).Scan(&exists)
	return exists, err
}
