package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jdorantes1987/aapn-nc/internal/models"
	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

var _ storage.UserStore = (*UserStore)(nil)

// UserStore reads operator accounts and their role permissions.
type UserStore struct {
	pool *pgxpool.Pool
}

// FindByUsername fetches a user together with its role's permission names.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	const query = `
	SELECT u.id, u.username, u.email, u.role, u.password_hash, u.created_at,
	(
		SELECT COALESCE(array_agg(p.permission_name ORDER BY p.id), '{}')
		FROM role_permissions rp
		JOIN permission p ON rp.permission_id = p.id
		WHERE rp.role_id = r.id
	)
	FROM users u
	JOIN role r ON u.role = r.role_name
	WHERE u.username = $1;
	`
	var user models.User
	row := s.pool.QueryRow(ctx, query, username)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Role,
		&user.PasswordHash, &user.CreatedAt, &user.Permissions)
	if err != nil {
		return models.User{}, fmt.Errorf("find user %q: %w", username, classify(err))
	}
	return user, nil
}

// LoadRole fetches a role and its permission names by role name.
func (s *UserStore) LoadRole(ctx context.Context, roleName string) (models.Role, error) {
	const query = `
	SELECT r.id, r.role_name, COALESCE(r.role_description, ''),
	(
		SELECT COALESCE(array_agg(p.permission_name ORDER BY p.id), '{}')
		FROM role_permissions rp
		JOIN permission p ON rp.permission_id = p.id
		WHERE rp.role_id = r.id
	)
	FROM role r
	WHERE r.role_name = $1;
	`
	var role models.Role
	row := s.pool.QueryRow(ctx, query, roleName)
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions); err != nil {
		return models.Role{}, fmt.Errorf("load role %q: %w", roleName, classify(err))
	}
	return role, nil
}
