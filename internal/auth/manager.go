package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/jdorantes1987/aapn-nc/internal/metrics"
	"github.com/jdorantes1987/aapn-nc/internal/models"
	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

// Manager authenticates operator accounts and resolves their roles. It backs
// the two-step login flow: the username is validated first, then the password.
type Manager struct {
	users storage.UserStore
	log   *slog.Logger
	met   *metrics.Metrics
}

// NewManager builds the auth gate. met may be nil.
func NewManager(users storage.UserStore, log *slog.Logger, met *metrics.Metrics) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{users: users, log: log, met: met}
}

// UserExists reports whether the username is registered.
func (m *Manager) UserExists(ctx context.Context, username string) bool {
	_, err := m.users.FindByUsername(ctx, username)
	return err == nil
}

// Authenticate verifies a username/password pair. The returned message is
// user-visible; the user value is only meaningful when ok is true.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (models.User, bool, string) {
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.Error("fetch user failed", "username", username, "error", err)
			return models.User{}, false, "no se pudo verificar el usuario"
		}
		m.met.RecordAuthFailure()
		return models.User{}, false, "usuario o contraseña incorrectos"
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		m.met.RecordAuthFailure()
		return models.User{}, false, "usuario o contraseña incorrectos"
	}
	return user, true, "inicio de sesión exitoso"
}

// LoadRole resolves the role (with its permission names) for a username.
func (m *Manager) LoadRole(ctx context.Context, username string) (models.Role, error) {
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		return models.Role{}, err
	}
	return m.users.LoadRole(ctx, user.Role)
}

// LoadRoleByName resolves a role directly by role name, as stored in token
// claims.
func (m *Manager) LoadRoleByName(ctx context.Context, roleName string) (models.Role, error) {
	return m.users.LoadRole(ctx, roleName)
}
