package storage

import (
	"context"
	"errors"

	"github.com/jdorantes1987/aapn-nc/internal/models"
)

// ErrNotFound indicates a record does not exist. Point lookups treat this as
// a legitimate outcome, not a fault.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict (duplicate Cedula).
var ErrAlreadyExists = errors.New("record already exists")

// ErrUnavailable indicates the backing store rejected or could not run the
// statement. Storage-layer failures are always translated to this sentinel at
// the repository boundary; driver errors never cross it untagged.
var ErrUnavailable = errors.New("storage unavailable")

// BelieverStore captures the tbl_creyentes operations plus the two read-only
// lookups. Mutations take column-keyed field maps that have already passed the
// payload normalizer; affected counts of zero are values, not errors.
type BelieverStore interface {
	Create(ctx context.Context, fields map[string]any) (int64, error)
	GetByID(ctx context.Context, id int64) (models.Believer, error)
	GetByCedula(ctx context.Context, cedula string) (models.Believer, error)
	List(ctx context.Context, limit int) ([]models.Believer, error)
	Update(ctx context.Context, id int64, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	ListNetworks(ctx context.Context, limit int) ([]models.Network, error)
	ListProfessions(ctx context.Context, limit int) ([]models.Profession, error)
}

// UserStore captures the operator-account reads the auth gate needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
	LoadRole(ctx context.Context, roleName string) (models.Role, error)
}
