package repository

import (
	"context"
	"errors"

	"github.com/manuelcattigobetti/provaANPI/internal/domain/entity"
)

var (
	// ErrNotFound reports a lookup for an id or email with no matching row.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail reports a violated unique constraint on email. The
	// constraint, not a prior existence check, is the source of truth.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the storage contract for user records.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// ListAll returns every user ordered by (surname, given_name) ascending.
	ListAll(ctx context.Context) ([]*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
}
