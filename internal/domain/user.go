package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // argon2id
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated caller. Every service operation takes it as
// an explicit argument.
type Identity struct {
	UserID uuid.UUID
}

// Authenticated reports whether the identity names a user.
func (i Identity) Authenticated() bool {
	return i.UserID != uuid.Nil
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
