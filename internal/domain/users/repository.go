package users

import "context"

// Repository persists users. Implementations must enforce email uniqueness
// atomically and return ErrEmailTaken on conflict, and ErrNotFound when a
// lookup or update matches no user.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateBio(ctx context.Context, id string, bio string) (*User, error)
	UpdateInterests(ctx context.Context, id string, interests []string) (*User, error)
}
