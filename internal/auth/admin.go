package auth

import (
	"context"
	"errors"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/repository"
)

const roleAdmin = "admin"

type RoleLookup interface {
	Role(ctx context.Context, email string) (string, error)
}

type Admins struct {
	users RoleLookup
}

func NewAdmins(users RoleLookup) *Admins {
	return &Admins{users: users}
}

// IsAdmin reports whether email belongs to a user with the admin role.
// Unknown users are not admins.
func (a *Admins) IsAdmin(ctx context.Context, email string) (bool, error) {
	role, err := a.users.Role(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == roleAdmin, nil
}
