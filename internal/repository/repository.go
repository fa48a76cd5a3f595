package repository

import (
	"context"
	"errors"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
)

var (
	ErrCartLineNotFound = errors.New("cart line not found")
	ErrUserNotFound     = errors.New("user not found")
)

// CartRepository defines the interface for cart line storage.
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	FindByOwner(ctx context.Context, email string) ([]domain.CartLine, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.CartLine, error)
	Insert(ctx context.Context, line *domain.CartLine) (string, error)
	DeleteOne(ctx context.Context, id string) (*domain.CartLine, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

type UserRepository interface {
	Role(ctx context.Context, email string) (string, error)
}
