package repository

import (
	"context"

	"session-control-plane/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByProviderIdentity(ctx context.Context, provider, providerID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}
