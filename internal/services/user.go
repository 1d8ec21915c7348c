package services

import (
	"context"
	"errors"

	"github.com/bullwork-fleet/apiserver/internal/store"
	"github.com/bullwork-fleet/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// GetByEmail returns the user with the password hash included. Callers
// are responsible for never serializing the hash.
func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Create inserts a new user after checking the email is not taken.
// The uniqueness check is a read-then-write; a concurrent duplicate
// insert is caught by the database constraint instead.
func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	_, err := s.repo.GetByEmail(ctx, user.Email)
	if err == nil {
		return types.User{}, store.ErrDuplicate
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}
	return s.repo.Create(ctx, user)
}
