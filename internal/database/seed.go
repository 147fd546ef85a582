package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/lessons-api/internal/model"
	"github.com/iliyamo/lessons-api/internal/repository"
	"github.com/iliyamo/lessons-api/internal/utils"
)

// SeedUser describes one account created by Seed.
type SeedUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// DefaultSeedUsers are the demo accounts every fresh environment gets.
var DefaultSeedUsers = []SeedUser{
	{Name: "admin", Email: "admin@test.com", Password: "qweqwe", Role: "admin"},
	{Name: "user1", Email: "user1@test.com", Password: "qweqwe", Role: "user"},
	{Name: "user2", Email: "user2@test.com", Password: "qweqwe", Role: "user"},
}

// UserCreator is the part of the user repository Seed needs.
type UserCreator interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, name, email, passwordHash string, roles ...string) (model.User, error)
}

// Seed creates the given users unless an account with the same email
// already exists.  It returns how many users were inserted.
func Seed(ctx context.Context, users UserCreator, seeds []SeedUser, bcryptCost int) (int, error) {
	created := 0
	for _, s := range seeds {
		_, err := users.GetByEmail(ctx, s.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return created, fmt.Errorf("lookup %s: %w", s.Email, err)
		}
		hash, err := utils.HashPassword(s.Password, bcryptCost)
		if err != nil {
			return created, err
		}
		if _, err := users.Create(ctx, s.Name, s.Email, hash, s.Role); err != nil {
			return created, fmt.Errorf("create %s: %w", s.Email, err)
		}
		created++
	}
	return created, nil
}
