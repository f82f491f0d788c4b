package services

import (
	"context"
	"errors"
	"fmt"

	"campus-events-api/models"
	"campus-events-api/repositories"
	"campus-events-api/utils"
	"golang.org/x/crypto/bcrypt"
)

type UpdateProfileInput struct {
	Name   *string `json:"name"`
	Branch *string `json:"branch"`
}

type UserService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetProfile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoUserError(err)
	}
	sanitizeUser(user)
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoUserError(err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidationFailed)
		}
		user.Name = *input.Name
	}
	if input.Branch != nil {
		if !utils.IsValidBranch(*input.Branch) {
			return nil, fmt.Errorf("%w: unknown branch", ErrValidationFailed)
		}
		user.Branch = *input.Branch
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, mapRepoUserError(err)
	}
	sanitizeUser(user)
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return mapRepoUserError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrAuthenticationFailed
		}
		return fmt.Errorf("failed to compare password hash: %w", err)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)
	return s.userRepo.Update(ctx, user)
}

// RequestOrganizer flags the caller for admin review. Organizers and admins
// have nothing to request.
func (s *UserService) RequestOrganizer(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return mapRepoUserError(err)
	}
	if user.Role != models.RoleGeneral {
		return ErrAlreadyOrganizer
	}
	if user.RequestOrganizer {
		return nil // idempotent
	}
	return s.userRepo.SetRequestOrganizer(ctx, userID, true)
}
