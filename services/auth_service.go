package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"campus-events-api/models"
	"campus-events-api/repositories"
	"campus-events-api/utils"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	IDNumber string `json:"id_number"`
	Branch   string `json:"branch"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	ConfirmEmail(ctx context.Context, token string) error
	GeneratePasswordResetToken(ctx context.Context, email string) (string, error)
	ResetPasswordByToken(ctx context.Context, token string, newPassword string) error
}

type authService struct {
	userRepo         repositories.UserRepository
	studentIDPattern *regexp.Regexp
}

func NewAuthService(userRepo repositories.UserRepository, studentIDPattern *regexp.Regexp) AuthService {
	return &authService{
		userRepo:         userRepo,
		studentIDPattern: studentIDPattern,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	if input.Name == "" || input.Email == "" {
		return nil, "", fmt.Errorf("%w: name and email are required", ErrValidationFailed)
	}
	if !utils.IsValidEmail(input.Email) {
		return nil, "", fmt.Errorf("%w: malformed email address", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, "", ErrPasswordTooShort
	}
	idNumber := utils.NormalizeIDNumber(input.IDNumber)
	if !s.studentIDPattern.MatchString(idNumber) {
		return nil, "", fmt.Errorf("%w: malformed id number", ErrValidationFailed)
	}
	if !utils.IsValidBranch(input.Branch) {
		return nil, "", fmt.Errorf("%w: unknown branch", ErrValidationFailed)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	confirmationToken := generateRandomToken(32)

	user := &models.User{
		Name:                   input.Name,
		Email:                  input.Email,
		IDNumber:               idNumber,
		Branch:                 input.Branch,
		Role:                   models.RoleGeneral,
		PasswordHash:           string(hashedPassword),
		EmailConfirmed:         false,
		EmailConfirmationToken: &confirmationToken,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", mapRepoUserError(err)
	}

	sanitizeUser(user)
	return user, confirmationToken, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	if !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	sanitizeUser(user)
	return user, nil
}

func (s *authService) ConfirmEmail(ctx context.Context, token string) error {
	user, err := s.userRepo.GetByConfirmationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return err
	}
	if user.EmailConfirmed {
		return ErrEmailAlreadyConfirmed
	}
	return s.userRepo.ConfirmEmail(ctx, user.ID)
}

func (s *authService) GeneratePasswordResetToken(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the email is registered.
		return "", nil
	}
	resetToken := generateRandomToken(32)
	if err := s.userRepo.SetPasswordResetToken(ctx, user.ID, resetToken, time.Now().Add(1*time.Hour)); err != nil {
		return "", err
	}
	return resetToken, nil
}

func (s *authService) ResetPasswordByToken(ctx context.Context, token string, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	user, err := s.userRepo.GetByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return err
	}
	if user.PasswordResetExpiresAt == nil || user.PasswordResetExpiresAt.Before(time.Now()) {
		return ErrTokenInvalid
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)
	user.PasswordResetToken = nil
	user.PasswordResetExpiresAt = nil
	return s.userRepo.Update(ctx, user)
}
