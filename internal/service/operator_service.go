package service

import (
	"context"
	"strings"

	"animeverse/internal/models"
	"animeverse/internal/repository"
	"animeverse/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// OperatorService manages the accounts that author posts and use the admin API.
type OperatorService struct {
	userRepo repository.UserRepository
}

// CreateOperatorInput describes a new operator account.
type CreateOperatorInput struct {
	Username string
	Email    string
	Password string
	Staff    bool
}

func NewOperatorService(userRepo repository.UserRepository) *OperatorService {
	return &OperatorService{userRepo: userRepo}
}

// Authenticate returns the operator matching the credentials. Unknown usernames and
// wrong passwords produce the same error.
func (s *OperatorService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

func (s *OperatorService) CreateOperator(ctx context.Context, in CreateOperatorInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Email != "" {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, err
		}
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		IsStaff:  in.Staff,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *OperatorService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
