package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
)

type SignupInput struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=32"`
	Password string `json:"password" validate:"required,min=8"`
}

type UserService struct {
	userRepo models.UserRepo
}

func NewUserService(userRepo models.UserRepo) *UserService {
	return &UserService{userRepo: userRepo}
}

func (us *UserService) CreateUser(ctx context.Context, in SignupInput) (*types.SignupResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = helpers.StringTrim(in.FullName)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !helpers.IsPasswordStrong(in.Password) {
		return nil, domain.ValidationError{Field: "password", Msg: "password is not strong enough"}
	}

	res, err := us.userRepo.CreateUser(ctx, &models.User{
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		Password: in.Password,
	})
	if errors.Is(err, models.ErrEmailInUse) {
		return nil, domain.ConflictError{Resource: "user", Msg: "email already in use", Err: err}
	}
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not create the account.", Err: err}
	}
	return res, nil
}

func (us *UserService) AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return nil, domain.ValidationError{Field: "email", Msg: "invalid email format"}
	}
	if err := models.Validate.Var(password, "required,min=8"); err != nil {
		return nil, domain.ValidationError{Field: "password", Msg: "invalid password format"}
	}
	response, err := us.userRepo.AuthenticateUser(ctx, strings.ToLower(email), password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return response, nil
}

func (us *UserService) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}
	response, err := us.userRepo.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return response, nil
}

func (us *UserService) GetUser(ctx context.Context, id uuid.UUID, accessToken string) (*models.User, error) {
	user, err := us.userRepo.GetUser(ctx, id, accessToken)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, domain.NotFoundError{Resource: "user", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile updates the caller's own name and phone.
func (us *UserService) UpdateProfile(ctx context.Context, fields map[string]interface{}, id uuid.UUID, accessToken string) (*models.User, error) {
	allowed := map[string]string{
		"full_name": "required,max=120",
		"phone":     "omitempty,min=7,max=32",
	}
	update := map[string]interface{}{}
	for k, v := range fields {
		rule, ok := allowed[k]
		if !ok {
			return nil, domain.ValidationError{Field: k, Msg: fmt.Sprintf("%s cannot be updated", k)}
		}
		s, ok := v.(string)
		if !ok {
			return nil, domain.ValidationError{Field: k, Msg: fmt.Sprintf("%s must be a string", k)}
		}
		s = helpers.StringTrim(s)
		if err := models.Validate.Var(s, rule); err != nil {
			return nil, domain.ValidationError{Field: k, Msg: fmt.Sprintf("%s is invalid", k)}
		}
		update[k] = s
	}
	if len(update) == 0 {
		return nil, domain.ValidationError{Msg: "no fields to update"}
	}
	update["updated_at"] = time.Now().UTC()

	user, err := us.userRepo.UpdateUser(ctx, update, id, accessToken)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, domain.NotFoundError{Resource: "user", Err: err}
	}
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not update your profile.", Err: err}
	}
	return user, nil
}
