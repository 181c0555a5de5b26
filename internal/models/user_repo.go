package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailInUse   = errors.New("email already in use")
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *User) (*types.SignupResponse, error)
	AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
	GetUser(ctx context.Context, id uuid.UUID, accessToken string) (*User, error)
	UpdateUser(ctx context.Context, fields map[string]interface{}, id uuid.UUID, accessToken string) (*User, error)
}

func (su *SupabaseRepo) CreateUser(ctx context.Context, user *User) (*types.SignupResponse, error) {
	res, err := su.supabaseClient.Auth.Signup(types.SignupRequest{
		Email:    user.Email,
		Password: user.Password,
		Data: map[string]interface{}{
			"full_name": user.FullName,
			"phone":     user.Phone,
		},
	})
	if err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "already registered") || strings.Contains(errMsg, "unique constraint") {
			return nil, ErrEmailInUse
		}
		if strings.Contains(errMsg, "null value in column") {
			return nil, fmt.Errorf("required field is missing")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return res, nil
}

func (su *SupabaseRepo) AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	resp, err := su.supabaseClient.Auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}
	return resp, nil
}

func (su *SupabaseRepo) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	resp, err := su.supabaseClient.Auth.RefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return resp, nil
}

func (su *SupabaseRepo) GetUser(ctx context.Context, id uuid.UUID, accessToken string) (*User, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("invalid UUID")
	}

	client := su.supabaseClient
	if accessToken != "" {
		authClient, err := su.GetAuthenticatedClient(accessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticated client: %w", err)
		}
		client = authClient
	}

	raw, status, err := client.From(ProfileTable).
		Select("id,email,full_name,phone,role,created_at,updated_at", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		if status != 0 {
			return nil, fmt.Errorf("postgrest error: status=%d body=%s err=%w", status, string(raw), err)
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	// postgrest returns an array even for single results
	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user rows: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

func (su *SupabaseRepo) UpdateUser(ctx context.Context, fields map[string]interface{}, id uuid.UUID, accessToken string) (*User, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("invalid UUID")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	client := su.supabaseClient
	if accessToken != "" {
		authClient, err := su.GetAuthenticatedClient(accessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticated client: %w", err)
		}
		client = authClient
	}

	raw, count, err := client.From(ProfileTable).
		Update(fields, "representation", "exact").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}

	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no user data returned after update")
	}
	return &users[0], nil
}
