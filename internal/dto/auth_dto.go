package dto

import "github.com/noah-isme/shkola-api/internal/models"

// RegisterRequest is the payload for account self-registration.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	FullName string  `json:"full_name" validate:"required"`
	Role     string  `json:"role" validate:"required,oneof=teacher student"`
	Grade    *string `json:"grade" validate:"omitempty,min=1"`
}

// LoginRequest is the payload for credential login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a bearer token issued on successful auth.
type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        *UserResponse `json:"user,omitempty"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID         uint    `json:"id"`
	Email      string  `json:"email"`
	FullName   string  `json:"full_name"`
	Role       string  `json:"role"`
	Grade      *string `json:"grade"`
	IsVerified bool    `json:"is_verified"`
}

// NewUserResponse maps a user entity into its view model.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		Role:       user.Role,
		Grade:      user.Grade,
		IsVerified: user.IsVerified,
	}
}

// NewUserResponseSlice maps a list of users.
func NewUserResponseSlice(users []models.User) []UserResponse {
	result := make([]UserResponse, 0, len(users))
	for _, user := range users {
		result = append(result, NewUserResponse(user))
	}
	return result
}
