package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
)

// UserRegisterRequest payload for new customers.
type UserRegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// NewAuthResponse maps a login or registration result.
func NewAuthResponse(r *service.AuthResult) AuthResponse {
	return AuthResponse{Token: r.Token, ExpiresAt: r.ExpiresAt, User: NewUserResponse(r.User)}
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phone_number,omitempty"`
	Role        domain.Role `json:"role"`
	EmployeeID  *string     `json:"employee_id,omitempty"`
	IsOnline    bool        `json:"is_online"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewUserResponse maps a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		EmployeeID:  u.EmployeeID,
		IsOnline:    u.IsOnline,
		CreatedAt:   u.CreatedAt,
	}
}

// NewUserResponses maps users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
