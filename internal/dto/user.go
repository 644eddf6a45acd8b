package dto

import (
	"time"

	"repairdesk/internal/domain"
)

type SendCodeRequest struct {
	Phone string `json:"phone"`
}

type RegisterRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type UserDTO struct {
	ID        uint      `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Phone:     u.Phone,
		Name:      u.Name,
		Role:      string(u.Role),
		IsActive:  u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserDTO   `json:"user"`
}

type UploadResponse struct {
	URL string `json:"url"`
}
