package user

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Ref is the shape other documents carry when they expand an author reference.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("user with this email already exists")
	ErrHasContent = errors.New("user still owns posts or comments")
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=80"`
	Email string `json:"email" binding:"required,email"`
}
