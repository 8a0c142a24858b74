package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is the identity-store record. PartyID links the login back to the
// domain person, mirroring the Party/Person split.
type Account struct {
	Base
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	PartyID      *uuid.UUID `db:"party_id" json:"party_id,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
}

// TokenClaims is the identity extracted from a validated credential.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Roles     []string  `json:"roles"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FirstName       string `json:"first_name" binding:"required"`
	FatherName      string `json:"father_name"`
	LastName        string `json:"last_name" binding:"required"`
	NationalNumber  string `json:"national_number" binding:"required,national_number"`
	Address         string `json:"address"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}
