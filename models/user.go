package models

import (
	"time"
)

// Roles válidos del sistema
const (
	RolePatient   = "patient"
	RoleReception = "reception"
	RoleAdmin     = "admin"
	RoleDoctor    = "doctor"
)

// ValidRoles acepta únicamente los roles conocidos en el registro
var ValidRoles = map[string]bool{
	RolePatient:   true,
	RoleReception: true,
	RoleAdmin:     true,
	RoleDoctor:    true,
}

// User representa la tabla users en la base de datos
type User struct {
	ID             int       `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	FullName       string    `json:"full_name" db:"full_name"`
	Email          *string   `json:"email,omitempty" db:"email"`
	Password       string    `json:"-" db:"password"`
	Role           string    `json:"role" db:"role"`
	Specialization *string   `json:"specialization,omitempty" db:"specialization"`
	MFAEnabled     bool      `json:"mfa_enabled" db:"mfa_enabled"`
	MFASecret      string    `json:"-" db:"mfa_secret"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// UserResponse representa la respuesta sin datos sensibles
type UserResponse struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	Email          *string   `json:"email,omitempty"`
	Role           string    `json:"role"`
	Specialization *string   `json:"specialization,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PublicView recorta el usuario a sus campos publicables
func (u *User) PublicView() UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		Email:          u.Email,
		Role:           u.Role,
		Specialization: u.Specialization,
		CreatedAt:      u.CreatedAt,
	}
}

// RegisterRequest representa la solicitud de registro
type RegisterRequest struct {
	Username       string `json:"username" validate:"required"`
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email,omitempty"`
	Password       string `json:"password" validate:"required"`
	Role           string `json:"role" validate:"required"`
	Specialization string `json:"specialization,omitempty"` // doctors only
}

// LoginRequest representa la solicitud de login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfa_code,omitempty"` // required once MFA is enabled
}

// LoginResponse representa la respuesta del login con tokens
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // segundos
	User         UserResponse `json:"user"`
}

// RefreshToken representa un token de actualización persistido
type RefreshToken struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	IsRevoked bool      `json:"is_revoked" db:"is_revoked"`
}

// RefreshRequest para solicitar nuevo token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// MFASetupRequest exige la contraseña antes de generar el secreto
type MFASetupRequest struct {
	Password string `json:"password" validate:"required"`
}

// MFASetupResponse entrega el secreto TOTP recién generado
type MFASetupResponse struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qr_code_url"`
}

// MFAVerifyRequest confirma la activación de MFA
type MFAVerifyRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}
