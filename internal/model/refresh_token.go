package model

import (
	"errors"
	"time"
)

// RefreshToken is a stored refresh token; only its hash is persisted.
type RefreshToken struct {
	ID         string     `db:"id" json:"id" bson:"_id"`
	UserID     int64      `db:"user_id" json:"userId" bson:"user_id"`
	TokenHash  string     `db:"token_hash" json:"-" bson:"token_hash"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt" bson:"expires_at"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt" bson:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revokedAt,omitempty" bson:"revoked_at,omitempty"`
	ReplacedBy *string    `db:"replaced_by" json:"replacedBy,omitempty" bson:"replaced_by,omitempty"`
	DeviceInfo *string    `db:"device_info" json:"deviceInfo,omitempty" bson:"device_info,omitempty"`
	IPAddress  *string    `db:"ip_address" json:"ipAddress,omitempty" bson:"ip_address,omitempty"`
}

// IsRevoked returns true if the token has been revoked
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired returns true if the token has expired
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// Refresh token errors
var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenReused   = errors.New("refresh token reuse detected")
)

// Token API error codes (used in HTTP responses)
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenReused  = "TOKEN_REUSED"
)

// TokenPair is returned after login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// RefreshRequest is the request body for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the request body for POST /auth/logout
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}
