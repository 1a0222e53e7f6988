package model

import (
	"errors"
	"time"
)

// User is a registered wallet identity.
type User struct {
	ID             int64      `db:"id" json:"id" bson:"uid"`
	Username       *string    `db:"username" json:"username,omitempty" bson:"username,omitempty"`
	PasswordHashed *string    `db:"password_hashed" json:"-" bson:"password_hashed,omitempty"`
	WalletAddress  string     `db:"wallet_address" json:"walletAddress" bson:"wallet_address"`
	UserID         string     `db:"user_id" json:"userId" bson:"user_id"`
	KYCHash        *string    `db:"kyc_hash" json:"kycHash,omitempty" bson:"kyc_hash,omitempty"`
	TxHash         *string    `db:"tx_hash" json:"txHash,omitempty" bson:"tx_hash,omitempty"`
	Nullifier      *string    `db:"nullifier" json:"-" bson:"nullifier,omitempty"`
	Bio            *string    `db:"bio" json:"bio,omitempty" bson:"bio,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty" bson:"gender,omitempty"`
	State          *string    `db:"state" json:"state,omitempty" bson:"state,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt" bson:"updated_at"`
	LastLoginAt    *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty" bson:"last_login_at,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Nullifier     string `json:"nullifier"`
	KYCHash       string `json:"kycHash"`
	WalletAddress string `json:"walletAddress"`
	State         string `json:"state"`
	Password      string `json:"password"`
	Username      string `json:"username"`
	TxHash        string `json:"txHash"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CheckNullifierRequest is the body of POST /auth/check-nullifier.
type CheckNullifierRequest struct {
	Nullifier string `json:"nullifier"`
}

// CheckNullifierResponse reports whether a nullifier can still register.
type CheckNullifierResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// SaveUserRequest is the legacy wallet upsert body.
type SaveUserRequest struct {
	WalletAddress string `json:"walletAddress"`
	UserID        string `json:"userId"`
	TxHash        string `json:"txHash"`
}

// UpdateProfileRequest carries optional profile edits; nil fields are left alone.
type UpdateProfileRequest struct {
	Bio    *string `json:"bio"`
	Gender *string `json:"gender"`
	State  *string `json:"state"`
}

// User constants
const (
	MinPasswordLength = 8
	MaxBioLength      = 500
	UserIDPrefix      = "METIS-"
)

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrWalletExists is returned when a wallet is already registered
	ErrWalletExists = errors.New("wallet already registered")

	// ErrNullifierExists is returned when a nullifier was already used
	ErrNullifierExists = errors.New("nullifier already registered")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidWallet is returned for malformed wallet addresses
	ErrInvalidWallet = errors.New("invalid wallet address")

	ErrPasswordTooShort = errors.New("password too short")
	ErrNullifierMissing = errors.New("nullifier is required")
	ErrBioTooLong       = errors.New("bio too long")
)
