package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ghostpic/internal/model"
)

const userColumns = `id, username, password_hashed, wallet_address, user_id, kyc_hash, tx_hash,
	nullifier, bio, gender, state, created_at, updated_at, last_login_at`

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, password_hashed, wallet_address, user_id, kyc_hash, tx_hash,
		                   nullifier, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.PasswordHashed,
		u.WalletAddress,
		u.UserID,
		u.KYCHash,
		u.TxHash,
		u.Nullifier,
		u.State,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return userConflict(constraint)
		}
		return storeError("insert user", err)
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, op, where string, arg interface{}) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, storeError(op, err)
	}
	return &u, nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, "get user by id", "id = $1", id)
}

// GetByUsername retrieves a user by their username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "get user by username", "username = $1", username)
}

// GetByWallet retrieves a user by checksummed wallet address
func (r *userRepository) GetByWallet(ctx context.Context, wallet string) (*model.User, error) {
	return r.getOne(ctx, "get user by wallet", "wallet_address = $1", wallet)
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
	if err != nil {
		return false, storeError("check username", err)
	}
	return exists, nil
}

func (r *userRepository) ExistsByNullifier(ctx context.Context, nullifier string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE nullifier = $1)`, nullifier)
	if err != nil {
		return false, storeError("check nullifier", err)
	}
	return exists, nil
}

// UpsertWallet inserts or refreshes the wallet's user id and tx hash.
func (r *userRepository) UpsertWallet(ctx context.Context, wallet, userID, txHash string) (*model.User, error) {
	query := `
		INSERT INTO users (wallet_address, user_id, tx_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (wallet_address)
		DO UPDATE SET user_id = EXCLUDED.user_id, tx_hash = EXCLUDED.tx_hash, updated_at = NOW()
		RETURNING ` + userColumns

	var u model.User
	if err := r.db.GetContext(ctx, &u, query, wallet, userID, txHash); err != nil {
		return nil, storeError("upsert wallet user", err)
	}
	return &u, nil
}

// UpdateProfile applies the non-nil fields of req.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error) {
	query := `
		UPDATE users
		SET bio = COALESCE($2, bio), gender = COALESCE($3, gender), state = COALESCE($4, state),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id, req.Bio, req.Gender, req.State)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("update profile", err)
	}
	return &u, nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id); err != nil {
		return storeError("touch last login", err)
	}
	return nil
}
