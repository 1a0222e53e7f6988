package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ghostpic/internal/model"
)

// pqUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// Constraint names from the migrations.
const (
	constraintPostID    = "posts_post_id_key"
	constraintWallet    = "users_wallet_address_key"
	constraintUsername  = "users_username_key"
	constraintNullifier = "users_nullifier_key"
)

// uniqueViolation returns the violated constraint name for a 23505 error.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// storeError marks an unexpected driver failure as ErrStoreUnavailable,
// keeping the cause for logs.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}

// userConflict maps a unique constraint on users to its domain error.
func userConflict(constraint string) error {
	switch constraint {
	case constraintWallet:
		return fmt.Errorf("%w: %w", model.ErrConflict, model.ErrWalletExists)
	case constraintUsername:
		return fmt.Errorf("%w: %w", model.ErrConflict, model.ErrUsernameExists)
	case constraintNullifier:
		return fmt.Errorf("%w: %w", model.ErrConflict, model.ErrNullifierExists)
	default:
		return model.ErrConflict
	}
}
