package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"ghostpic/internal/config"
	"ghostpic/internal/model"
	"ghostpic/internal/repository"
)

const (
	generatedUsernamePrefix = "ghost_"
	generatedUsernameLen    = 6
	usernameAttempts        = 3
)

// UserService handles business logic for user operations
type UserService struct {
	repo         repository.UserRepository
	storeTimeout time.Duration
}

func NewUserService(repo repository.UserRepository, cfg *config.Config) *UserService {
	return &UserService{
		repo:         repo,
		storeTimeout: cfg.StoreTimeout,
	}
}

// CheckNullifier reports whether a nullifier hash is still free to register.
func (s *UserService) CheckNullifier(ctx context.Context, nullifier string) (*model.CheckNullifierResponse, error) {
	nullifier = strings.TrimSpace(nullifier)
	if nullifier == "" {
		return nil, model.Invalid(model.ErrNullifierMissing)
	}

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	exists, err := s.repo.ExistsByNullifier(sctx, nullifier)
	if err != nil {
		return nil, fmt.Errorf("check nullifier: %w", err)
	}
	if exists {
		return &model.CheckNullifierResponse{Available: false, Message: "This identity has already been registered"}, nil
	}
	return &model.CheckNullifierResponse{Available: true, Message: "Identity can be registered"}, nil
}

// Register creates a wallet account bound to a nullifier. A username is
// generated when none is supplied.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	nullifier := strings.TrimSpace(req.Nullifier)
	if nullifier == "" {
		return nil, model.Invalid(model.ErrNullifierMissing)
	}

	wallet, err := NormalizeWallet(req.WalletAddress)
	if err != nil {
		return nil, err
	}

	if utf8.RuneCountInString(req.Password) < model.MinPasswordLength {
		return nil, model.Invalid(model.ErrPasswordTooShort)
	}

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	taken, err := s.repo.ExistsByNullifier(sctx, nullifier)
	if err != nil {
		return nil, fmt.Errorf("failed to check nullifier: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %w", model.ErrConflict, model.ErrNullifierExists)
	}

	username, err := s.pickUsername(sctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hashedPassword)

	user := &model.User{
		Username:       &username,
		PasswordHashed: &hashed,
		WalletAddress:  wallet,
		UserID:         DeriveUserID(wallet),
		Nullifier:      &nullifier,
		KYCHash:        optional(req.KYCHash),
		TxHash:         optional(req.TxHash),
		State:          optional(req.State),
	}

	if err := s.repo.Create(sctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[UserService] Registered user=%d wallet=%s", user.ID, user.WalletAddress)
	return user, nil
}

// pickUsername checks a requested username or generates a free ghost_xxxxxx one.
func (s *UserService) pickUsername(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		exists, err := s.repo.ExistsByUsername(ctx, requested)
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			return "", fmt.Errorf("%w: %w", model.ErrConflict, model.ErrUsernameExists)
		}
		return requested, nil
	}

	for i := 0; i < usernameAttempts; i++ {
		candidate := generatedUsernamePrefix + randomBase36(rand.Reader, generatedUsernameLen)
		exists, err := s.repo.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %w", model.ErrConflict, model.ErrUsernameExists)
}

// Login authenticates by username, or by wallet address when the identifier is one.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	identifier := strings.TrimSpace(req.Username)

	var user *model.User
	var err error
	if wallet, werr := NormalizeWallet(identifier); werr == nil {
		user, err = s.repo.GetByWallet(sctx, wallet)
	} else {
		user, err = s.repo.GetByUsername(sctx, identifier)
	}
	if err != nil {
		if errors.Is(err, model.ErrStoreUnavailable) {
			return nil, err
		}
		// Don't reveal whether the account exists
		return nil, model.ErrInvalidCredentials
	}

	// Wallet-only records from save-user have no password.
	if user.PasswordHashed == nil {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(sctx, user.ID); err != nil {
		log.Printf("[UserService] TouchLastLogin failed: user=%d err=%v", user.ID, err)
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.GetByID(sctx, id)
}

// GetByWallet looks a user up by wallet address in any letter case.
func (s *UserService) GetByWallet(ctx context.Context, wallet string) (*model.User, error) {
	normalized, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.GetByWallet(sctx, normalized)
}

// SaveWalletUser creates or updates the wallet-only record written after the
// on-chain registration transaction. userId defaults to the derived METIS id.
func (s *UserService) SaveWalletUser(ctx context.Context, req *model.SaveUserRequest) (*model.User, error) {
	wallet, err := NormalizeWallet(req.WalletAddress)
	if err != nil {
		return nil, err
	}

	txHash := strings.TrimSpace(req.TxHash)
	if txHash == "" {
		return nil, model.Invalid(errors.New("txHash is required"))
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = DeriveUserID(wallet)
	}

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.repo.UpsertWallet(sctx, wallet, userID, txHash)
	if err != nil {
		return nil, fmt.Errorf("save wallet user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error) {
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > model.MaxBioLength {
		return nil, model.Invalid(model.ErrBioTooLong)
	}
	req.Gender = trimmed(req.Gender)
	req.State = trimmed(req.State)

	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.UpdateProfile(sctx, id, req)
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
