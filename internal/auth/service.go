package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

var (
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = shared.NewDomainError(shared.ErrDuplicate, "User with this email already exists")
	// ErrDuplicatePhone is returned when registering a phone number that already exists.
	ErrDuplicatePhone = shared.NewDomainError(shared.ErrDuplicate, "User with this phone number already exists")
	// ErrPasswordTooLong is returned when the password exceeds what bcrypt can hash.
	ErrPasswordTooLong = shared.NewDomainError(shared.ErrValidation, "Password must not exceed 72 bytes")
)

// maxPasswordBytes is bcrypt's input limit; it counts bytes, not characters.
const maxPasswordBytes = 72

// Service wraps authentication business rules.
type Service struct {
	repo       Repository
	tokens     *TokenIssuer
	bcryptCost int
}

// NewService constructs a new Service. A non-positive cost falls back to bcrypt.DefaultCost.
func NewService(repo Repository, tokens *TokenIssuer, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates an account after checking the email is free.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" || input.Password == "" {
		return nil, shared.NewDomainError(shared.ErrValidation, "Email, name and password are required")
	}

	if len(input.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("auth: lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	var phone *string
	if input.PhoneNumber != nil {
		if p := strings.TrimSpace(*input.PhoneNumber); p != "" {
			phone = &p
		}
	}

	return s.repo.Create(ctx, Account{
		Email:        email,
		Name:         name,
		PhoneNumber:  phone,
		PasswordHash: string(hash),
	})
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: lookup email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// Login authenticates the caller and issues an access/refresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("auth: issue tokens: %w", err)
	}
	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		Account:      *account,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
