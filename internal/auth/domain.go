package auth

import "time"

// Account represents a registered user account.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	PhoneNumber  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email       string
	Name        string
	PhoneNumber *string
	Password    string
}

// LoginResult is returned after successful authentication.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Account      Account
}
