package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the JWT payload carried by access and refresh tokens.
type Claims struct {
	AccountID int64  `json:"id"`
	Email     string `json:"email"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair holds freshly issued tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer signs and verifies HS256 tokens with a shared secret.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer builds a TokenIssuer.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("auth: token secret required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}, nil
}

// AccessTTL reports the access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

// Issue signs an access and a refresh token for the account.
func (t *TokenIssuer) Issue(accountID int64, email string) (TokenPair, error) {
	access, err := t.sign(accountID, email, tokenTypeAccess, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(accountID, email, tokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (t *TokenIssuer) sign(accountID int64, email, typ string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign %s token: %w", typ, err)
	}
	return signed, nil
}

// VerifyAccess validates signature, expiry and token type of an access token.
func (t *TokenIssuer) VerifyAccess(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("auth: token not valid")
	}
	if claims.Type != tokenTypeAccess {
		return nil, fmt.Errorf("auth: unexpected token type %q", claims.Type)
	}
	if claims.AccountID <= 0 {
		return nil, errors.New("auth: token missing account id")
	}
	return claims, nil
}
