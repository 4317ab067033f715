package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or its signature does not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token is structurally valid but past its expiry.
	// Callers distinguish this from ErrInvalidToken to prompt a refresh instead of a hard reject.
	ErrExpiredToken = errors.New("expired token")
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// Claims holds the JWT claims for both access and refresh tokens.
// TokenUse prevents an access token from being accepted on the refresh path and vice versa.
type Claims struct {
	jwt.RegisteredClaims
	TokenUse string `json:"token_use"`
}

// TokenProvider issues and verifies HS256-signed access and refresh tokens
// carrying the user id as subject. Pure: no side effects beyond reading the clock.
type TokenProvider struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given HS256 secret.
// issuer and audience are set on claims and validated on verify.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:     secret,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access-token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access token for the given user.
// Returns the signed token and its expiration time.
func (p *TokenProvider) IssueAccess(userID string) (token string, expiresAt time.Time, err error) {
	return p.issue(userID, tokenUseAccess, p.accessTTL)
}

// IssueRefresh issues a long-lived refresh token for the given user.
// The token itself is never persisted; callers store only its hash.
func (p *TokenProvider) IssueRefresh(userID string) (token string, expiresAt time.Time, err error) {
	return p.issue(userID, tokenUseRefresh, p.refreshTTL)
}

func (p *TokenProvider) issue(userID, use string, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenUse: use,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccess verifies an access token and returns the subject user id.
// Returns ErrExpiredToken when the token is past expiry, ErrInvalidToken otherwise.
func (p *TokenProvider) VerifyAccess(tokenString string) (userID string, err error) {
	return p.verify(tokenString, tokenUseAccess)
}

// VerifyRefresh verifies a refresh token and returns the subject user id.
// Returns ErrExpiredToken when the token is past expiry, ErrInvalidToken otherwise.
func (p *TokenProvider) VerifyRefresh(tokenString string) (userID string, err error) {
	return p.verify(tokenString, tokenUseRefresh)
}

func (p *TokenProvider) verify(tokenString, use string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenUse != use {
		return "", ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return "", ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
