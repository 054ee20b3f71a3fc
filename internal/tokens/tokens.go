package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload embedded in both token kinds. The kinds are told
// apart by signing secret and lifetime only, never by a field in here.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer signs access and refresh tokens with separate symmetric secrets.
type Issuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (i Issuer) IssueAccess(username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.AccessTTL)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (i Issuer) IssueRefresh(username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.RefreshTTL)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

var (
	// ErrExpired means the signature checked out but the token is past its
	// expiry. Callers treat this differently from ErrInvalid.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers a bad signature, a malformed token, an unexpected
	// signing method and claims without a username.
	ErrInvalid = errors.New("token invalid")
)

// Verifier validates tokens of either kind against the matching secret.
type Verifier struct {
	AccessSecret  []byte
	RefreshSecret []byte
}

func (v Verifier) VerifyAccess(raw string) (*Claims, error) {
	return claimsFromToken(raw, v.AccessSecret)
}

func (v Verifier) VerifyRefresh(raw string) (*Claims, error) {
	return claimsFromToken(raw, v.RefreshSecret)
}

func claimsFromToken(raw string, secret []byte) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !tkn.Valid {
		return nil, ErrInvalid
	}
	if claims.Username == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}
