// Package auth holds the stateless pieces of authentication and
// authorization: bearer token issuance/validation, the request principal,
// and the task ownership rule.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and validates HS256 JWTs. It is immutable after
// construction and safe for concurrent use.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenService(secretKey string, ttl time.Duration) (*TokenService, error) {
	if secretKey == "" {
		return nil, errors.New("token secret key must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenService{secretKey: []byte(secretKey), ttl: ttl}, nil
}

// ExpirationTTL is the lifetime of every issued token.
func (s *TokenService) ExpirationTTL() time.Duration {
	return s.ttl
}

// Issue signs a token for principalID with iat=now and exp=now+TTL.
func (s *TokenService) Issue(principalID int64, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(principalID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})

	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Validate verifies the signature of tokenString and that now < exp, then
// returns the subject. Errors are one of common.ErrTokenMalformed,
// common.ErrTokenSignature or common.ErrTokenExpired.
func (s *TokenService) Validate(tokenString string, now time.Time) (int64, error) {
	claims := &jwt.RegisteredClaims{}

	// Expiry is checked below against the caller's clock, so the parser's
	// own time-based validation is switched off.
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return 0, fmt.Errorf("%w: %v", common.ErrTokenSignature, err)
		default:
			return 0, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
		}
	}

	if claims.ExpiresAt == nil {
		return 0, fmt.Errorf("%w: missing exp", common.ErrTokenMalformed)
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return 0, common.ErrTokenExpired
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject", common.ErrTokenMalformed)
	}
	return id, nil
}

func (s *TokenService) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return s.secretKey, nil
}
