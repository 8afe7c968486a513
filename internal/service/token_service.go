package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"company-wallet/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

// walletClaims is the JWT payload. Subject holds the ledger account id.
type walletClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 tokens.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate signs a token for p and returns it with its expiry.
func (s *JWTTokenService) Generate(p domain.Principal) (string, time.Time, error) {
	if !p.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown role %q", p.Role)
	}
	if p.AccountID <= 0 {
		return "", time.Time{}, fmt.Errorf("invalid account id %d", p.AccountID)
	}

	now := time.Now()
	expiresAt := now.Add(s.expiry)
	claims := walletClaims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.AccountID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate verifies signature, issuer and expiry and resolves the principal.
func (s *JWTTokenService) Validate(tokenString string) (*domain.Principal, error) {
	var claims walletClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || accountID <= 0 {
		return nil, fmt.Errorf("invalid account id in token: %q", claims.Subject)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, errors.New("token carries no valid role")
	}

	return &domain.Principal{AccountID: accountID, Role: role}, nil
}
