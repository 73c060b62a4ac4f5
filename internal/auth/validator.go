package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a bearer token that failed verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity provider claims the server reads.
type Claims struct {
	jwt.RegisteredClaims
	TenantID          string `json:"tenant_id,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
}

// Tenant returns the tenant bound to the token: the tenant_id claim, or the
// issuer when the provider does not set one (one realm per tenant).
func (c *Claims) Tenant() string {
	if c.TenantID != "" {
		return c.TenantID
	}
	return c.Issuer
}

// JWTValidator verifies identity provider tokens.
type JWTValidator struct {
	keyFunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

// NewHMACValidator verifies HS256 tokens signed with secret.
func NewHMACValidator(secret []byte, issuer string) (*JWTValidator, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("hmac secret is empty")
	}
	return &JWTValidator{
		keyFunc: func(*jwt.Token) (interface{}, error) { return secret, nil },
		opts:    parserOptions(jwt.SigningMethodHS256.Alg(), issuer),
	}, nil
}

// NewRSAValidator verifies RS256 tokens against a PEM encoded public key.
func NewRSAValidator(publicKeyPEM []byte, issuer string) (*JWTValidator, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &JWTValidator{
		keyFunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		opts:    parserOptions(jwt.SigningMethodRS256.Alg(), issuer),
	}, nil
}

// NewRSAValidatorFromFile reads the public key at path.
func NewRSAValidatorFromFile(path, issuer string) (*JWTValidator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return NewRSAValidator(data, issuer)
}

func parserOptions(alg, issuer string) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return opts
}

// Validate parses and verifies a token string.
func (v *JWTValidator) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.keyFunc, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ResolveTenant verifies the token and returns its tenant.
func (v *JWTValidator) ResolveTenant(_ context.Context, token string) (string, error) {
	claims, err := v.Validate(token)
	if err != nil {
		return "", err
	}
	tenant := claims.Tenant()
	if tenant == "" {
		return "", fmt.Errorf("%w: no tenant binding", ErrInvalidToken)
	}
	return tenant, nil
}
