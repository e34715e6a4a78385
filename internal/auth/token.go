// ABOUTME: Session token codec: signs and verifies HS256 JWTs carrying portal claims
// ABOUTME: Uses an injectable clock and reports every failure as ErrInvalidToken

package auth

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed lifetime of a session token.
const TokenTTL = 7 * 24 * time.Hour

// MinSecretLength is the minimum signing secret size in bytes.
const MinSecretLength = 32

// Token errors
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingClaim   = errors.New("missing required claim")
	ErrSecretTooShort = errors.New("jwt secret too short")
)

// rejection reasons, logged only
const (
	reasonMalformed = "malformed"
	reasonSignature = "signature"
	reasonExpired   = "expired"
	reasonClaims    = "claims"
)

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(logger *slog.Logger) CodecOption {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Codec signs identities into tokens and verifies tokens back into claims.
// It is immutable after construction and safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
	logger *slog.Logger
	parser *jwt.Parser
}

// NewCodec creates a codec bound to the given shared secret.
// The secret is copied; later changes to the caller's slice have no effect.
func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, MinSecretLength)
	}

	c := &Codec{
		secret: bytes.Clone(secret),
		now:    time.Now,
		logger: slog.Default().With("component", "token"),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Expiry is checked against c.now below so the clock stays injectable.
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)

	return c, nil
}

// Sign issues a token for the identity with iat=now and exp=now+TokenTTL.
func (c *Codec) Sign(id Identity) (string, error) {
	if id.UserID == "" {
		return "", fmt.Errorf("%w: userId", ErrMissingClaim)
	}
	if !id.Role.Valid() {
		return "", fmt.Errorf("%w: role", ErrMissingClaim)
	}

	now := c.now()
	claims := &Claims{
		Identity: Identity{
			UserID: id.UserID,
			Email:  NormalizeEmail(id.Email),
			Role:   id.Role,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and authenticates a token.
// Any failure yields ErrInvalidToken; the specific reason is only logged.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	if strings.Count(tokenString, ".") != 2 {
		return nil, c.reject(reasonMalformed, nil)
	}

	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, c.key)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, c.reject(reasonSignature, err)
		}
		return nil, c.reject(reasonMalformed, err)
	}
	if !token.Valid {
		return nil, c.reject(reasonSignature, nil)
	}

	if claims.ExpiresAt == nil {
		return nil, c.reject(reasonClaims, fmt.Errorf("%w: exp", ErrMissingClaim))
	}
	if c.now().After(claims.ExpiresAt.Time) {
		return nil, c.reject(reasonExpired, nil)
	}
	if claims.UserID == "" {
		return nil, c.reject(reasonClaims, fmt.Errorf("%w: userId", ErrMissingClaim))
	}
	if !claims.Role.Valid() {
		return nil, c.reject(reasonClaims, fmt.Errorf("unknown role %q", claims.Role))
	}

	return claims, nil
}

// key returns the HMAC secret after confirming the token's signing method.
func (c *Codec) key(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return c.secret, nil
}

func (c *Codec) reject(reason string, err error) error {
	if err != nil {
		c.logger.Debug("token rejected", "reason", reason, "error", err)
	} else {
		c.logger.Debug("token rejected", "reason", reason)
	}
	return ErrInvalidToken
}
