package local

import (
	"time"

	"github.com/classtrack/go-classtrack"
	goerrors "github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the JWT payload minted for a signed-in identity.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService mints and validates the access tokens backing sessions.
type TokenService struct {
	signingKey []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// NewTokenService builds a TokenService from the application config.
func NewTokenService(cfg classtrack.Config) *TokenService {
	return &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		expiration: cfg.GetTokenExpiration(),
		now:        time.Now,
	}
}

// Generate mints a signed token for the identity and returns it with the
// issued and expiry timestamps.
func (s *TokenService) Generate(identity *Identity, role classtrack.Role) (string, time.Time, time.Time, error) {
	issued := s.now()
	expires := issued.Add(s.expiration)

	claims := SessionClaims{
		Email: identity.Email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, time.Time{}, goerrors.Wrap(
			err,
			goerrors.CategoryInternal,
			"failed to sign session token",
		).WithCode(goerrors.CodeInternal)
	}

	return signed, issued, expires, nil
}

// Validate parses and verifies a token previously issued by Generate.
func (s *TokenService) Validate(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, goerrors.New("unexpected signing method", goerrors.CategoryAuth).
				WithTextCode("INVALID_TOKEN").
				WithCode(goerrors.CodeUnauthorized)
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil || !token.Valid {
		return nil, goerrors.Wrap(
			err,
			goerrors.CategoryAuth,
			"invalid or expired session token",
		).WithTextCode("INVALID_TOKEN").WithCode(goerrors.CodeUnauthorized)
	}

	return claims, nil
}
