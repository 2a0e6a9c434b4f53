package local

import (
	"testing"
	"time"

	"github.com/classtrack/go-classtrack"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	signingKey string
	tokenTTL   time.Duration
	codeTTL    time.Duration
}

func (c testConfig) GetSigningKey() string {
	if c.signingKey == "" {
		return "test-signing-key"
	}
	return c.signingKey
}

func (c testConfig) GetIssuer() string { return "classtrack-test" }

func (c testConfig) GetTokenExpiration() time.Duration {
	if c.tokenTTL == 0 {
		return time.Hour
	}
	return c.tokenTTL
}

func (c testConfig) GetCodeExpiration() time.Duration {
	if c.codeTTL == 0 {
		return 15 * time.Minute
	}
	return c.codeTTL
}

func (c testConfig) GetRejectedRouteKey() string { return "rejected_route" }

func (c testConfig) GetRejectedRouteDefault() string { return "/dashboard" }

var _ classtrack.Config = testConfig{}

func testIdentity() *Identity {
	return &Identity{
		ID:    uuid.New(),
		Email: "pepe@example.com",
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(testConfig{})
	identity := testIdentity()

	token, issued, expires, err := svc.Generate(identity, classtrack.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, expires.After(issued))

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID.String(), claims.Subject)
	assert.Equal(t, "pepe@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	svc := NewTokenService(testConfig{tokenTTL: time.Minute})

	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }

	token, _, _, err := svc.Generate(testIdentity(), classtrack.RoleStudent)
	require.NoError(t, err)

	svc.now = time.Now

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	issuing := NewTokenService(testConfig{signingKey: "key-one"})
	verifying := NewTokenService(testConfig{signingKey: "key-two"})

	token, _, _, err := issuing.Generate(testIdentity(), classtrack.RoleStudent)
	require.NoError(t, err)

	_, err = verifying.Validate(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc := NewTokenService(testConfig{})

	_, err := svc.Validate("not-a-token")
	assert.Error(t, err)
}
