package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"metrics-broker/src/helpers"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isAuthError(err error) bool {
	var ae *helpers.AuthenticationError
	return errors.As(err, &ae)
}

// -----------------------------------------------------------------------------

func TestStaticValidator(t *testing.T) {
	v := NewStaticValidator([]models.MTokenGrant{
		{Token: "valid-token-123", TenantID: "t1", UserID: "u1"},
		{Token: "tenant-wide", TenantID: "t2"},
		{Token: "open"},
		{Token: ""},
	})
	ctx := context.Background()

	id, err := v.Validate(ctx, "valid-token-123", "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.Identity{TenantID: "t1", UserID: "u1"}, id)

	_, err = v.Validate(ctx, "valid-token-123", "t1", "someone-else")
	assert.True(t, isAuthError(err))

	id, err = v.Validate(ctx, "tenant-wide", "t2", "anyone")
	require.NoError(t, err)
	assert.Equal(t, "anyone", id.UserID)

	_, err = v.Validate(ctx, "tenant-wide", "t3", "anyone")
	assert.Error(t, err)

	id, err = v.Validate(ctx, "open", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, interfaces.Identity{TenantID: "x", UserID: "y"}, id)

	_, err = v.Validate(ctx, "", "x", "y")
	assert.Error(t, err, "empty grant tokens are ignored")

	_, err = v.Validate(ctx, "bogus", "t1", "u1")
	assert.Error(t, err)
}

func TestStaticValidatorHonoursContext(t *testing.T) {
	v := NewStaticValidator([]models.MTokenGrant{{Token: "open"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Validate(ctx, "open", "t", "u")
	assert.ErrorIs(t, err, context.Canceled)
}

// -----------------------------------------------------------------------------

func TestJWTValidator(t *testing.T) {
	const secret = "s3cret"
	v := NewJWTValidator(secret, 0)
	ctx := context.Background()

	token, err := IssueToken(secret, "t1", "u1", time.Minute)
	require.NoError(t, err)

	id, err := v.Validate(ctx, token, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.Identity{TenantID: "t1", UserID: "u1"}, id)

	id, err = v.Validate(ctx, token, "", "")
	require.NoError(t, err)
	assert.Equal(t, "t1", id.TenantID, "claims fill in what the client left out")

	_, err = v.Validate(ctx, token, "t2", "u1")
	assert.True(t, isAuthError(err))

	_, err = v.Validate(ctx, token, "t1", "u2")
	assert.True(t, isAuthError(err))

	forged, err := IssueToken("other", "t1", "u1", time.Minute)
	require.NoError(t, err)
	_, err = v.Validate(ctx, forged, "t1", "u1")
	assert.True(t, isAuthError(err))

	expired, err := IssueToken(secret, "t1", "u1", -time.Minute)
	require.NoError(t, err)
	_, err = v.Validate(ctx, expired, "t1", "u1")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = v.Validate(ctx, "not-a-jwt", "t1", "u1")
	assert.Error(t, err)
}

func TestJWTValidatorRejectsOtherAlgorithms(t *testing.T) {
	const secret = "s3cret"
	v := NewJWTValidator(secret, 0)

	claims := Claims{TenantID: "t1", UserID: "u1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), token, "t1", "u1")
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

type fakeNetwork struct {
	body []byte
	err  error
	got  interface{}
}

func (f *fakeNetwork) Get(context.Context, string, map[string]string) ([]byte, error) {
	return nil, errors.New("unexpected GET")
}

func (f *fakeNetwork) PostJSON(_ context.Context, _ string, body interface{}) ([]byte, error) {
	f.got = body
	return f.body, f.err
}

func TestRemoteValidator(t *testing.T) {
	ctx := context.Background()

	nm := &fakeNetwork{body: []byte(`{"valid":true,"tenantId":"t9"}`)}
	id, err := NewRemoteValidator("http://auth/check", nm).Validate(ctx, "tok", "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.Identity{TenantID: "t9", UserID: "u1"}, id)
	assert.Equal(t, remoteRequest{Token: "tok", TenantID: "t1", UserID: "u1"}, nm.got)

	nm = &fakeNetwork{body: []byte(`{"valid":false,"reason":"revoked"}`)}
	_, err = NewRemoteValidator("http://auth/check", nm).Validate(ctx, "tok", "t1", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoked")

	nm = &fakeNetwork{body: []byte(`<html>`)}
	_, err = NewRemoteValidator("http://auth/check", nm).Validate(ctx, "tok", "t1", "u1")
	assert.True(t, isAuthError(err))

	nm = &fakeNetwork{err: errors.New("connection refused")}
	_, err = NewRemoteValidator("http://auth/check", nm).Validate(ctx, "tok", "t1", "u1")
	assert.True(t, isAuthError(err))
}

// -----------------------------------------------------------------------------

func TestNewValidator(t *testing.T) {
	cfg := &models.MConfig{}

	v, err := NewValidator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &StaticValidator{}, v)

	cfg.Auth = models.MAuthConfig{Mode: "JWT", JWTSecret: "x"}
	v, err = NewValidator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &JWTValidator{}, v)

	cfg.Auth = models.MAuthConfig{Mode: "remote", RemoteURL: "http://auth"}
	_, err = NewValidator(cfg, nil)
	assert.Error(t, err)
	v, err = NewValidator(cfg, &fakeNetwork{})
	require.NoError(t, err)
	assert.IsType(t, &RemoteValidator{}, v)

	cfg.Auth = models.MAuthConfig{Mode: "ldap"}
	_, err = NewValidator(cfg, nil)
	assert.Error(t, err)
}
