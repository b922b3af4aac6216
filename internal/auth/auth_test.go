package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showlog/showlog/internal/auth"
	"github.com/showlog/showlog/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc, err := auth.NewService(tdb.Store, "test-secret")
	require.NoError(t, err)

	ctx := context.Background()

	user, err := svc.Register(ctx, "alpha", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alpha", user.Username)
	assert.NotZero(t, user.ID)

	loggedIn, token, err := svc.Login(ctx, "alpha", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc, err := auth.NewService(tdb.Store, "test-secret")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.Register(ctx, "alpha", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alpha", "other-password")
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)
}

func TestLoginWrongPassword(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc, err := auth.NewService(tdb.Store, "test-secret")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.Register(ctx, "alpha", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alpha", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegisterRequiresPassword(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc, err := auth.NewService(tdb.Store, "test-secret")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alpha", "")
	assert.ErrorIs(t, err, auth.ErrPasswordRequired)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc, err := auth.NewService(tdb.Store, "test-secret")
	require.NoError(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
