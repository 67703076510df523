package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanyysh/Chat02/internal/apperr"
)

func TestIssueAndResolve(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.Issue(7)
	require.NoError(t, err)

	userID, err := svc.Resolve(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, userID)
}

func TestResolveRejectsGarbage(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	_, err := svc.Resolve("not-a-token")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestResolveRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.Issue(7)
	require.NoError(t, err)

	_, err = verifier.Resolve(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestResolveRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", -time.Minute)

	token, err := svc.Issue(7)
	require.NoError(t, err)

	_, err = svc.Resolve(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
