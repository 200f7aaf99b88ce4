package service

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/cache"
	"github.com/postscript-blog/postscript/web/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupValidation(t *testing.T) {
	setup(t)
	s := UserService{}

	tests := []struct {
		name     string
		username string
		email    string
		password string
		details  int
	}{
		{"short username", "ab", "a@example.com", "secret1", 1},
		{"long username", "abcdefghijklmnopqrstu", "a@example.com", "secret1", 1},
		{"bad chars", "bad name!", "a@example.com", "secret1", 1},
		{"bad email", "alice", "not-an-email", "secret1", 1},
		{"short password", "alice", "a@example.com", "12345", 1},
		{"everything wrong", "x", "nope", "1", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Signup(tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Len(t, common.Details(err), tt.details)
		})
	}
}

func TestSignupHashesPasswordAndNormalizesEmail(t *testing.T) {
	setup(t)
	s := UserService{}
	u, err := s.Signup("  alice_1 ", " Alice@Example.COM ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice_1", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.NotContains(t, u.PasswordHash, "secret1")
}

func TestSignupDuplicateIsConflict(t *testing.T) {
	setup(t)
	s := UserService{}
	_, err := s.Signup("alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = s.Signup("alice", "other@example.com", "secret1")
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = s.Signup("bob", "ALICE@example.com", "secret1")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	setup(t)
	s := UserService{}
	_, err := s.Signup("alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, wrongPassword := s.Login("alice", "wrong-password")
	_, unknownUser := s.Login("nobody", "secret1")

	assert.ErrorIs(t, wrongPassword, common.ErrAuth)
	assert.ErrorIs(t, unknownUser, common.ErrAuth)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, common.Message(wrongPassword), common.Message(unknownUser))
}

func TestLoginSuccessReturnsPrincipal(t *testing.T) {
	setup(t)
	s := UserService{}
	u, err := s.Signup("alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	p, err := s.Login("alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, &entity.Principal{UserId: u.Id, Username: "alice"}, p)
}

func TestUpdateProfile(t *testing.T) {
	uploads := setup(t)
	s := UserService{}
	p := signup(t, "alice")

	_, err := s.UpdateProfile(p, string(bytes.Repeat([]byte("x"), 201)), nil)
	assert.ErrorIs(t, err, common.ErrValidation)

	u, err := s.UpdateProfile(p, "hello there", fileHeader(t, "avatar", "me.png", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "hello there", u.Bio)
	first := u.Avatar
	require.FileExists(t, filepath.Join(uploads, filepath.Base(first)))

	u, err = s.UpdateProfile(p, "new bio", fileHeader(t, "avatar", "me2.png", pngHeader))
	require.NoError(t, err)
	assert.NotEqual(t, first, u.Avatar)
	_, statErr := os.Stat(filepath.Join(uploads, filepath.Base(first)))
	assert.True(t, os.IsNotExist(statErr), "old avatar should be removed")

	stored, err := s.GetById(p.UserId)
	require.NoError(t, err)
	assert.Equal(t, "new bio", stored.Bio)
	assert.Equal(t, u.Avatar, stored.Avatar)
}

func TestUpdateProfileRequiresPrincipal(t *testing.T) {
	setup(t)
	s := UserService{}
	_, err := s.UpdateProfile(nil, "bio", nil)
	assert.ErrorIs(t, err, common.ErrAuth)
}

func TestSetPassword(t *testing.T) {
	setup(t)
	setupRedis(t)
	s := UserService{}
	alice := signup(t, "alice")
	signedIn(t, alice, "laptop")

	require.NoError(t, s.SetPassword(ctx, "alice", "brand-new"))
	_, err := s.Login("alice", "brand-new")
	assert.NoError(t, err)

	_, err = cache.Get(ctx, cache.KeySessionPrefix+"laptop")
	assert.ErrorIs(t, err, cache.ErrMiss)

	assert.ErrorIs(t, s.SetPassword(ctx, "ghost", "brand-new"), common.ErrNotFound)
}
