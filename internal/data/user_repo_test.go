package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	apperrors "github.com/target/noticeboard/internal/errors"
	"github.com/target/noticeboard/internal/ports"
	"github.com/target/noticeboard/internal/testutil"
)

func createTestUser(t *testing.T, db *sql.DB, username string, roles ...domainauth.Role) *User {
	t.Helper()
	u, err := NewUserRepo(db, nil).Create(context.Background(), CreateUserRequest{
		Username:     username,
		PasswordHash: "$2a$10$placeholderplaceholderplaceholderplaceholderplaceho",
		Roles:        roles,
	})
	require.NoError(t, err)
	return u
}

func TestUserRepo_CreateLookupList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db, NewFixedTimeProvider(testutil.TestTime()))

	u, err := repo.Create(ctx, CreateUserRequest{
		Username:     "admin",
		PasswordHash: "hash",
		Roles:        []domainauth.Role{"ROLE_ADMIN", domainauth.RoleMember},
	})
	require.NoError(t, err)
	assert.True(t, u.Enabled)
	assert.Equal(t, []string{"ADMIN", "MEMBER"}, u.Roles)
	assert.True(t, u.CreatedAt.Equal(testutil.TestTime()))

	p, err := repo.LookupUser(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Username)
	assert.Equal(t, "hash", p.CredentialHash)
	assert.True(t, p.HasRole(domainauth.RoleAdmin))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	_, err = repo.Create(ctx, CreateUserRequest{Username: "admin", PasswordHash: "x"})
	assert.True(t, apperrors.IsConflict(err), "duplicate username should conflict: %v", err)
}

func TestUserRepo_LookupUnknownAndDisabled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db, nil)

	_, err := repo.LookupUser(ctx, "ghost")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	createTestUser(t, db, "member", domainauth.RoleMember)
	require.NoError(t, repo.SetEnabled(ctx, "member", false))

	_, err = repo.LookupUser(ctx, "member")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	u, err := repo.Get(ctx, "member")
	require.NoError(t, err)
	assert.False(t, u.Enabled)
}

func TestUserRepo_SetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db, nil)
	createTestUser(t, db, "member")

	require.NoError(t, repo.SetPassword(ctx, "member", "new-hash"))
	p, err := repo.LookupUser(ctx, "member")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", p.CredentialHash)

	assert.ErrorIs(t, repo.SetPassword(ctx, "ghost", "h"), ports.ErrNotFound)
	assert.ErrorIs(t, repo.SetPassword(ctx, "member", ""), ErrPasswordHashRequired)
}

func TestUserRepo_CreateValidation(t *testing.T) {
	repo := NewUserRepo(nil, nil)
	_, err := repo.Create(context.Background(), CreateUserRequest{Username: " ", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrUsernameRequired)
	_, err = repo.Create(context.Background(), CreateUserRequest{Username: "u"})
	assert.ErrorIs(t, err, ErrPasswordHashRequired)
}

func TestUser_PrincipalNormalizesRoles(t *testing.T) {
	u := User{Username: "a", PasswordHash: "h", Roles: []string{"ROLE_ADMIN", "admin", "member"}}
	p := u.Principal()
	assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleMember}, p.Roles)
}
