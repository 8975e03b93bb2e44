package data

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	apperrors "github.com/target/noticeboard/internal/errors"
	"github.com/target/noticeboard/internal/ports"
	"github.com/target/noticeboard/internal/testutil"
)

func TestTokenRepo_CreateGetDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "member")
	repo := NewTokenRepo(db)

	tok := domainauth.RememberMeToken{Series: "s1", Token: "t1", Username: "member", LastUsed: testutil.TestTime()}
	require.NoError(t, repo.Create(ctx, tok))

	got, err := repo.GetBySeries(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Token)
	assert.Equal(t, "member", got.Username)
	assert.True(t, got.LastUsed.Equal(tok.LastUsed))

	err = repo.Create(ctx, tok)
	assert.True(t, apperrors.IsConflict(err), "duplicate series should conflict: %v", err)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.GetBySeries(ctx, "s1")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "s1"))
}

func TestTokenRepo_RotateCompareAndSwap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "member")
	repo := NewTokenRepo(db)
	require.NoError(t, repo.Create(ctx, domainauth.RememberMeToken{
		Series: "s1", Token: "t0", Username: "member", LastUsed: testutil.TestTime(),
	}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Rotate(ctx, "s1", "t0", "next-"+string(rune('a'+i)), time.Now())
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())

	ok, err := repo.Rotate(ctx, "s1", "t0", "again", time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "stale expected value must not rotate")
}

func TestTokenRepo_DeleteForUserAndExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "a")
	createTestUser(t, db, "b")
	repo := NewTokenRepo(db)
	now := testutil.TestTime()

	for _, tok := range []domainauth.RememberMeToken{
		{Series: "a-old", Token: "x", Username: "a", LastUsed: now.Add(-48 * time.Hour)},
		{Series: "a-new", Token: "x", Username: "a", LastUsed: now},
		{Series: "b-old", Token: "x", Username: "b", LastUsed: now.Add(-72 * time.Hour)},
	} {
		require.NoError(t, repo.Create(ctx, tok))
	}

	n, err := repo.DeleteExpired(ctx, now.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "batch limits deletions")

	_, err = repo.GetBySeries(ctx, "b-old")
	assert.ErrorIs(t, err, ports.ErrNotFound, "oldest row goes first")

	n, err = repo.DeleteExpired(ctx, now.Add(-24*time.Hour), 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteForUser(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTokenRepo_DeletingUserCascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "member")
	repo := NewTokenRepo(db)
	require.NoError(t, repo.Create(ctx, domainauth.RememberMeToken{
		Series: "s1", Token: "t", Username: "member", LastUsed: time.Now(),
	}))

	_, err := db.ExecContext(ctx, `DELETE FROM users WHERE username = 'member'`)
	require.NoError(t, err)

	_, err = repo.GetBySeries(ctx, "s1")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
