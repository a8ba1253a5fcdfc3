package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/testutil"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

var client = utilities.ClientInfo{IP: "10.0.0.1", UserAgent: "test-agent"}

func TestCreate_ReplacesEarlierSessions(t *testing.T) {
	// Arrange
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock()
	svc := NewService(db, Config{}, clock, zap.NewNop().Sugar())
	u := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})
	ctx := context.Background()

	// Act
	first, err := svc.Create(ctx, u.ID, client)
	require.NoError(t, err)
	second, err := svc.Create(ctx, u.ID, client)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, testutil.CountSessions(t, db, u.ID))
	assert.NotEqual(t, first.ID, second.ID)

	_, ok := svc.Validate(ctx, first.ID)
	assert.False(t, ok, "evicted session must not validate")
	p, ok := svc.Validate(ctx, second.ID)
	require.True(t, ok)
	assert.Equal(t, u.ID, p.User.ID)
}

func TestCreate_StoresHashNotToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{}, testutil.NewClock(), nil)
	u := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})

	sess, err := svc.Create(context.Background(), u.ID, client)
	require.NoError(t, err)

	var stored string
	require.NoError(t, db.Get(&stored, db.Rebind(`SELECT token_hash FROM sessions WHERE id = ?`), sess.ID))
	assert.NotEqual(t, sess.ID, stored)
	assert.Equal(t, HashToken(sess.ID), stored)
	assert.Equal(t, testutil.Epoch.Add(DefaultIdleTimeout), sess.ExpiresAt)
}

func TestValidate_SlidesIdleWindow(t *testing.T) {
	// Requirement: each validation pushes expires_at to now + idle timeout.
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock()
	svc := NewService(db, Config{}, clock, nil)
	u := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})
	ctx := context.Background()

	sess, err := svc.Create(ctx, u.ID, client)
	require.NoError(t, err)

	clock.Advance(50 * time.Minute)
	p, ok := svc.Validate(ctx, sess.ID)
	require.True(t, ok)
	assert.Equal(t, testutil.Epoch.Add(110*time.Minute), p.ExpiresAt)

	// past the original expiry, but within the slid window
	clock.Advance(50 * time.Minute)
	_, ok = svc.Validate(ctx, sess.ID)
	assert.True(t, ok)
}

func TestValidate_ExpiresAfterIdleWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock()
	svc := NewService(db, Config{}, clock, nil)
	u := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})
	ctx := context.Background()

	sess, err := svc.Create(ctx, u.ID, client)
	require.NoError(t, err)

	clock.Advance(61 * time.Minute)
	_, ok := svc.Validate(ctx, sess.ID)
	assert.False(t, ok)
}

func TestValidate_PrincipalCarriesNoHashes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{}, testutil.NewClock(), nil)
	u := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})

	sess, err := svc.Create(context.Background(), u.ID, client)
	require.NoError(t, err)

	p, ok := svc.Validate(context.Background(), sess.ID)
	require.True(t, ok)
	assert.Empty(t, p.User.PasswordHash)
	assert.Equal(t, sess.ID, p.SessionID)
	assert.Equal(t, "alice", p.User.Username)
}

func TestValidate_UnknownAndEmptyToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{}, testutil.NewClock(), nil)

	for _, token := range []string{"", "nope", "a-token-that-was-never-issued"} {
		_, ok := svc.Validate(context.Background(), token)
		assert.False(t, ok, token)
	}
}

func TestValidate_FailsClosedOnStorageError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{}, testutil.NewClock(), nil)
	u := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})

	sess, err := svc.Create(context.Background(), u.ID, client)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, ok := svc.Validate(context.Background(), sess.ID)
	assert.False(t, ok)
}

func TestValidate_HashMismatchRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{}, testutil.NewClock(), nil)
	u := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})

	sess, err := svc.Create(context.Background(), u.ID, client)
	require.NoError(t, err)
	_, err = db.Exec(db.Rebind(`UPDATE sessions SET token_hash = ? WHERE id = ?`), HashToken("other"), sess.ID)
	require.NoError(t, err)

	_, ok := svc.Validate(context.Background(), sess.ID)
	assert.False(t, ok)
}

func TestDestroyAndDestroyAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{}, testutil.NewClock(), nil)
	alice := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})
	bob := testutil.InsertUser(t, db, testutil.UserFixture{Username: "bob", Password: "password-2"})
	ctx := context.Background()

	a, err := svc.Create(ctx, alice.ID, client)
	require.NoError(t, err)
	b, err := svc.Create(ctx, bob.ID, client)
	require.NoError(t, err)

	require.NoError(t, svc.Destroy(ctx, a.ID))
	require.NoError(t, svc.Destroy(ctx, a.ID), "destroying twice is fine")
	_, ok := svc.Validate(ctx, a.ID)
	assert.False(t, ok)

	n, err := svc.DestroyAllForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, ok = svc.Validate(ctx, b.ID)
	assert.False(t, ok)
}

func TestReapExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock()
	svc := NewService(db, Config{IdleTimeout: 10 * time.Minute}, clock, nil)
	alice := testutil.InsertUser(t, db, testutil.UserFixture{Username: "alice", Password: "password-1"})
	bob := testutil.InsertUser(t, db, testutil.UserFixture{Username: "bob", Password: "password-2"})
	ctx := context.Background()

	_, err := svc.Create(ctx, alice.ID, client)
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	live, err := svc.Create(ctx, bob.ID, client)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	n, err := svc.ReapExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, ok := svc.Validate(ctx, live.ID)
	assert.True(t, ok)
}

func TestCookies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{Secure: true}, testutil.NewClock(), nil)

	t.Run("set", func(t *testing.T) {
		rec := httptest.NewRecorder()
		svc.SetCookie(rec, "tok", testutil.Epoch.Add(time.Hour))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, "session", c.Name)
		assert.Equal(t, "tok", c.Value)
		assert.Equal(t, "/", c.Path)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, 3600, c.MaxAge)
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		svc.ClearCookie(rec)

		assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "session=;")
	})

	t.Run("read", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, svc.TokenFromRequest(req))
		req.AddCookie(&http.Cookie{Name: "session", Value: "abc"})
		assert.Equal(t, "abc", svc.TokenFromRequest(req))
	})
}
