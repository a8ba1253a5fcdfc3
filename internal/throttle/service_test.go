package throttle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/testutil"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

func from(ip string) utilities.ClientInfo {
	return utilities.ClientInfo{IP: ip, UserAgent: "test-agent"}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name     string
		failures []struct{ ip, identifier string }
		ip       string
		ident    string
		want     bool
	}{
		{
			name: "no history",
			ip:   "1.1.1.1", ident: "jane",
			want: true,
		},
		{
			name: "four failures same identifier",
			failures: []struct{ ip, identifier string }{
				{"2.2.2.2", "jane"}, {"2.2.2.3", "jane"}, {"2.2.2.4", "jane"}, {"2.2.2.5", "jane"},
			},
			ip: "1.1.1.1", ident: "jane",
			want: true,
		},
		{
			name: "five failures same identifier from other ips",
			failures: []struct{ ip, identifier string }{
				{"2.2.2.1", "jane"}, {"2.2.2.2", "jane"}, {"2.2.2.3", "jane"}, {"2.2.2.4", "jane"}, {"2.2.2.5", "jane"},
			},
			ip: "1.1.1.1", ident: "jane",
			want: false,
		},
		{
			name: "five failures same ip across identifiers",
			failures: []struct{ ip, identifier string }{
				{"1.1.1.1", "a"}, {"1.1.1.1", "b"}, {"1.1.1.1", "c"}, {"1.1.1.1", "d"}, {"1.1.1.1", "e"},
			},
			ip: "1.1.1.1", ident: "jane",
			want: false,
		},
		{
			name: "mixed ip and identifier matches add up",
			failures: []struct{ ip, identifier string }{
				{"1.1.1.1", "a"}, {"1.1.1.1", "b"}, {"9.9.9.9", "jane"}, {"8.8.8.8", "jane"}, {"7.7.7.7", "jane"},
			},
			ip: "1.1.1.1", ident: "jane",
			want: false,
		},
		{
			name: "unrelated failures do not count",
			failures: []struct{ ip, identifier string }{
				{"3.3.3.3", "x"}, {"3.3.3.3", "x"}, {"3.3.3.3", "x"}, {"3.3.3.3", "x"}, {"3.3.3.3", "x"},
			},
			ip: "1.1.1.1", ident: "jane",
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			db := testutil.SetupTestDB(t)
			svc := NewService(db, Config{}, testutil.NewClock())
			ctx := context.Background()
			for _, f := range tt.failures {
				require.NoError(t, svc.Record(ctx, f.identifier, false, from(f.ip)))
			}

			// Act
			got, err := svc.Allowed(ctx, tt.ip, tt.ident)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowed_SuccessesDoNotCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{}, testutil.NewClock())
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, svc.Record(ctx, "jane", true, from("1.1.1.1")))
	}

	ok, err := svc.Allowed(ctx, "1.1.1.1", "jane")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowed_WindowElapses(t *testing.T) {
	// Requirement: failures older than the window are ignored.
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock()
	svc := NewService(db, Config{}, clock)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(ctx, "jane", false, from("1.1.1.1")))
	}

	ok, err := svc.Allowed(ctx, "1.1.1.1", "jane")
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(14 * time.Minute)
	ok, err = svc.Allowed(ctx, "1.1.1.1", "jane")
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(time.Minute + time.Second)
	ok, err = svc.Allowed(ctx, "1.1.1.1", "jane")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock()
	svc := NewService(db, Config{}, clock)
	ctx := context.Background()
	for i := 0; i < 105; i++ {
		require.NoError(t, svc.Record(ctx, fmt.Sprintf("user-%d", i), i%2 == 0, from("1.1.1.1")))
		clock.Advance(time.Second)
	}

	got, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, MaxListed)
	assert.Equal(t, "user-104", got[0].Identifier)
	assert.True(t, got[0].Success)
	assert.Equal(t, "user-103", got[1].Identifier)
	assert.False(t, got[1].Success)
	assert.Equal(t, "1.1.1.1", got[0].IPAddress)
}

func TestAllowed_StorageError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, Config{}, testutil.NewClock())
	require.NoError(t, db.Close())

	_, err := svc.Allowed(context.Background(), "1.1.1.1", "jane")
	assert.Error(t, err)
}
