package businessflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingutil "github.com/amirphl/lurewatch/testing"
)

func TestDashboardFlowSnapshot(t *testing.T) {
	ctx := testingutil.CreateTestContext()

	t.Run("CountsAndRecentRows", func(t *testing.T) {
		mem := testingutil.NewMemoryStore()
		store := mem.Store()
		seedTarget(t, store, "alice@example.com")
		seedTarget(t, store, "bob@example.com")
		for i := 0; i < 7; i++ {
			require.NoError(t, store.Clicks.Save(ctx, testingutil.FakeClick(nil, testingutil.FakeToken())))
			require.NoError(t, store.Credentials.Save(ctx, testingutil.FakeCredential(nil, "Brazil", "Recife")))
		}

		snap, err := NewDashboardFlow(store).Snapshot(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(2), snap.TargetsCount)
		assert.Equal(t, int64(7), snap.ClicksCount)
		assert.Equal(t, int64(7), snap.CredentialsCount)
		require.Len(t, snap.RecentClicks, DashboardRecentLimit)
		require.Len(t, snap.RecentCredentials, DashboardRecentLimit)
		assert.Equal(t, uint(7), snap.RecentClicks[0].ID)
		assert.Equal(t, uint(3), snap.RecentClicks[4].ID)
		assert.Len(t, snap.Targets, 2)
		assert.Equal(t, "alice@example.com", snap.Targets[0].Email)
	})

	t.Run("EmptyStore", func(t *testing.T) {
		snap, err := NewDashboardFlow(testingutil.NewMemoryStore().Store()).Snapshot(ctx)
		require.NoError(t, err)
		assert.Zero(t, snap.ClicksCount)
		assert.Empty(t, snap.RecentClicks)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		mem := testingutil.NewMemoryStore()
		mem.Err = errors.New("relation \"clicks\" does not exist")
		_, err := NewDashboardFlow(mem.Store()).Snapshot(ctx)
		require.Error(t, err)
		assert.Equal(t, "DASHBOARD_FAILED", ErrorCode(err))
		assert.Contains(t, err.Error(), "does not exist")
	})
}
