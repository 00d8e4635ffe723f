package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingutil "github.com/amirphl/lurewatch/testing"
)

func TestCredentialFlowList(t *testing.T) {
	ctx := testingutil.CreateTestContext()
	mem := testingutil.NewMemoryStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, mem.Store().Credentials.Save(ctx, testingutil.FakeCredential(nil, "Brazil", "Recife")))
	}
	flow := NewCredentialFlow(mem.Store().Credentials)

	all, err := flow.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint(3), all[0].ID)

	limited, err := flow.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
