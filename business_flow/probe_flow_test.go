package businessflow

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/lurewatch/models"
	testingutil "github.com/amirphl/lurewatch/testing"
)

func TestProbeFlowRun(t *testing.T) {
	ctx := testingutil.CreateTestContext()

	t.Run("RecordsOneResultPerTarget", func(t *testing.T) {
		ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(ok.Close)
		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(broken.Close)

		mem := testingutil.NewMemoryStore()
		store := mem.Store()
		for _, url := range []string{ok.URL, broken.URL, "http://127.0.0.1:1/unreachable"} {
			require.NoError(t, store.Targets.Save(ctx, &models.Target{Email: "a@example.com", URL: url}))
		}

		results, err := NewProbeFlow(store.Targets, store.Results, 2, time.Second).Run(ctx)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "Status: 200", results[0].Data)
		assert.True(t, results[0].Success)
		assert.Equal(t, "Status: 503", results[1].Data)
		assert.False(t, results[1].Success)
		assert.Contains(t, results[2].Data, "Error: ")
		assert.False(t, results[2].Success)

		assert.Len(t, mem.Results(), 3)
	})

	t.Run("SchedulingFailureHasItsOwnCode", func(t *testing.T) {
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(300 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(slow.Close)

		mem := testingutil.NewMemoryStore()
		store := mem.Store()
		for range 2 {
			require.NoError(t, store.Targets.Save(ctx, &models.Target{Email: "a@example.com", URL: slow.URL}))
		}

		flow := NewProbeFlow(store.Targets, store.Results, 1, time.Second).(*ProbeFlowImpl)
		// one busy worker and no queueing: the second target cannot be scheduled
		flow.poolOptions = []ants.Option{ants.WithNonblocking(true)}

		_, err := flow.Run(ctx)
		require.Error(t, err)
		assert.Equal(t, "PROBE_SUBMIT_FAILED", ErrorCode(err))
		assert.True(t, errors.Is(err, ants.ErrPoolOverload))
		assert.Contains(t, err.Error(), "target 2")
	})

	t.Run("SaveFailure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)

		mem := testingutil.NewMemoryStore()
		store := mem.Store()
		require.NoError(t, store.Targets.Save(ctx, &models.Target{Email: "a@example.com", URL: srv.URL}))

		failing := testingutil.NewMemoryStore()
		failing.Err = errors.New("disk full")
		_, err := NewProbeFlow(store.Targets, failing.Store().Results, 1, time.Second).Run(ctx)
		assert.Equal(t, "RESULT_SAVE_FAILED", ErrorCode(err))
	})

	t.Run("NoTargets", func(t *testing.T) {
		store := testingutil.NewMemoryStore().Store()
		_, err := NewProbeFlow(store.Targets, store.Results, 2, time.Second).Run(ctx)
		assert.True(t, IsNoTargets(err))
	})
}
