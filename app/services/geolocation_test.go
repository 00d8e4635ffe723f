package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/lurewatch/models"
)

func newIPAPIServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/json/203.0.113.7", r.URL.Path)
		assert.Equal(t, ipAPIFields, r.URL.Query().Get("fields"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestIPAPIResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		srv, _ := newIPAPIServer(t, http.StatusOK, `{"status":"success","country":"Brazil","regionName":"Pernambuco","city":"Recife","isp":"ISP","org":"","mobile":true,"query":"203.0.113.7"}`)
		loc := NewIPAPIResolver(srv.URL, time.Second).Resolve(ctx, "203.0.113.7")

		assert.False(t, loc.Failed())
		assert.Equal(t, "203.0.113.7", loc.IP)
		assert.Equal(t, "Brazil", loc.Country)
		assert.Equal(t, "Pernambuco", loc.Region)
		assert.Equal(t, "Recife", loc.City)
		assert.Equal(t, models.UnknownLocation, loc.Org)
		assert.True(t, loc.Mobile)
	})

	t.Run("ProviderFail", func(t *testing.T) {
		srv, _ := newIPAPIServer(t, http.StatusOK, `{"status":"fail","message":"reserved range","query":"203.0.113.7"}`)
		loc := NewIPAPIResolver(srv.URL, time.Second).Resolve(ctx, "203.0.113.7")

		assert.Equal(t, models.LocationInfo{IP: "203.0.113.7", Error: "reserved range"}, loc)
	})

	t.Run("Non2xx", func(t *testing.T) {
		srv, _ := newIPAPIServer(t, http.StatusTooManyRequests, `slow down`)
		loc := NewIPAPIResolver(srv.URL, time.Second).Resolve(ctx, "203.0.113.7")

		assert.True(t, loc.Failed())
		assert.Contains(t, loc.Error, "429")
		assert.Equal(t, "203.0.113.7", loc.IP)
	})

	t.Run("BadJSON", func(t *testing.T) {
		srv, _ := newIPAPIServer(t, http.StatusOK, `{not json`)
		loc := NewIPAPIResolver(srv.URL, time.Second).Resolve(ctx, "203.0.113.7")

		assert.True(t, loc.Failed())
	})

	t.Run("Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		t.Cleanup(srv.Close)
		loc := NewIPAPIResolver(srv.URL, 20*time.Millisecond).Resolve(ctx, "203.0.113.7")

		assert.True(t, loc.Failed())
		assert.Equal(t, "203.0.113.7", loc.IP)
	})

	t.Run("LoopbackNeverCallsProvider", func(t *testing.T) {
		srv, hits := newIPAPIServer(t, http.StatusOK, `{}`)
		r := NewIPAPIResolver(srv.URL, time.Second)

		for _, ip := range []string{"127.0.0.1", "::1", "localhost"} {
			loc := r.Resolve(ctx, ip)
			assert.Equal(t, ip, loc.IP)
			assert.Equal(t, models.LocalLocation, loc.Country)
			assert.Equal(t, models.LocalLocation, loc.Region)
			assert.Equal(t, models.LocalLocation, loc.City)
		}
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("MalformedAddressNeverCallsProvider", func(t *testing.T) {
		srv, hits := newIPAPIServer(t, http.StatusOK, `{"status":"success","country":"Brazil"}`)
		r := NewIPAPIResolver(srv.URL, time.Second)

		for _, ip := range []string{"1.1.1.1?x=", "../admin", "", "203.0.113.7/evil"} {
			loc := r.Resolve(ctx, ip)
			assert.Equal(t, models.LocationInfo{IP: ip, Error: "invalid IP address"}, loc)
		}
		assert.Equal(t, int32(0), hits.Load())
	})
}

func TestCachedResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("CachesSuccess", func(t *testing.T) {
		srv, hits := newIPAPIServer(t, http.StatusOK, `{"status":"success","country":"Brazil","city":"Recife","query":"203.0.113.7"}`)
		r := NewCachedResolver(NewIPAPIResolver(srv.URL, time.Second), NewMemoryLocationCache(), time.Minute)

		first := r.Resolve(ctx, "203.0.113.7")
		second := r.Resolve(ctx, "203.0.113.7")
		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("DoesNotCacheFailure", func(t *testing.T) {
		srv, hits := newIPAPIServer(t, http.StatusOK, `{"status":"fail","message":"quota"}`)
		r := NewCachedResolver(NewIPAPIResolver(srv.URL, time.Second), NewMemoryLocationCache(), time.Minute)

		r.Resolve(ctx, "203.0.113.7")
		r.Resolve(ctx, "203.0.113.7")
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("ExpiredEntryIsRefreshed", func(t *testing.T) {
		srv, hits := newIPAPIServer(t, http.StatusOK, `{"status":"success","country":"Brazil","query":"203.0.113.7"}`)
		cache := NewMemoryLocationCache()
		now := time.Now()
		cache.now = func() time.Time { return now }
		r := NewCachedResolver(NewIPAPIResolver(srv.URL, time.Second), cache, time.Minute)

		r.Resolve(ctx, "203.0.113.7")
		now = now.Add(2 * time.Minute)
		r.Resolve(ctx, "203.0.113.7")
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("UnreachableRedisFallsThrough", func(t *testing.T) {
		srv, hits := newIPAPIServer(t, http.StatusOK, `{"status":"success","country":"Brazil","query":"203.0.113.7"}`)
		client := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		})
		t.Cleanup(func() { _ = client.Close() })
		r := NewCachedResolver(NewIPAPIResolver(srv.URL, time.Second), NewRedisLocationCache(client, "test:"), time.Minute)

		loc := r.Resolve(ctx, "203.0.113.7")
		require.False(t, loc.Failed())
		assert.Equal(t, "Brazil", loc.Country)
		assert.Equal(t, int32(1), hits.Load())
	})
}
