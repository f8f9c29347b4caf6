package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-server/confs"
	"weather-server/entities"
)

func sampleView(id uint64) entities.PublicView {
	return entities.PublicView{
		ID:              id,
		Value:           14.4924,
		ValueUnits:      "C",
		ValueErrorRange: 0.192573,
		LatitudePublic:  54.788,
		LongitudePublic: -5.176,
		City:            "Toronto",
		Province:        "ON",
		Country:         "CA",
		Timestamp:       "2017-05-07T21:46:04",
	}
}

// exercise runs the behaviour every Store must share.
func exercise(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	key := Key{Kind: entities.Temperature, ID: 1}

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, key, sampleView(1)))
	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleView(1), got)

	_, ok, err = store.Get(ctx, Key{Kind: entities.Humidity, ID: 1})
	require.NoError(t, err)
	assert.False(t, ok, "kinds do not share entries")

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)

	require.NoError(t, store.Delete(ctx, key))
	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, key))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "public:pressure:42", Key{Kind: entities.Pressure, ID: 42}.String())
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore(time.Minute))
}

func TestMemoryStore_Expires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	key := Key{Kind: entities.Temperature, ID: 1}

	require.NoError(t, store.Set(ctx, key, sampleView(1)))
	now = now.Add(59 * time.Second)
	_, ok, _ := store.Get(ctx, key)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = store.Get(ctx, key)
	assert.False(t, ok)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	exercise(t, store)
}

func TestRedisStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	key := Key{Kind: entities.Pressure, ID: 9}

	require.NoError(t, store.Set(ctx, key, sampleView(9)))
	assert.True(t, mr.Exists("weather:public:pressure:9"))

	mr.FastForward(time.Minute)
	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, mr.Set("weather:public:temperature:1", "{not json"))
	_, _, err := store.Get(context.Background(), Key{Kind: entities.Temperature, ID: 1})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	store, err := New(ctx, confs.Config{CacheDriver: "none"})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = New(ctx, confs.Config{CacheDriver: "memory", CacheTTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	mr := miniredis.RunT(t)
	store, err = New(ctx, confs.Config{CacheDriver: "redis", RedisURL: "redis://" + mr.Addr() + "/0", CacheTTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)

	_, err = New(ctx, confs.Config{CacheDriver: "redis", RedisURL: "://bad"})
	assert.Error(t, err)
}
