package settings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ruokas/lovos-dashboard-sub000/internal/store"
)

func TestProvider_DefaultsAndPersistence(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	p := NewProvider(store.NewRedisKV(client), "", zap.NewNop())
	assert.Equal(t, Defaults(), p.Load(ctx))
	assert.Equal(t, 30*time.Second, p.Get().RefreshInterval())
	assert.Equal(t, time.Hour, p.Get().SLAThresholdDuration())

	interval := 2.5
	sound := false
	updated, err := p.Update(ctx, Patch{CheckIntervalOccupied: &interval, SoundEnabled: &sound})
	require.NoError(t, err)
	assert.Equal(t, 2.5, updated.CheckIntervalOccupied)
	assert.False(t, updated.SoundEnabled)
	assert.True(t, mr.Exists(DefaultKey))

	// a fresh provider reads back the stored value
	reloaded := NewProvider(store.NewRedisKV(client), "", zap.NewNop()).Load(ctx)
	assert.Equal(t, updated, reloaded)
	assert.Equal(t, 2.5, reloaded.Thresholds().CheckIntervalOccupiedHours)
}

func TestProvider_InvalidPatch(t *testing.T) {
	p := NewProvider(store.NewMemoryKV(), "k", zap.NewNop())
	zero := 0.0
	_, err := p.Update(context.Background(), Patch{CheckIntervalOccupied: &zero})
	assert.ErrorIs(t, err, ErrInvalid)

	fast := 1
	_, err = p.Update(context.Background(), Patch{AutoRefreshInterval: &fast})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, Defaults(), p.Get())
}

func TestProvider_UnreadableStoredValue(t *testing.T) {
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), "k", "not json", 0))
	p := NewProvider(kv, "k", zap.NewNop())
	assert.Equal(t, Defaults(), p.Load(context.Background()))
}

func TestProvider_Subscribe(t *testing.T) {
	p := NewProvider(nil, "", zap.NewNop())
	var got []Settings
	unsubscribe := p.Subscribe(func(s Settings) { got = append(got, s) })

	sla := 30
	_, err := p.Update(context.Background(), Patch{SLAThreshold: &sla})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 30, got[0].SLAThreshold)

	unsubscribe()
	_, err = p.Update(context.Background(), Patch{SLAThreshold: &sla})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestProvider_InvalidStoredValuesFallBack(t *testing.T) {
	kv := store.NewMemoryKV()
	raw := `{"auto_refresh_interval":0,"sla_threshold":-5,"recently_freed_threshold":-1,"check_interval_occupied":2,"sound_enabled":false}`
	require.NoError(t, kv.Set(context.Background(), "k", raw, 0))
	p := NewProvider(kv, "k", zap.NewNop())

	got := p.Load(context.Background())
	def := Defaults()
	assert.Equal(t, def.AutoRefreshInterval, got.AutoRefreshInterval)
	assert.Equal(t, def.SLAThreshold, got.SLAThreshold)
	assert.Equal(t, def.RecentlyFreedThreshold, got.RecentlyFreedThreshold)
	// valid fields are kept
	assert.Equal(t, 2.0, got.CheckIntervalOccupied)
	assert.False(t, got.SoundEnabled)
	assert.Greater(t, p.Get().RefreshInterval(), time.Duration(0))
}
