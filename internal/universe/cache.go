package universe

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// DefaultTTL bounds how long a fetched universe is reused.
const DefaultTTL = 24 * time.Hour

// SharedCache is the process-wide universe cache.
var SharedCache = cache.New(DefaultTTL, time.Hour)

// Snapshot is a stored copy of a universe.
type Snapshot struct {
	Source    string    `json:"source"`
	Symbols   []string  `json:"symbols"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SnapshotStore is a durable tier behind the in-memory cache. Load returns
// nil when nothing is stored for source.
type SnapshotStore interface {
	Load(ctx context.Context, source string) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context, source string) error
}

// CachedSource serves a Source through a TTL cache and an optional snapshot store.
type CachedSource struct {
	src   Source
	cache *cache.Cache
	store SnapshotStore
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedSource wraps src. A nil cache uses SharedCache; store may be nil.
func NewCachedSource(src Source, c *cache.Cache, store SnapshotStore, ttl time.Duration) *CachedSource {
	if c == nil {
		c = SharedCache
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedSource{src: src, cache: c, store: store, ttl: ttl, now: time.Now}
}

func (c *CachedSource) Name() string { return c.src.Name() }

func (c *CachedSource) key() string { return "universe:" + c.src.Name() }

// List returns the cached universe, refreshing it from the source once the
// TTL has elapsed.
func (c *CachedSource) List(ctx context.Context) ([]string, error) {
	if v, ok := c.cache.Get(c.key()); ok {
		return append([]string(nil), v.([]string)...), nil
	}

	if snap := c.loadSnapshot(ctx); snap != nil {
		remaining := c.ttl - c.now().Sub(snap.FetchedAt)
		c.cache.Set(c.key(), snap.Symbols, remaining)
		log.Debug().Str("source", c.src.Name()).Int("symbols", len(snap.Symbols)).
			Dur("expires_in", remaining).Msg("universe restored from snapshot")
		return append([]string(nil), snap.Symbols...), nil
	}

	symbols, err := c.src.List(ctx)
	if err != nil {
		if !errors.Is(err, ErrUniverseUnavailable) {
			err = errors.Join(ErrUniverseUnavailable, err)
		}
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, ErrUniverseUnavailable
	}

	c.cache.Set(c.key(), symbols, c.ttl)
	if c.store != nil {
		snap := Snapshot{Source: c.src.Name(), Symbols: symbols, FetchedAt: c.now()}
		if err := c.store.Save(ctx, snap); err != nil {
			log.Warn().Err(err).Str("source", c.src.Name()).Msg("save universe snapshot failed")
		}
	}
	log.Info().Str("source", c.src.Name()).Int("symbols", len(symbols)).Msg("universe refreshed")
	return append([]string(nil), symbols...), nil
}

// Invalidate drops the cached universe so the next List refetches it.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	c.cache.Delete(c.key())
	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx, c.src.Name())
}

func (c *CachedSource) loadSnapshot(ctx context.Context) *Snapshot {
	if c.store == nil {
		return nil
	}
	snap, err := c.store.Load(ctx, c.src.Name())
	if err != nil {
		log.Warn().Err(err).Str("source", c.src.Name()).Msg("load universe snapshot failed")
		return nil
	}
	if snap == nil || len(snap.Symbols) == 0 || c.now().Sub(snap.FetchedAt) >= c.ttl {
		return nil
	}
	return snap
}
