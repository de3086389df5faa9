package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/example/whiteboard-relay/domain/canvas"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCachePrefix = "whiteboard:drawings:"
	defaultLoadTimeout = 10 * time.Second
)

// CacheStats counts read-through cache outcomes.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// CachedGateway wraps a Gateway with a Redis read-through cache for
// room drawings. Writes invalidate the room's key before returning.
// A fill whose room was written to during the load is not cached.
type CachedGateway struct {
	next        Gateway
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	loadTimeout time.Duration
	sfGroup     singleflight.Group
	logger      types.Logger

	genMu       sync.Mutex
	generations map[int64]uint64

	hits     atomic.Uint64
	misses   atomic.Uint64
	failures atomic.Uint64
}

var _ Gateway = (*CachedGateway)(nil)

// NewCachedGateway creates a CachedGateway in front of next.
func NewCachedGateway(next Gateway, client *redis.Client, ttl time.Duration, logger types.Logger) *CachedGateway {
	return &CachedGateway{
		next:        next,
		client:      client,
		prefix:      defaultCachePrefix,
		ttl:         ttl,
		loadTimeout: defaultLoadTimeout,
		logger:      logger,
		generations: make(map[int64]uint64),
	}
}

// Stats returns a snapshot of the cache counters.
func (g *CachedGateway) Stats() CacheStats {
	return CacheStats{
		Hits:   g.hits.Load(),
		Misses: g.misses.Load(),
		Errors: g.failures.Load(),
	}
}

func (g *CachedGateway) key(roomKey int64) string {
	return g.prefix + strconv.FormatInt(roomKey, 10)
}

func (g *CachedGateway) generation(roomKey int64) uint64 {
	g.genMu.Lock()
	defer g.genMu.Unlock()
	return g.generations[roomKey]
}

func (g *CachedGateway) invalidate(ctx context.Context, roomKey int64) {
	g.genMu.Lock()
	g.generations[roomKey]++
	g.genMu.Unlock()

	if err := g.client.Del(ctx, g.key(roomKey)).Err(); err != nil {
		g.failures.Add(1)
		g.logger.Warn("Failed to invalidate drawings cache", "roomKey", roomKey, "error", err)
	}
}

// AppendChat passes through; chats are not cached.
func (g *CachedGateway) AppendChat(ctx context.Context, roomKey int64, accountID, text string) (*domain.ChatMessage, error) {
	return g.next.AppendChat(ctx, roomKey, accountID, text)
}

func (g *CachedGateway) CreateDrawingElement(ctx context.Context, roomKey int64, accountID string, element domain.Element) (*domain.Element, error) {
	stored, err := g.next.CreateDrawingElement(ctx, roomKey, accountID, element)
	if err != nil {
		return nil, err
	}
	g.invalidate(ctx, roomKey)
	return stored, nil
}

func (g *CachedGateway) UpdateDrawingElement(ctx context.Context, roomKey int64, elementID string, patch domain.ElementPatch) (*domain.Element, error) {
	stored, err := g.next.UpdateDrawingElement(ctx, roomKey, elementID, patch)
	if err != nil {
		return nil, err
	}
	g.invalidate(ctx, roomKey)
	return stored, nil
}

func (g *CachedGateway) DeleteDrawingElement(ctx context.Context, roomKey int64, elementID string) (*domain.Element, error) {
	deleted, err := g.next.DeleteDrawingElement(ctx, roomKey, elementID)
	if err != nil {
		return nil, err
	}
	g.invalidate(ctx, roomKey)
	return deleted, nil
}

func (g *CachedGateway) ClearRoom(ctx context.Context, roomKey int64) (int64, error) {
	count, err := g.next.ClearRoom(ctx, roomKey)
	if err != nil {
		return 0, err
	}
	g.invalidate(ctx, roomKey)
	return count, nil
}

// ListDrawingElements serves from Redis when possible. Concurrent misses
// for the same room share one store query, which outlives any single
// caller's cancellation.
func (g *CachedGateway) ListDrawingElements(ctx context.Context, roomKey int64) ([]domain.Element, error) {
	key := g.key(roomKey)

	data, err := g.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []domain.Element
		if err := json.Unmarshal(data, &cached); err == nil {
			g.hits.Add(1)
			return cached, nil
		}
		g.failures.Add(1)
		g.logger.Warn("Discarding undecodable drawings cache entry", "roomKey", roomKey)
	case errors.Is(err, redis.Nil):
	default:
		g.failures.Add(1)
		g.logger.Warn("Drawings cache read failed", "roomKey", roomKey, "error", err)
	}

	g.misses.Add(1)
	val, err, _ := g.sfGroup.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.loadTimeout)
		defer cancel()

		gen := g.generation(roomKey)
		elements, err := g.next.ListDrawingElements(loadCtx, roomKey)
		if err != nil {
			return nil, err
		}
		g.fill(loadCtx, roomKey, gen, elements)
		return elements, nil
	})
	if err != nil {
		return nil, err
	}

	elements, ok := val.([]domain.Element)
	if !ok {
		return nil, fmt.Errorf("unexpected cached value %T", val)
	}
	return elements, nil
}

// fill caches elements unless the room was invalidated after gen was read.
// The check and the write share genMu with invalidate, so a write that lands
// after the Set still deletes it.
func (g *CachedGateway) fill(ctx context.Context, roomKey int64, gen uint64, elements []domain.Element) {
	data, err := json.Marshal(elements)
	if err != nil {
		g.failures.Add(1)
		return
	}

	g.genMu.Lock()
	defer g.genMu.Unlock()
	if g.generations[roomKey] != gen {
		g.logger.Debug("Skipping stale drawings cache fill", "roomKey", roomKey)
		return
	}
	key := g.key(roomKey)
	if err := g.client.Set(ctx, key, data, g.ttl).Err(); err != nil {
		g.failures.Add(1)
		g.logger.Warn("Failed to populate drawings cache", "key", key, "error", err)
	}
}

// ListChats passes through; chats are not cached.
func (g *CachedGateway) ListChats(ctx context.Context, roomKey int64, limit int) ([]domain.ChatMessage, error) {
	return g.next.ListChats(ctx, roomKey, limit)
}
