package tooling

import (
	"context"
	"encoding/json"
	"time"

	"z-carousel-ai-api/internal/domain/entity"
	persistredis "z-carousel-ai-api/internal/infrastructure/persistence/redis"
	"z-carousel-ai-api/pkg/logger"
)

// CachedResearcher 带 Redis 缓存的调研客户端。
// 同一主题同一深度在 TTL 内只触发一次外部调用；缓存不可用时直接透传。
type CachedResearcher struct {
	inner Researcher
	cache *persistredis.Cache
	ttl   time.Duration
}

// NewCachedResearcher 创建带缓存的调研客户端
func NewCachedResearcher(inner Researcher, cache *persistredis.Cache, ttl time.Duration) *CachedResearcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedResearcher{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

// Research 按深度调研主题，结果进缓存
func (r *CachedResearcher) Research(ctx context.Context, topic string, level entity.ResearchLevel) (string, error) {
	if r.inner == nil {
		return "", nil
	}
	if r.cache == nil {
		return r.inner.Research(ctx, topic, level)
	}

	key := persistredis.BuildResearchKey(topic, string(level))
	data, err := r.cache.GetOrLoadSafe(ctx, key, r.ttl, func() (interface{}, error) {
		return r.inner.Research(ctx, topic, level)
	})
	if err != nil {
		return "", err
	}

	var summary string
	if unmarshalErr := json.Unmarshal(data, &summary); unmarshalErr != nil {
		logger.Warn(ctx, "failed to decode cached research summary, refetching",
			"error", unmarshalErr,
		)
		return r.inner.Research(ctx, topic, level)
	}
	return summary, nil
}
