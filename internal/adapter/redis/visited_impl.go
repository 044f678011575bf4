package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/scraper-service/pkg/utils"
)

const extractedURLPrefix = "extracted:"

// VisitedRepoImpl provides the cross-run extraction cache on Redis. URLs
// extracted within the TTL are skipped by later runs unless forced.
type VisitedRepoImpl struct {
	client *redis.Client
}

// NewVisitedRepo creates a new instance of VisitedRepoImpl.
func NewVisitedRepo(client *redis.Client) *VisitedRepoImpl {
	return &VisitedRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *VisitedRepoImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", extractedURLPrefix, utils.HashURL(url))
}

// MarkExtracted records a successful extraction with an expiry.
func (r *VisitedRepoImpl) MarkExtracted(ctx context.Context, url string, ttl time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(url), "1", ttl).Err()
}

// WasExtracted reports whether the URL was extracted within the TTL.
func (r *VisitedRepoImpl) WasExtracted(ctx context.Context, url string) (bool, error) {
	val, err := r.client.Exists(ctx, r.generateKey(url)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// Forget removes a URL from the cache, used by force runs.
func (r *VisitedRepoImpl) Forget(ctx context.Context, url string) error {
	return r.client.Del(ctx, r.generateKey(url)).Err()
}
