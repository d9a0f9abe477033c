package moderation

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// DefaultAdminCacheSize bounds how many groups keep a cached admin set.
const DefaultAdminCacheSize = 1024

// AdminCache keeps the administrator set of each group. A group without
// an entry is unknown and is refetched before use. Evicted or expired
// entries behave the same way.
type AdminCache struct {
	fetcher ParticipantFetcher
	groups  *expirable.LRU[string, map[string]struct{}]
	metrics *Metrics
	logger  *zap.Logger
}

// NewAdminCache creates an admin cache. A ttl of zero keeps entries until
// they are invalidated or evicted.
func NewAdminCache(fetcher ParticipantFetcher, size int, ttl time.Duration, metrics *Metrics, logger *zap.Logger) *AdminCache {
	if size <= 0 {
		size = DefaultAdminCacheSize
	}

	return &AdminCache{
		fetcher: fetcher,
		groups:  expirable.NewLRU[string, map[string]struct{}](size, nil, ttl),
		metrics: metrics,
		logger:  logger.Named("admin_cache"),
	}
}

// IsAdmin reports whether userID is an administrator of groupID.
// A failed lookup counts as not admin and leaves the cache untouched.
func (c *AdminCache) IsAdmin(ctx context.Context, groupID, userID string) bool {
	admins, ok := c.groups.Get(groupID)
	if !ok || len(admins) == 0 {
		fetched, err := c.refresh(ctx, groupID)
		if err != nil {
			c.logger.Warn("Failed to fetch group admins, treating sender as regular member",
				zap.String("groupID", groupID),
				zap.String("userID", userID),
				zap.Error(err))

			return false
		}

		admins = fetched
	}

	_, isAdmin := admins[userID]

	return isAdmin
}

// Invalidate drops the cached admin set for groupID.
func (c *AdminCache) Invalidate(groupID string) {
	if c.groups.Remove(groupID) {
		c.logger.Debug("Invalidated admin cache", zap.String("groupID", groupID))
	}
}

// size returns the number of groups with a cached admin set.
func (c *AdminCache) size() int {
	return c.groups.Len()
}

// refresh fetches the participant list and stores the admin subset.
func (c *AdminCache) refresh(ctx context.Context, groupID string) (map[string]struct{}, error) {
	c.metrics.AdminFetches.Inc()

	participants, err := c.fetcher.FetchGroupParticipants(ctx, groupID)
	if err != nil {
		c.metrics.AdminFetchFailures.Inc()
		return nil, err
	}

	admins := make(map[string]struct{})

	for _, p := range participants {
		if p.Admin {
			admins[p.ID] = struct{}{}
		}
	}

	c.groups.Add(groupID, admins)

	c.logger.Debug("Cached group admins",
		zap.String("groupID", groupID),
		zap.Int("adminCount", len(admins)),
		zap.Int("participantCount", len(participants)))

	return admins, nil
}
