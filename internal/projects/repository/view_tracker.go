package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const viewWindow = 24 * time.Hour

// ViewTracker remembers who already viewed a project so each viewer counts
// once per day.
type ViewTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewViewTracker(rdb *redis.Client) *ViewTracker {
	return &ViewTracker{rdb: rdb, ttl: viewWindow}
}

func viewKey(projectID uuid.UUID, viewer string) string {
	return fmt.Sprintf("vulcano:views:%s:%s", projectID, viewer)
}

// FirstView reports whether this is the viewer's first visit in the window.
func (t *ViewTracker) FirstView(ctx context.Context, projectID uuid.UUID, viewer string) (bool, error) {
	return t.rdb.SetNX(ctx, viewKey(projectID, viewer), 1, t.ttl).Result()
}
