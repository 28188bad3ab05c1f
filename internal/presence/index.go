package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	geoKey      = "drivers:geo"
	lastSeenKey = "drivers:last_seen"
)

// Index keeps driver positions in a redis GEO set for fast radius lookups.
// It is a best-effort cache in front of the driver store: entries may be
// stale, so callers must re-check every returned id against the store.
type Index struct {
	rdb *redis.Client
}

// NewIndex - creates a new presence Index.
func NewIndex(rdb *redis.Client) *Index {
	return &Index{rdb: rdb}
}

// Record stores the driver's latest position and last-seen time.
func (i *Index) Record(ctx context.Context, driverID int64, lat, lng float64) error {
	member := strconv.FormatInt(driverID, 10)

	pipe := i.rdb.Pipeline()
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      member,
		Longitude: lng,
		Latitude:  lat,
	})
	pipe.HSet(ctx, lastSeenKey, member, time.Now().UTC().UnixMilli())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record presence for driver %d: %w", driverID, err)
	}
	return nil
}

// Remove drops a driver from the index, e.g. when they go offline.
func (i *Index) Remove(ctx context.Context, driverID int64) error {
	member := strconv.FormatInt(driverID, 10)

	pipe := i.rdb.Pipeline()
	pipe.ZRem(ctx, geoKey, member)
	pipe.HDel(ctx, lastSeenKey, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove presence for driver %d: %w", driverID, err)
	}
	return nil
}

// NearbyIDs returns ids of drivers last seen within radiusKm of the point,
// closest first.
func (i *Index) NearbyIDs(ctx context.Context, lat, lng, radiusKm float64) ([]int64, error) {
	members, err := i.rdb.GeoSearch(ctx, geoKey, &redis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("presence search: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
