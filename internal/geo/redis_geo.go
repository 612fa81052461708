package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIndex implements Index using Redis GEO commands, so the nearby
// query survives restarts and can be fed by the Kafka consumer.
type RedisIndex struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisIndex(addr, password, key string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, key: key, ctx: context.Background()}
}

// NewRedisIndexFromClient shares one client across several keys.
func NewRedisIndexFromClient(c *redis.Client, key string) *RedisIndex {
	return &RedisIndex{client: c, key: key, ctx: context.Background()}
}

func (r *RedisIndex) Upsert(p Point) {
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{Longitude: p.Longitude, Latitude: p.Latitude, Name: p.ID}).Result()
	_ = r.client.HSet(r.ctx, metaKey(r.key, p.ID), map[string]interface{}{"updated": time.Now().Format(time.RFC3339)}).Err()
}

func (r *RedisIndex) Remove(id string) {
	_ = r.client.ZRem(r.ctx, r.key, id).Err()
	_ = r.client.Del(r.ctx, metaKey(r.key, id)).Err()
}

func (r *RedisIndex) Nearby(lat, lng, radiusKm float64, limit int) []Point {
	res, err := r.client.GeoRadius(r.ctx, r.key, lng, lat, &redis.GeoRadiusQuery{
		Radius: radiusKm, Unit: "km", WithCoord: true, WithDist: true, Count: limit, Sort: "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]Point, 0, len(res))
	for _, g := range res {
		out = append(out, Point{ID: g.Name, Latitude: g.Latitude, Longitude: g.Longitude})
	}
	return out
}

func metaKey(key, id string) string { return key + ":meta:" + id }
