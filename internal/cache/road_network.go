package cache

import (
	"context"
	"encoding/json"
	"time"
)

type RoadNetworkReader interface {
	Nodes(ctx context.Context) (json.RawMessage, error)
	Edges(ctx context.Context) (json.RawMessage, error)
}

// RoadNetwork keeps the last node and edge aggregates for a short TTL. The
// network only changes through imports outside this service, and the
// aggregates are large. Failed reads are not cached.
type RoadNetwork struct {
	next RoadNetworkReader
	c    *Cache[json.RawMessage]
}

func NewRoadNetwork(next RoadNetworkReader, ttl time.Duration) *RoadNetwork {
	return &RoadNetwork{next: next, c: New[json.RawMessage](ttl)}
}

func (r *RoadNetwork) Nodes(ctx context.Context) (json.RawMessage, error) {
	return r.load(ctx, "road_network:nodes:v1", r.next.Nodes)
}

func (r *RoadNetwork) Edges(ctx context.Context) (json.RawMessage, error) {
	return r.load(ctx, "road_network:edges:v1", r.next.Edges)
}

func (r *RoadNetwork) load(ctx context.Context, key string, read func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if v, ok := r.c.Get(key); ok {
		return v, nil
	}

	v, err := read(ctx)
	if err != nil {
		return nil, err
	}

	r.c.Set(key, v)
	return v, nil
}
