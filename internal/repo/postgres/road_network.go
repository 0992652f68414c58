package postgres

import (
	"context"
	"encoding/json"

	"github.com/geocoder89/roadwatch/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoadNetworkRepo returns the road network as GeoJSON-bearing JSON built by
// the database. Geometry is transformed to WGS84 server side.
type RoadNetworkRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRoadNetworkRepo(pool *pgxpool.Pool, prom *observability.Prom) *RoadNetworkRepo {
	return &RoadNetworkRepo{pool: pool, prom: prom}
}

const nodesQuery = `SELECT COALESCE(array_to_json(array_agg(row_to_json(t))), '[]'::json)
	FROM (
		SELECT id, node_key, ST_AsGeoJSON(ST_Transform(geometry, 4326))::jsonb geometry
		FROM road_network_node
	) t`

const edgesQuery = `SELECT COALESCE(array_to_json(array_agg(row_to_json(t))), '[]'::json)
	FROM (
		SELECT id, road_key, road_number, road_name, section_number, from_node_key, to_node_key, road_length,
			house_number_from_right, house_number_to_right, house_number_from_left, house_number_to_left,
			ST_AsGeoJSON(ST_Transform(geometry, 4326))::jsonb geometry
		FROM road_network_edge
	) t`

func (r *RoadNetworkRepo) Nodes(ctx context.Context) (json.RawMessage, error) {
	return r.aggregate(ctx, "road_network.nodes", nodesQuery)
}

func (r *RoadNetworkRepo) Edges(ctx context.Context) (json.RawMessage, error) {
	return r.aggregate(ctx, "road_network.edges", edgesQuery)
}

func (r *RoadNetworkRepo) aggregate(ctx context.Context, op, query string) (json.RawMessage, error) {
	var raw []byte

	err := r.prom.ObserveDB(op, func() error {
		return r.pool.QueryRow(ctx, query).Scan(&raw)
	})

	if err != nil {
		return nil, err
	}

	return json.RawMessage(raw), nil
}
