package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/geocoder89/roadwatch/internal/domain/user"
	"github.com/geocoder89/roadwatch/internal/observability"
	"github.com/gin-gonic/gin"
)

const (
	KeyNodesRequested = "NODES_REQUESTED"
	KeyEdgesRequested = "EDGES_REQUESTED"
)

type Authenticator interface {
	Authenticated(ctx context.Context, username, password string) error
}

type RoadNetworkReader interface {
	Nodes(ctx context.Context) (json.RawMessage, error)
	Edges(ctx context.Context) (json.RawMessage, error)
}

// RoadNetworkHandler serves the network to any active user. The database
// builds the JSON; it is passed through without decoding.
type RoadNetworkHandler struct {
	auth    Authenticator
	network RoadNetworkReader
	prom    *observability.Prom
}

func NewRoadNetworkHandler(auth Authenticator, network RoadNetworkReader, prom *observability.Prom) *RoadNetworkHandler {
	return &RoadNetworkHandler{auth: auth, network: network, prom: prom}
}

func (h *RoadNetworkHandler) Nodes(ctx *gin.Context) {
	h.serve(ctx, "nodes", KeyNodesRequested, "Nodes request successful.", h.network.Nodes)
}

func (h *RoadNetworkHandler) Edges(ctx *gin.Context) {
	h.serve(ctx, "edges", KeyEdgesRequested, "Edges request successful.", h.network.Edges)
}

func (h *RoadNetworkHandler) serve(ctx *gin.Context, op, key, msg string, read func(context.Context) (json.RawMessage, error)) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.auth.Authenticated(cctx, req.Username, req.Password); err != nil {
		respond(ctx, h.prom, op, "", "", nil, err)
		return
	}

	data, err := read(cctx)
	respond(ctx, h.prom, op, key, msg, data, err)
}
