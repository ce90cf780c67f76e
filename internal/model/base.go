package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all persisted models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Actor identifies who initiated an action. Scheduled runs use ActorSystem so
// manual and automated sends share one audit trail.
type Actor string

const ActorSystem Actor = "system"

type actorKey struct{}

// WithActor tags ctx with the initiating actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor on ctx, defaulting to ActorSystem.
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok && a != "" {
		return a
	}
	return ActorSystem
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
