package model

import "context"

// Actor identifies who triggered a mutation, for the activity journal.
// It is read from the caller's bearer token without verifying it; the
// backend remains the only place credentials are checked.
type Actor struct {
	ID        int64
	Name      string
	RequestID string
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the zero Actor when none was attached.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}
