package util

import "context"

type gameIDKey struct{}

func WithGameID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, gameIDKey{}, id)
}

func GameIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(gameIDKey{}).(string); ok {
		return id
	}
	return ""
}
