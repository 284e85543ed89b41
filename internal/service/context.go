package service

import "context"

type originKey struct{}

// WithOrigin tags ctx with the client ID that issued the request. Events
// emitted while serving it carry the ID so that client can ignore them.
func WithOrigin(ctx context.Context, clientID string) context.Context {
	if clientID == "" {
		return ctx
	}
	return context.WithValue(ctx, originKey{}, clientID)
}

// OriginFrom returns the client ID stored by WithOrigin.
func OriginFrom(ctx context.Context) string {
	s, _ := ctx.Value(originKey{}).(string)
	return s
}
