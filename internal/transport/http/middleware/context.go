package middleware

import (
	"context"

	"ibooking/internal/domain/auth"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyActor
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(ctxKeyRequestID).(string)
	return requestID
}

func WithActor(ctx context.Context, actor auth.ActorContext) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

func GetActor(ctx context.Context) (auth.ActorContext, bool) {
	actor, ok := ctx.Value(ctxKeyActor).(auth.ActorContext)
	return actor, ok
}
