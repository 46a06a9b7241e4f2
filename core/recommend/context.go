package recommend

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	transportKey
)

// WithRequestID makes Recommend reuse id instead of generating one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithTransport tags the request with the transport it arrived on.
func WithTransport(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, transportKey, name)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func transport(ctx context.Context) string {
	t, _ := ctx.Value(transportKey).(string)
	return t
}
