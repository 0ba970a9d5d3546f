package apiclient

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type contextKey string

const (
	tokenKey     contextKey = "bearer_token"
	requestIDKey contextKey = "request_id"
)

// WithToken returns a context whose API calls authenticate with token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFrom returns the bearer token stored by WithToken, if any.
func TokenFrom(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey).(string); ok {
		return tok
	}
	return ""
}

// WithRequestID returns a context whose API calls forward id as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// BearerTransport implements http.RoundTripper. It adds the Authorization
// and X-Request-ID headers taken from the request context and logs each
// exchange at debug level.
type BearerTransport struct {
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// NewBearerTransport wraps transport, or http.DefaultTransport when nil.
func NewBearerTransport(transport http.RoundTripper, logger *zap.Logger) *BearerTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BearerTransport{Transport: transport, Logger: logger}
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(ctx)
	if tok := TokenFrom(ctx); tok != "" {
		out.Header.Set("Authorization", "Bearer "+tok)
	}
	if id := RequestIDFrom(ctx); id != "" {
		out.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := t.Transport.RoundTrip(out)
	if err != nil {
		t.Logger.Debug("api request failed",
			zap.String("method", out.Method),
			zap.String("url", out.URL.Redacted()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	t.Logger.Debug("api request",
		zap.String("method", out.Method),
		zap.String("url", out.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", RequestIDFrom(ctx)))

	return resp, nil
}
