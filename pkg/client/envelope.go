package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"carrierhub/pkg/cache"
	"carrierhub/pkg/errors"
	"carrierhub/pkg/model"
)

// Decode converts a raw envelope into a typed one. A successful envelope
// whose data cannot be decoded into T becomes a failure.
func Decode[T any](raw *model.Envelope[json.RawMessage]) *model.Envelope[T] {
	env := &model.Envelope[T]{
		Success:    raw.Success,
		Message:    raw.Message,
		Error:      raw.Error,
		Details:    raw.Details,
		StatusCode: raw.StatusCode,
		Attempts:   raw.Attempts,
		Err:        raw.Err,
	}
	if !raw.Success {
		return env
	}

	data := bytes.TrimSpace(raw.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env
	}

	if err := json.Unmarshal(data, &env.Data); err != nil {
		failed := model.Fail[T](errors.Wrap(err, errors.KindClient, errors.CodeClient, "Unexpected response from server"))
		failed.StatusCode = raw.StatusCode
		failed.Attempts = raw.Attempts
		return failed
	}
	return env
}

// Empty is the payload type for calls whose response body is ignored.
type Empty struct{}

func call[T any](ctx context.Context, c *APIClient, method, endpoint string, body any, opts ...RequestOption) *model.Envelope[T] {
	if isAdminPath(endpoint) {
		opts = append(opts, AsAdmin())
	}
	return Decode[T](c.http.Request(ctx, method, endpoint, body, opts...))
}

func blob(ctx context.Context, c *APIClient, method, endpoint string, body any, opts ...RequestOption) *model.Envelope[Blob] {
	if isAdminPath(endpoint) {
		opts = append(opts, AsAdmin())
	}
	return c.http.RequestBlob(ctx, method, endpoint, body, opts...)
}

// cachedGet serves endpoint through the cache. Failed calls are returned
// as-is and leave the cache untouched.
func cachedGet[T any](ctx context.Context, c *APIClient, key string, ttl time.Duration, endpoint string) *model.Envelope[T] {
	var failed *model.Envelope[T]

	data, err := cache.WithCache(ctx, c.cache, key, ttl, func(ctx context.Context) (T, error) {
		env := call[T](ctx, c, http.MethodGet, endpoint, nil)
		if !env.Success {
			failed = env
			var zero T
			return zero, env.AsError()
		}
		return env.Data, nil
	})
	if err != nil {
		return failed
	}
	return model.Ok(data)
}

func invalid[T any](appErr *errors.AppError) *model.Envelope[T] {
	return model.Fail[T](appErr)
}
