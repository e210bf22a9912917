package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"carrierhub/pkg/model"
)

type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
	Database  string `json:"database,omitempty"`
}

// HealthCheck hits <origin>/health once with a short timeout. It skips the
// retry policy so a dead backend is reported immediately.
func (c *APIClient) HealthCheck(ctx context.Context) *model.Envelope[HealthStatus] {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	start := time.Now()
	raw := c.http.Request(ctx, http.MethodGet, c.origin+"/health", nil, NoRetry())
	env := Decode[HealthStatus](raw)
	if raw.Success && !env.Success {
		// 2xx with a non-JSON body such as "OK".
		env = model.Ok(HealthStatus{Status: string(raw.Data)})
		env.StatusCode = raw.StatusCode
		env.Attempts = raw.Attempts
	}

	c.log.Debug("Health check finished",
		"healthy", env.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return env
}

// originOf strips the path from an API base URL, so
// https://host/api/v1 becomes https://host.
func originOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return baseURL
	}
	return u.Scheme + "://" + u.Host
}
