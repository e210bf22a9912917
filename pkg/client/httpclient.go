package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"carrierhub/pkg/errors"
	"carrierhub/pkg/logger"
	"carrierhub/pkg/metrics"
	"carrierhub/pkg/model"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	HeaderRequestID = "X-Request-ID"

	msgTimeout      = "Request timed out. The server is taking too long to respond, please try again."
	msgConnectivity = "Unable to connect to the server. Please check your internet connection and try again."
	msgServer       = "The server is having trouble right now. Please try again in a moment."
	msgCancelled    = "Request cancelled."
)

// TokenSource supplies bearer tokens. An empty string means no token and
// the request is sent without an Authorization header.
type TokenSource interface {
	UserToken(ctx context.Context) string
	AdminToken(ctx context.Context) string
}

// RetryPolicy bounds a logical call. Attempt n (0-based) runs with a
// timeout of BaseTimeout + TimeoutIncrement*n and, when it fails
// transiently, is followed by a wait of BackoffBase*2^n capped at
// BackoffMax.
type RetryPolicy struct {
	BaseTimeout      time.Duration
	TimeoutIncrement time.Duration
	MaxRetries       int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseTimeout:      15 * time.Second,
		TimeoutIncrement: 10 * time.Second,
		MaxRetries:       3,
		BackoffBase:      time.Second,
		BackoffMax:       10 * time.Second,
	}
}

func (p RetryPolicy) AttemptTimeout(retry int) time.Duration {
	return p.BaseTimeout + p.TimeoutIncrement*time.Duration(retry)
}

func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return p.BackoffMax
	}
	d := p.BackoffBase * time.Duration(1<<attempt)
	if p.BackoffMax > 0 && d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

// Budget is the longest a logical call can take: every attempt running to
// its timeout plus every backoff between them.
func (p RetryPolicy) Budget() time.Duration {
	var total time.Duration
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		total += p.AttemptTimeout(attempt)
		if attempt < p.MaxRetries {
			total += p.Backoff(attempt)
		}
	}
	return total
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HttpClient is the request engine: it attaches tokens, retries transient
// failures and resolves every call into an Envelope. It never returns a Go
// error for a failed request.
type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Policy     RetryPolicy
	Limiter    *rate.Limiter
	Metrics    *metrics.Metrics
	Log        *logger.Logger

	sleep     SleepFunc
	requestID func() string
}

type Option func(*HttpClient)

func WithTokens(tokens TokenSource) Option {
	return func(c *HttpClient) { c.Tokens = tokens }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *HttpClient) { c.Policy = p }
}

// WithRateLimit waits on a token bucket before every attempt. A
// non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *HttpClient) {
		if perSecond <= 0 {
			c.Limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HttpClient) { c.Metrics = m }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *HttpClient) { c.Log = log }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HttpClient) { c.HTTPClient = hc }
}

func WithSleep(sleep SleepFunc) Option {
	return func(c *HttpClient) { c.sleep = sleep }
}

func NewHttpClient(baseURL string, opts ...Option) *HttpClient {
	c := &HttpClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// Per-attempt deadlines come from the request context.
		HTTPClient: &http.Client{},
		Policy:     DefaultRetryPolicy(),
		Log:        logger.Discard(),
		sleep:      sleepContext,
		requestID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestOptions struct {
	admin       bool
	noRetry     bool
	headers     map[string]string
	rawBody     []byte
	contentType string
}

type RequestOption func(*requestOptions)

// AsAdmin sends the admin token instead of the user token.
func AsAdmin() RequestOption {
	return func(o *requestOptions) { o.admin = true }
}

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithRawBody sends data as-is instead of JSON encoding the body argument.
func WithRawBody(contentType string, data []byte) RequestOption {
	return func(o *requestOptions) {
		o.rawBody = data
		o.contentType = contentType
	}
}

// NoRetry limits the call to a single attempt.
func NoRetry() RequestOption {
	return func(o *requestOptions) { o.noRetry = true }
}

type rawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type outcome struct {
	resp     *rawResponse
	err      *errors.AppError
	attempts int
}

// Request performs one logical call and returns the response with any
// {"data": ...} wrapper removed.
func (c *HttpClient) Request(ctx context.Context, method, endpoint string, body any, opts ...RequestOption) *model.Envelope[json.RawMessage] {
	out := c.execute(ctx, method, endpoint, body, opts)
	if out.err != nil {
		env := model.Fail[json.RawMessage](out.err)
		env.Attempts = out.attempts
		return env
	}

	if out.resp.StatusCode >= http.StatusBadRequest {
		env := model.Fail[json.RawMessage](responseError(out.resp))
		env.Attempts = out.attempts
		return env
	}

	data, message := unwrapData(out.resp.Body)
	return &model.Envelope[json.RawMessage]{
		Success:    true,
		Data:       data,
		Message:    message,
		StatusCode: out.resp.StatusCode,
		Attempts:   out.attempts,
	}
}

// Blob is a binary response such as a CSV export or a backup archive.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// RequestBlob is Request for endpoints that return a file body.
func (c *HttpClient) RequestBlob(ctx context.Context, method, endpoint string, body any, opts ...RequestOption) *model.Envelope[Blob] {
	out := c.execute(ctx, method, endpoint, body, opts)
	if out.err != nil {
		env := model.Fail[Blob](out.err)
		env.Attempts = out.attempts
		return env
	}

	if out.resp.StatusCode >= http.StatusBadRequest {
		env := model.Fail[Blob](responseError(out.resp))
		env.Attempts = out.attempts
		return env
	}

	return &model.Envelope[Blob]{
		Success: true,
		Data: Blob{
			Data:        out.resp.Body,
			ContentType: out.resp.Header.Get("Content-Type"),
			Filename:    filenameFrom(out.resp.Header.Get("Content-Disposition")),
		},
		StatusCode: out.resp.StatusCode,
		Attempts:   out.attempts,
	}
}

func (c *HttpClient) execute(ctx context.Context, method, endpoint string, body any, opts []RequestOption) outcome {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	out := c.retry(ctx, method, endpoint, body, o)
	c.Metrics.ObserveRequest(method, outcomeLabel(out), out.attempts, time.Since(start))
	return out
}

func (c *HttpClient) retry(ctx context.Context, method, endpoint string, body any, o requestOptions) outcome {
	payload, contentType, err := encodeBody(body, o)
	if err != nil {
		return outcome{err: errors.Internal("Failed to encode request", err)}
	}

	requestID := c.requestID()
	token := c.token(ctx, o.admin)
	maxRetries := c.Policy.MaxRetries
	if o.noRetry {
		maxRetries = 0
	}

	log := c.Log.With("request_id", requestID, "method", method, "endpoint", endpoint)

	var last outcome
	for attempt := 0; ; attempt++ {
		if err := c.wait(ctx); err != nil {
			return outcome{err: cancelledError(err), attempts: attempt}
		}

		resp, err := c.attempt(ctx, method, endpoint, payload, contentType, token, requestID, o.headers, c.Policy.AttemptTimeout(attempt))
		last = outcome{resp: resp, attempts: attempt + 1}

		var reason string
		switch {
		case err != nil && ctx.Err() != nil:
			return outcome{err: cancelledError(ctx.Err()), attempts: attempt + 1}
		case err != nil:
			last.resp = nil
			last.err = transportError(err)
			reason = "transport"
			if last.err.Code == errors.CodeTimeout {
				reason = "timeout"
			}
		case resp.StatusCode >= http.StatusInternalServerError:
			reason = "server"
		default:
			return last
		}

		if attempt >= maxRetries {
			break
		}

		delay := c.Policy.Backoff(attempt)
		log.Debug("Retrying request",
			"attempt", attempt+1,
			"reason", reason,
			"status", statusOf(resp),
			"backoff_ms", delay.Milliseconds(),
		)
		c.Metrics.ObserveRetry(reason)

		if err := c.sleep(ctx, delay); err != nil {
			return outcome{err: cancelledError(err), attempts: attempt + 1}
		}
	}

	if last.resp != nil {
		last.err = exhaustedServerError(last.resp)
		last.resp = nil
	}
	log.Warn("Request failed after retries",
		"attempts", last.attempts,
		"code", last.err.Code,
	)
	return last
}

func (c *HttpClient) attempt(ctx context.Context, method, endpoint string, payload []byte, contentType, token, requestID string, headers map[string]string, timeout time.Duration) (*rawResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.url(endpoint), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &rawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func (c *HttpClient) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Limiter == nil {
		return nil
	}
	return c.Limiter.Wait(ctx)
}

func (c *HttpClient) token(ctx context.Context, admin bool) string {
	if c.Tokens == nil {
		return ""
	}
	if admin {
		return c.Tokens.AdminToken(ctx)
	}
	return c.Tokens.UserToken(ctx)
}

func (c *HttpClient) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.BaseURL + endpoint
}

func encodeBody(body any, o requestOptions) ([]byte, string, error) {
	if o.rawBody != nil {
		return o.rawBody, o.contentType, nil
	}
	if body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return data, "application/json", nil
}

// unwrapData returns the value under "data" when the body is an object
// carrying that key, and the whole body otherwise.
func unwrapData(body []byte) (json.RawMessage, string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ""
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return json.RawMessage(trimmed), ""
	}

	var message string
	if raw, ok := wrapper["message"]; ok {
		_ = json.Unmarshal(raw, &message)
	}
	if data, ok := wrapper["data"]; ok {
		return data, message
	}
	return json.RawMessage(trimmed), message
}

type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// parseErrorBody extracts a human message and field details from a failed
// response. Anything it cannot read is ignored.
func parseErrorBody(body []byte) (string, []errors.FieldDetail) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", nil
	}

	message := eb.Error
	if message == "" {
		message = eb.Message
	}

	var fields []errors.FieldDetail
	if len(eb.Details) > 0 {
		if err := json.Unmarshal(eb.Details, &fields); err != nil {
			fields = nil
		}
	}
	return message, fields
}

func responseError(resp *rawResponse) *errors.AppError {
	message, fields := parseErrorBody(resp.Body)
	return errors.FromSignal(errors.Signal{
		Status:  resp.StatusCode,
		Message: message,
		Fields:  fields,
	})
}

func exhaustedServerError(resp *rawResponse) *errors.AppError {
	message, _ := parseErrorBody(resp.Body)
	if message == "" {
		message = msgServer
	}
	return errors.Server(message, resp.StatusCode)
}

func transportError(err error) *errors.AppError {
	if isTimeout(err) {
		return errors.Timeout(msgTimeout, err)
	}
	return errors.Network(msgConnectivity, err)
}

func cancelledError(err error) *errors.AppError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout(msgTimeout, err)
	}
	return errors.Network(msgCancelled, err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func statusOf(resp *rawResponse) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func outcomeLabel(out outcome) string {
	switch {
	case out.err != nil && out.err.Message == msgCancelled:
		return "cancelled"
	case out.err != nil:
		return string(out.err.Kind)
	case out.resp.StatusCode >= http.StatusBadRequest:
		return "client_error"
	default:
		return "success"
	}
}

func filenameFrom(disposition string) string {
	for _, part := range strings.Split(disposition, ";") {
		part = strings.TrimSpace(part)
		if name, ok := strings.CutPrefix(part, "filename="); ok {
			return strings.Trim(name, `"`)
		}
	}
	return ""
}
