package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL   = "https://discord.com/api/v10"
	DefaultUserAgent = "gatewayclient (https://github.com/discordpkg/gatewayclient)"

	tracerName = "github.com/discordpkg/gatewayclient/rest"
)

// Response is a fully read HTTP response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Result is delivered by Send once the request completes.
type Result struct {
	Response *Response
	Err      error
}

type Option func(t *Transport)

func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		t.client = client
	}
}

func WithBaseURL(baseURL string) Option {
	return func(t *Transport) {
		t.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithBotToken adds the bot authorization header to requests that do not set one.
func WithBotToken(token string) Option {
	return func(t *Transport) {
		t.token = token
	}
}

func WithUserAgent(userAgent string) Option {
	return func(t *Transport) {
		t.userAgent = userAgent
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(t *Transport) {
		t.tracer = tracer
	}
}

// WithCircuitBreaker configures how many consecutive failures open the circuit, and
// how long it stays open before a probe request is let through.
func WithCircuitBreaker(maxFailures uint32, timeout time.Duration) Option {
	return func(t *Transport) {
		t.maxFailures = maxFailures
		t.breakerTimeout = timeout
	}
}

// Transport sends REST requests. It holds no session state and can be shared between
// gateway clients.
type Transport struct {
	client    *http.Client
	baseURL   string
	token     string
	userAgent string
	logger    logrus.FieldLogger
	tracer    trace.Tracer

	maxFailures    uint32
	breakerTimeout time.Duration
	breaker        *gobreaker.CircuitBreaker[*Response]
}

func New(options ...Option) *Transport {
	t := &Transport{
		client:         &http.Client{Timeout: 30 * time.Second},
		baseURL:        DefaultBaseURL,
		userAgent:      DefaultUserAgent,
		maxFailures:    5,
		breakerTimeout: 30 * time.Second,
	}
	for i := range options {
		options[i](t)
	}

	if t.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		t.logger = logger
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(tracerName)
	}

	maxFailures := t.maxFailures
	t.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "rest:" + t.baseURL,
		MaxRequests: 1,
		Timeout:     t.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			t.logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// rejected statuses below 500 are the callers problem, not an unhealthy API
			var restErr *Error
			if errors.As(err, &restErr) && restErr.Status > 0 && restErr.Status < 500 {
				return true
			}
			return err == nil
		},
	})
	return t
}

// BreakerState exposes the circuit breaker state for monitoring.
func (t *Transport) BreakerState() gobreaker.State {
	return t.breaker.State()
}

func (t *Transport) url(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return t.baseURL + "/" + strings.TrimPrefix(target, "/")
}

// sameOrigin reports whether u points below the base URL: same scheme and host, and a
// path inside the base path.
func (t *Transport) sameOrigin(u *url.URL) bool {
	base, err := url.Parse(t.baseURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return false
	}

	basePath := strings.TrimSuffix(base.Path, "/")
	return basePath == "" || u.Path == basePath || strings.HasPrefix(u.Path, basePath+"/")
}

// Do sends the request and reads the whole response. Relative URLs are resolved
// against the base URL.
func (t *Transport) Do(ctx context.Context, method, target string, options *Options) (*Response, error) {
	target = t.url(target)
	fail := func(status int, err error) error {
		return &Error{Method: method, URL: target, Status: status, Err: err}
	}

	ctx, span := t.tracer.Start(ctx, "rest "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", target),
	)

	body, contentType, length, err := options.body()
	if err != nil {
		err = fail(0, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "encoding failed")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		err = fail(0, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.token != "" && t.sameOrigin(req.URL) {
		req.Header.Set("Authorization", "Bot "+t.token)
	}
	options.apply(req)

	log := t.logger.WithFields(logrus.Fields{"method": method, "url": target, "length": length})
	log.Debug("sending request")

	start := time.Now()
	resp, err := t.breaker.Execute(func() (*Response, error) {
		return t.roundTrip(req, options)
	})
	log = log.WithField("duration", time.Since(start))

	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	}
	if err != nil {
		var restErr *Error
		if !errors.As(err, &restErr) {
			// open circuit, too many probe requests
			status := 0
			if resp != nil {
				status = resp.Status
			}
			err = fail(status, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Debug("request failed")
		return resp, err
	}

	log.WithField("status", resp.Status).Debug("received response")
	return resp, nil
}

func (t *Transport) roundTrip(req *http.Request, options *Options) (*Response, error) {
	fail := func(status int, err error) error {
		return &Error{Method: req.Method, URL: req.URL.String(), Status: status, Err: err}
	}

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fail(httpResp.StatusCode, fmt.Errorf("failed to read response body. %w", err))
	}

	resp := &Response{
		Status:  httpResp.StatusCode,
		Headers: httpResp.Header,
		Body:    data,
	}
	if options != nil && options.HTTPErrors && !resp.Success() {
		return resp, fail(resp.Status, ErrStatus)
	}
	return resp, nil
}

// Send performs the request in its own goroutine. The channel receives exactly one
// result and is then closed.
func (t *Transport) Send(ctx context.Context, method, target string, options *Options) <-chan Result {
	results := make(chan Result, 1)
	go func() {
		defer close(results)
		resp, err := t.Do(ctx, method, target, options)
		results <- Result{Response: resp, Err: err}
	}()
	return results
}

// ResolveURL fetches url and returns the body. Non-success statuses are errors.
func (t *Transport) ResolveURL(ctx context.Context, URLString string, headers map[string]string) ([]byte, error) {
	resp, err := t.Do(ctx, http.MethodGet, URLString, &Options{
		HTTPErrors: true,
		Headers:    headers,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
