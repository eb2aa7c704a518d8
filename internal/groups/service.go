// Package groups issues the Cloud Identity group and membership calls behind
// each CLI command.
package groups

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/cloudidentity/v1"
	"google.golang.org/api/option"

	"cigroups/internal/credentials"
)

// Service wraps the generated Cloud Identity client.
type Service struct {
	api    *cloudidentity.Service
	logger *slog.Logger
}

// delegated is implemented by providers that act on behalf of a user.
type delegated interface {
	Subject() string
}

var _ delegated = (*credentials.ServiceAccount)(nil)

type serviceOptions struct {
	endpoint string
	qps      float64
	logger   *slog.Logger
	base     http.RoundTripper
}

// Option configures New.
type Option func(*serviceOptions)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *serviceOptions) { o.endpoint = endpoint }
}

// WithQPS throttles outgoing requests. Zero means unlimited.
func WithQPS(qps float64) Option {
	return func(o *serviceOptions) { o.qps = qps }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithBaseTransport replaces http.DefaultTransport underneath the auth and
// API-key layers.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *serviceOptions) { o.base = rt }
}

// New builds a Service authenticated by p. The API key travels as the `key`
// query parameter and the bearer token comes from p's token source.
func New(ctx context.Context, p credentials.Provider, opts ...Option) (*Service, error) {
	o := serviceOptions{
		logger: slog.Default(),
		base:   http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ts, err := p.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base: &keyTransport{
				base:    o.base,
				apiKey:  p.APIKey(),
				limiter: newLimiter(o.qps),
				logger:  o.logger,
			},
		},
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
	}
	api, err := cloudidentity.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create cloudidentity service: %w", err)
	}

	attrs := []any{"credentials", p.Kind(), "endpoint", api.BasePath}
	if d, ok := p.(delegated); ok {
		attrs = append(attrs, "subject", d.Subject())
	}
	o.logger.Debug("cloudidentity client ready", attrs...)
	return &Service{api: api, logger: o.logger}, nil
}

// operationResourceName extracts the name of the resource a long-running
// create operation produced. The operation payload is not the full resource.
func operationResourceName(op *cloudidentity.Operation) (string, error) {
	if op.Error != nil {
		return "", fmt.Errorf("operation %s failed: %s", op.Name, op.Error.Message)
	}
	if len(op.Response) == 0 {
		return "", fmt.Errorf("operation %s returned no resource", op.Name)
	}
	var res struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(op.Response, &res); err != nil {
		return "", fmt.Errorf("decode operation response: %w", err)
	}
	if res.Name == "" {
		return "", fmt.Errorf("operation %s returned a resource without a name", op.Name)
	}
	return res.Name, nil
}
