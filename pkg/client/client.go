// Package client implements an HTTP client for the PrimeService REST
// API, with optional OpenTelemetry metrics and traces.
package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/smcprime/prime/pkg/api"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	// The default maximum timeout that will be applied to requests.
	DefaultMaxTimeout = 10 * time.Second
	// The default name to use when registering OpenTelemetry components.
	OpenTelemetryPackageIdentifier = "pkg.client"
)

// PrimeClient issues PrimeService requests against a target base URL.
type PrimeClient struct {
	// The logr.Logger instance to use.
	logger logr.Logger
	// The client maximum timeout/deadline to use when making requests
	// to a PrimeService.
	maxTimeout time.Duration
	// The HTTP client used for all requests; its transport is
	// instrumented for OpenTelemetry.
	httpClient *http.Client
	// A counter for the number of response errors.
	responseErrors metric.Int64Counter
	// A histogram for request durations.
	durationMs metric.Int64Histogram
}

// Defines a function signature for PrimeClient options.
type PrimeClientOption func(*PrimeClient)

// Create a new PrimeClient with optional settings.
func NewPrimeClient(options ...PrimeClientOption) (*PrimeClient, error) {
	client := &PrimeClient{
		logger:     logr.Discard(),
		maxTimeout: DefaultMaxTimeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, option := range options {
		option(client)
	}
	var err error
	client.responseErrors, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Counter(
		OpenTelemetryPackageIdentifier+".response_errors",
		metric.WithDescription("The count of error responses received by client"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating responseErrors Counter: %w", err)
	}
	client.durationMs, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Histogram(
		OpenTelemetryPackageIdentifier+".request_duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("The duration (ms) of requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating durationMs Histogram: %w", err)
	}
	return client, nil
}

// Use the supplied logr.Logger.
func WithLogger(logger logr.Logger) PrimeClientOption {
	return func(c *PrimeClient) {
		c.logger = logger
	}
}

// Set the maximum timeout for client requests to a PrimeService.
func WithMaxTimeout(maxTimeout time.Duration) PrimeClientOption {
	return func(c *PrimeClient) {
		c.maxTimeout = maxTimeout
	}
}

// Set the TLS configuration to use for PrimeService requests.
func WithTLSConfig(tlsConf *tls.Config) PrimeClientOption {
	return func(c *PrimeClient) {
		if tlsConf != nil {
			c.httpClient.Transport = otelhttp.NewTransport(&http.Transport{
				TLSClientConfig: tlsConf,
			})
		}
	}
}

// IsPrime asks the PrimeService at target whether n is prime.
func (c *PrimeClient) IsPrime(ctx context.Context, target string, n uint64) (bool, error) {
	var response api.PrimeResponse
	if err := c.get(ctx, fmt.Sprintf("%s/api/v1/prime/%d", strings.TrimSuffix(target, "/"), n), "IsPrime", &response); err != nil {
		return false, err
	}
	c.logger.V(1).Info("IsPrime: response from remote", "n", n, "prime", response.Prime, "metadata", response.Metadata)
	return response.Prime, nil
}

// NextPrime asks the PrimeService at target for the smallest prime
// >= n. The boolean result is false when the service reports that no
// prime exists at or above n in the 64-bit range.
func (c *PrimeClient) NextPrime(ctx context.Context, target string, n uint64) (uint64, bool, error) {
	var response api.SearchResponse
	if err := c.get(ctx, fmt.Sprintf("%s/api/v1/next/%d", strings.TrimSuffix(target, "/"), n), "NextPrime", &response); err != nil {
		return 0, false, err
	}
	c.logger.V(1).Info("NextPrime: response from remote", "n", n, "prime", response.Prime, "found", response.Found, "metadata", response.Metadata)
	return response.Prime, response.Found, nil
}

// PrevPrime asks the PrimeService at target for the largest prime
// <= n. The boolean result is false when the service reports that no
// prime exists at or below n.
func (c *PrimeClient) PrevPrime(ctx context.Context, target string, n uint64) (uint64, bool, error) {
	var response api.SearchResponse
	if err := c.get(ctx, fmt.Sprintf("%s/api/v1/prev/%d", strings.TrimSuffix(target, "/"), n), "PrevPrime", &response); err != nil {
		return 0, false, err
	}
	c.logger.V(1).Info("PrevPrime: response from remote", "n", n, "prime", response.Prime, "found", response.Found, "metadata", response.Metadata)
	return response.Prime, response.Found, nil
}

// Issue a single GET request against a PrimeService endpoint and
// decode the JSON response into out.
func (c *PrimeClient) get(ctx context.Context, url, operation string, out any) error {
	logger := c.logger.V(1).WithValues("url", url)
	logger.Info("Starting request to service")
	attributes := []attribute.KeyValue{
		attribute.String(OpenTelemetryPackageIdentifier+".operation", operation),
	}
	ctx, span := otel.Tracer(OpenTelemetryPackageIdentifier).Start(ctx, OpenTelemetryPackageIdentifier+"/"+operation)
	defer span.End()
	span.SetAttributes(attributes...)
	ctx, cancel := context.WithTimeout(ctx, c.maxTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	startTimestamp := time.Now()
	res, err := c.httpClient.Do(req)
	duration := time.Since(startTimestamp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		attributes = append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".success", false))
		c.responseErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		c.durationMs.Record(ctx, duration.Milliseconds(), metric.WithAttributes(attributes...))
		return fmt.Errorf("failure calling %s: %w", operation, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		var errResponse api.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&errResponse)
		err := fmt.Errorf("%s returned status %d: %s", operation, res.StatusCode, errResponse.Error)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		attributes = append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".success", false))
		c.responseErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		c.durationMs.Record(ctx, duration.Milliseconds(), metric.WithAttributes(attributes...))
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	attributes = append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".success", true))
	c.durationMs.Record(ctx, duration.Milliseconds(), metric.WithAttributes(attributes...))
	return nil
}
