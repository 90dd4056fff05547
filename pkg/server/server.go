// Package server implements a REST/JSON server exposing the prime
// library as a PrimeService, with optional OpenTelemetry metrics and
// traces.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/smcprime/prime"
	"github.com/smcprime/prime/pkg/api"
	cachepkg "github.com/smcprime/prime/pkg/cache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	// The default name to use when using OpenTelemetry components.
	OpenTelemetryPackageIdentifier = "pkg.server"
)

// PrimeServer answers primality and adjacent-prime queries over a
// REST/JSON API, memoizing search results through an optional Cache.
type PrimeServer struct {
	// The logr.Logger implementation to use
	logger logr.Logger
	// An optional cache implementation
	cache cachepkg.Cache
	// Holds the instance specific metadata that will be returned in PrimeService responses
	metadata *api.Metadata
	// A histogram for search durations
	searchMs metric.Int64Histogram
	// A counter for the number of errors returned by cache
	cacheErrors metric.Int64Counter
	// A counter for cache hits
	cacheHits metric.Int64Counter
	// A counter for cache misses
	cacheMisses metric.Int64Counter
}

// Defines the function signature for PrimeServer options.
type PrimeServerOption func(*PrimeServer)

// Create a new PrimeServer and apply any options.
func NewPrimeServer(options ...PrimeServerOption) (*PrimeServer, error) {
	var hostname string
	if host, err := os.Hostname(); err == nil {
		hostname = host
	} else {
		hostname = "unknown"
	}
	server := &PrimeServer{
		logger: logr.Discard(),
		cache:  cachepkg.NewNoopCache(),
		metadata: &api.Metadata{
			Identity:    hostname,
			Tags:        []string{},
			Annotations: map[string]string{},
		},
	}
	for _, option := range options {
		option(server)
	}
	var err error
	server.searchMs, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Histogram(
		OpenTelemetryPackageIdentifier+".search_duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("The duration (ms) of adjacent-prime searches"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating searchMs Histogram: %w", err)
	}
	server.cacheErrors, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_errors",
		metric.WithDescription("The count of error responses from search cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheErrors Counter: %w", err)
	}
	server.cacheHits, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_hits",
		metric.WithDescription("The count of cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheHits Counter: %w", err)
	}
	server.cacheMisses, err = otel.Meter(OpenTelemetryPackageIdentifier).Int64Counter(
		OpenTelemetryPackageIdentifier+".cache_misses",
		metric.WithDescription("The count of cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("error returned while creating cacheMisses Counter: %w", err)
	}
	return server, nil
}

// Use the supplied logger for the server and prime packages.
func WithLogger(logger logr.Logger) PrimeServerOption {
	return func(s *PrimeServer) {
		s.logger = logger
		prime.SetLogger(logger)
	}
}

// Use the Cache implementation to store adjacent-prime search results
// to avoid repeating a search that has already been performed.
func WithCache(cache cachepkg.Cache) PrimeServerOption {
	return func(s *PrimeServer) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// Add the string tags to the server's metadata.
func WithTags(tags []string) PrimeServerOption {
	return func(s *PrimeServer) {
		if tags != nil {
			s.metadata.Tags = append(s.metadata.Tags, tags...)
		}
	}
}

// Add the key-value annotations to the server's metadata.
func WithAnnotations(annotations map[string]string) PrimeServerOption {
	return func(s *PrimeServer) {
		for k, v := range annotations {
			s.metadata.Annotations[k] = v
		}
	}
}

// Handler returns the http.Handler for the PrimeService REST API,
// instrumented for OpenTelemetry.
func (s *PrimeServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /api/v1/prime/{n}", s.getPrime)
	mux.HandleFunc("GET /api/v1/next/{n}", s.getNextPrime)
	mux.HandleFunc("GET /api/v1/prev/{n}", s.getPrevPrime)
	return otelhttp.NewHandler(mux,
		OpenTelemetryPackageIdentifier+"/Handler",
		otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
	)
}

func (s *PrimeServer) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.logger.Error(err, "Writing health response raised an error; continuing")
	}
}

// Implement the PrimeService IsPrime query.
func (s *PrimeServer) getPrime(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(OpenTelemetryPackageIdentifier).Start(r.Context(), OpenTelemetryPackageIdentifier+"/GetPrime")
	defer span.End()
	n, err := strconv.ParseUint(r.PathValue("n"), 10, 64)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("failed to parse n as uint64: %v", err))
		return
	}
	logger := s.logger.WithValues("n", n)
	logger.Info("GetPrime: enter")
	span.SetAttributes(attribute.Int64(OpenTelemetryPackageIdentifier+".n", int64(n))) //nolint:gosec // attribute value is informational
	result := prime.IsPrime64(n)
	logger.Info("GetPrime: exit", "prime", result)
	s.writeJSON(ctx, w, &api.PrimeResponse{
		N:        n,
		Prime:    result,
		Metadata: s.metadata,
	})
}

// Implement the PrimeService NextPrime query.
func (s *PrimeServer) getNextPrime(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, "next", prime.NextPrime64)
}

// Implement the PrimeService PrevPrime query.
func (s *PrimeServer) getPrevPrime(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, "prev", prime.PrevPrime64)
}

// Shared handler for both search directions. Results are memoized in
// the cache by direction and starting point; a not-found result is
// memoized as 0, which can never be a prime result.
func (s *PrimeServer) search(w http.ResponseWriter, r *http.Request, direction string, find func(uint64) (uint64, bool)) {
	ctx, span := otel.Tracer(OpenTelemetryPackageIdentifier).Start(r.Context(), OpenTelemetryPackageIdentifier+"/Search")
	defer span.End()
	n, err := strconv.ParseUint(r.PathValue("n"), 10, 64)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("failed to parse n as uint64: %v", err))
		return
	}
	logger := s.logger.WithValues("n", n, "direction", direction)
	logger.Info("Search: enter")
	attributes := []attribute.KeyValue{
		attribute.String(OpenTelemetryPackageIdentifier+".direction", direction),
		attribute.String(OpenTelemetryPackageIdentifier+".cacheKey", cachepkg.Key(direction, n)),
	}
	span.SetAttributes(attributes...)
	span.AddEvent("Checking cache")
	result, cached, err := s.cache.GetResult(ctx, direction, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.cacheErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
		s.writeError(ctx, w, http.StatusInternalServerError, fmt.Sprintf("cache %T GetResult method returned an error: %v", s.cache, err))
		return
	}
	if !cached {
		attributes := append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".cache_hit", false))
		span.SetAttributes(attributes...)
		span.AddEvent("Searching for adjacent prime")
		s.cacheMisses.Add(ctx, 1, metric.WithAttributes(attributes...))
		ts := time.Now()
		result, _ = find(n)
		s.searchMs.Record(ctx, time.Since(ts).Milliseconds(), metric.WithAttributes(attributes...))
		if err := s.cache.SetResult(ctx, direction, n, result); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			s.cacheErrors.Add(ctx, 1, metric.WithAttributes(attributes...))
			s.writeError(ctx, w, http.StatusInternalServerError, fmt.Sprintf("cache %T SetResult method returned an error: %v", s.cache, err))
			return
		}
	} else {
		attributes := append(attributes, attribute.Bool(OpenTelemetryPackageIdentifier+".cache_hit", true))
		span.SetAttributes(attributes...)
		s.cacheHits.Add(ctx, 1, metric.WithAttributes(attributes...))
	}
	logger.Info("Search: exit", "result", result)
	s.writeJSON(ctx, w, &api.SearchResponse{
		N:        n,
		Prime:    result,
		Found:    result != 0,
		Metadata: s.metadata,
	})
}

func (s *PrimeServer) writeJSON(_ context.Context, w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(err, "Writing JSON response raised an error; continuing")
	}
}

func (s *PrimeServer) writeError(_ context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(&api.ErrorResponse{Error: message}); err != nil {
		s.logger.Error(err, "Writing JSON error response raised an error; continuing")
	}
}
