package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smcprime/prime/pkg/cache"
	"github.com/smcprime/prime/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

const (
	ServerServiceName          = "server"
	DefaultRESTListenAddress   = ":8080"
	DefaultShutdownGracePeriod = 60 * time.Second
)

// Implements the server sub-command.
func NewServerCmd() (*cobra.Command, error) {
	serverCmd := &cobra.Command{
		Use:   ServerServiceName,
		Short: "Run a REST PrimeService to answer primality and adjacent-prime queries",
		Long: `Launches a REST PrimeService server that can deterministically test 64-bit integers for primality and search for adjacent primes.

An optional Redis DB can be used to cache adjacent-prime search results. Metrics and traces will be sent to an OpenTelemetry collection endpoint, if specified.`,
		RunE: serverMain,
	}
	serverCmd.PersistentFlags().StringP("address", "a", DefaultRESTListenAddress, "Address to listen for PrimeService REST requests")
	serverCmd.PersistentFlags().String("redis-target", "", "An optional Redis endpoint to use as a PrimeService cache")
	serverCmd.PersistentFlags().StringToStringP("label", "l", nil, "An optional label key=value to add to PrimeService response metadata; can be repeated")
	serverCmd.PersistentFlags().StringArray("tag", nil, "An optional tag to add to PrimeService response metadata; can be repeated")
	serverCmd.PersistentFlags().Bool("tls-client-auth", false, "Require PrimeService clients to provide a valid TLS client certificate")
	for _, flag := range []string{"address", "redis-target", "label", "tag", "tls-client-auth"} {
		if err := viper.BindPFlag(flag, serverCmd.PersistentFlags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", flag, err)
		}
	}
	return serverCmd, nil
}

// Server sub-command entrypoint. This function will launch the REST
// PrimeService listener and block until signalled to stop.
func serverMain(_ *cobra.Command, _ []string) error {
	address := viper.GetString("address")
	redisTarget := viper.GetString("redis-target")
	logger := logger.V(1).WithValues("address", address, "redisTarget", redisTarget)
	ctx := context.Background()
	logger.V(0).Info("Preparing telemetry")
	telemetryShutdown, err := initTelemetry(ctx, ServerServiceName,
		sdktrace.ParentBased(sdktrace.TraceIDRatioBased(viper.GetFloat64("otlp-sampling-ratio"))))
	if err != nil {
		return err
	}

	logger.V(0).Info("Preparing services")
	options := []server.PrimeServerOption{
		server.WithLogger(logger),
		server.WithTags(viper.GetStringSlice("tag")),
		server.WithAnnotations(viper.GetStringMapString("label")),
	}
	if redisTarget != "" {
		options = append(options, server.WithCache(cache.NewRedisCache(ctx, redisTarget)))
	}
	primeServer, err := server.NewPrimeServer(options...)
	if err != nil {
		return fmt.Errorf("failed to create new PrimeServer: %w", err)
	}
	tlsConf, err := newServerTLSConfig()
	if err != nil {
		return err
	}
	restServer := &http.Server{
		Addr:              address,
		Handler:           primeServer.Handler(),
		TLSConfig:         tlsConf,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.V(0).Info("Starting PrimeService REST listener")
		var err error
		if tlsConf != nil && len(tlsConf.Certificates) > 0 {
			err = restServer.ListenAndServeTLS("", "")
		} else {
			err = restServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("restServer listener returned an error: %w", err)
		}
		return nil
	})

	select {
	case <-interrupt:
		break
	case <-ctx.Done():
		break
	}
	logger.V(0).Info("Shutting down on signal")
	cancel()
	ctx, shutdown := context.WithTimeout(context.Background(), DefaultShutdownGracePeriod)
	defer shutdown()
	if err := restServer.Shutdown(ctx); err != nil {
		logger.Error(err, "Failed to shutdown REST listener cleanly")
	}
	telemetryShutdown(ctx)
	return g.Wait() //nolint:wrapcheck
}

// Creates the TLS configuration to use with the PrimeService REST
// listener from the various configuration options provided. Returns
// nil when no certificate has been configured.
func newServerTLSConfig() (*tls.Config, error) {
	certFile := viper.GetString("cert")
	keyFile := viper.GetString("key")
	cacerts := viper.GetStringSlice("cacert")
	tlsClientAuth := viper.GetBool("tls-client-auth")
	logger := logger.V(1).WithValues("certFile", certFile, "keyFile", keyFile, "cacerts", cacerts)
	if certFile == "" {
		logger.V(0).Info("No certificate provided; PrimeService will listen without TLS")
		return nil, nil
	}
	logger.V(0).Info("Preparing server TLS configuration")
	var clientCAs *x509.CertPool
	if len(cacerts) > 0 {
		pool, err := newCACertPool(cacerts)
		if err != nil {
			return nil, err
		}
		clientCAs = pool
	}
	tlsConf, err := newTLSConfig(certFile, keyFile, clientCAs, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case tlsClientAuth:
		tlsConf.ClientAuth = tls.RequireAndVerifyClientCert

	case clientCAs != nil:
		tlsConf.ClientAuth = tls.VerifyClientCertIfGiven

	default:
		tlsConf.ClientAuth = tls.NoClientCert
	}
	return tlsConf, nil
}
