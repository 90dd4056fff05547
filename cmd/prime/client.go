package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/smcprime/prime/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ClientServiceName = "client"
	DefaultPrimeCount = 10
	DefaultMaxTimeout = 10 * time.Second
)

// Implements the client sub-command which connects to one or more
// PrimeService instances and walks a run of successive primes through
// multiple requests.
func NewClientCmd() (*cobra.Command, error) {
	clientCmd := &cobra.Command{
		Use:   ClientServiceName + " target [target]",
		Short: "Run a REST PrimeService client to request a run of successive primes",
		Long: `Launches a REST client that will connect to PrimeService target(s) and request successive primes starting from a given value.

At least one target endpoint must be provided. Metrics and traces will be sent to an OpenTelemetry collection endpoint, if specified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: clientMain,
	}
	clientCmd.PersistentFlags().UintP("count", "c", DefaultPrimeCount, "The number of successive primes to request")
	clientCmd.PersistentFlags().Uint64P("start", "s", 2, "The value from which the search for primes begins")
	clientCmd.PersistentFlags().DurationP("max-timeout", "m", DefaultMaxTimeout, "The maximum timeout for a PrimeService request")
	clientCmd.PersistentFlags().Bool("insecure", false, "Disable TLS verification of PrimeService")
	for _, flag := range []string{"count", "start", "max-timeout", "insecure"} {
		if err := viper.BindPFlag(flag, clientCmd.PersistentFlags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind %s pflag: %w", flag, err)
		}
	}
	return clientCmd, nil
}

// Client sub-command entrypoint. This function will walk the chain of
// NextPrime results across the target endpoints round-robin, starting
// from the configured value.
func clientMain(_ *cobra.Command, endpoints []string) error {
	count := viper.GetInt("count")
	start := viper.GetUint64("start")
	logger := logger.V(1).WithValues("count", count, "start", start, "endpoints", endpoints)
	logger.V(0).Info("Preparing telemetry")
	ctx := context.Background()
	telemetryShutdown, err := initTelemetry(ctx, ClientServiceName, sdktrace.AlwaysSample())
	if err != nil {
		return err
	}
	defer telemetryShutdown(ctx)
	logger.V(0).Info("Building client")
	options := []client.PrimeClientOption{
		client.WithLogger(logger),
		client.WithMaxTimeout(viper.GetDuration("max-timeout")),
	}
	tlsConf, err := newClientTLSConfig()
	if err != nil {
		return err
	}
	if tlsConf != nil {
		options = append(options, client.WithTLSConfig(tlsConf))
	}
	primeClient, err := client.NewPrimeClient(options...)
	if err != nil {
		return fmt.Errorf("failed to create new PrimeClient: %w", err)
	}
	current := start
	for i := 0; i < count; i++ {
		endpoint := endpoints[i%len(endpoints)]
		p, found, err := primeClient.NextPrime(ctx, endpoint, current)
		if err != nil {
			return fmt.Errorf("failure fetching prime %d of %d: %w", i+1, count, err)
		}
		if !found {
			logger.V(0).Info("No further primes in 64-bit range", "current", current)
			break
		}
		fmt.Println(p)
		current = p + 1
	}
	return nil
}

// Creates the TLS configuration to use with the PrimeService client
// from the various configuration options provided. Returns nil when no
// TLS material or insecure override has been configured.
func newClientTLSConfig() (*tls.Config, error) {
	certFile := viper.GetString("cert")
	keyFile := viper.GetString("key")
	cacerts := viper.GetStringSlice("cacert")
	insecure := viper.GetBool("insecure")
	logger := logger.V(1).WithValues("certFile", certFile, "keyFile", keyFile, "cacerts", cacerts, "insecure", insecure)
	if certFile == "" && len(cacerts) == 0 && !insecure {
		return nil, nil
	}
	logger.V(0).Info("Preparing client TLS configuration")
	rootCAs, err := newCACertPool(cacerts)
	if err != nil {
		return nil, err
	}
	tlsConf, err := newTLSConfig(certFile, keyFile, nil, rootCAs)
	if err != nil {
		return nil, err
	}
	if insecure {
		logger.V(1).Info("Skipping TLS verification")
		tlsConf.InsecureSkipVerify = true
	}
	return tlsConf, nil
}
