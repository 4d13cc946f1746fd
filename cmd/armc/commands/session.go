package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/internal/logging"
	"github.com/fivetwenty-io/armclient/internal/telemetry"
	"github.com/fivetwenty-io/armclient/pkg/arm"
	"github.com/fivetwenty-io/armclient/pkg/armclient"
)

// Log backends accepted by --log-backend.
const (
	LogBackendLogrus = "logrus"
	LogBackendZap    = "zap"
)

// Version is reported as the telemetry service version.
var Version = "dev"

// session holds a client and the observers that must be flushed when the
// command finishes.
type session struct {
	client      *arm.ResourceClient
	logger      arm.Logger
	registry    *prometheus.Registry
	metricsFile string
	telemetry   *telemetry.Manager
	flush       func() error
}

func newLogger(out io.Writer) (arm.Logger, func() error, error) {
	level := "warn"
	if viper.GetBool("verbose") {
		level = "debug"
	}

	format := viper.GetString("log_format")

	switch backend := viper.GetString("log_backend"); backend {
	case LogBackendLogrus, "":
		logger, err := logging.NewLogrus(out, level, format)
		if err != nil {
			return nil, nil, err
		}

		return logger, func() error { return nil }, nil
	case LogBackendZap:
		logger, err := logging.NewZap(out, level, format)
		if err != nil {
			return nil, nil, err
		}

		return logger, logger.Sync, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", constants.ErrUnknownLogBackend, backend)
	}
}

func newSession(ctx context.Context, errOut io.Writer) (*session, error) {
	logger, flush, err := newLogger(errOut)
	if err != nil {
		return nil, err
	}

	s := &session{
		logger:      logger,
		metricsFile: viper.GetString("metrics_file"),
		flush:       flush,
	}

	config := &arm.Config{
		Endpoint:          viper.GetString("endpoint"),
		Auth:              viper.GetString("auth"),
		AccessToken:       viper.GetString("token"),
		TenantID:          viper.GetString("tenant_id"),
		ClientID:          viper.GetString("client_id"),
		ClientSecret:      viper.GetString("client_secret"),
		Transport:         viper.GetString("transport"),
		RetryMax:          viper.GetInt("retry_max"),
		RequestsPerSecond: viper.GetInt("requests_per_second"),
		Debug:             viper.GetBool("verbose"),
		Logger:            logger,
	}

	if s.metricsFile != "" {
		s.registry = prometheus.NewRegistry()
		config.MetricsRegisterer = s.registry
	}

	if endpoint := viper.GetString("otlp_endpoint"); endpoint != "" {
		s.telemetry = telemetry.NewManager(telemetry.Config{
			Enabled:        true,
			Endpoint:       endpoint,
			Insecure:       viper.GetBool("otlp_insecure"),
			SamplingRate:   1.0,
			ServiceVersion: Version,
		}, logger)

		err = s.telemetry.Initialize(ctx)
		if err != nil {
			return nil, err
		}

		if tp := s.telemetry.TracerProvider(); tp != nil {
			config.TracerProvider = tp
		}
	}

	s.client, err = armclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return s, nil
}

// Close flushes spans, writes the metrics file and syncs the logger.
func (s *session) Close() error {
	var errs []error

	if s.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), constants.TelemetryShutdownTimeout)
		errs = append(errs, s.telemetry.Shutdown(ctx))

		cancel()
	}

	if s.registry != nil {
		err := prometheus.WriteToTextfile(s.metricsFile, s.registry)
		if err != nil {
			errs = append(errs, fmt.Errorf("writing metrics file: %w", err))
		}
	}

	errs = append(errs, s.flush())

	return errors.Join(errs...)
}

// withSession runs fn with a session bound to the command's context and
// output streams.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	runErr := fn(ctx, s)
	closeErr := s.Close()

	if runErr != nil {
		return runErr
	}

	return closeErr
}
